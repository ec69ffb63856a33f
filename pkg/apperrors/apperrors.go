// Package apperrors defines the structured error kinds returned by the
// lifecycle and merge operations. Every error carries a machine-readable
// kind in its metadata alongside the HTTP status, so callers branch on kind
// rather than on message text.
package apperrors

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Error kinds. These are stable API values; do not rename.
const (
	KindValidation    = "validation"
	KindAuthorization = "authorization"
	KindStateConflict = "state_conflict"
	KindNotFound      = "not_found"
	KindPersistence   = "persistence"
)

// MetaKind is the metadata key holding the error kind.
const MetaKind = "kind"

// Validation reports malformed or rule-violating input. The offending field
// name is attached when known.
func Validation(message string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, message).
		AddMetaValue(MetaKind, KindValidation)
}

// ValidationField reports a validation failure on a specific field.
func ValidationField(message, field string) *httperror.HTTPError {
	return Validation(message).AddMetaValue("field", field)
}

// Validationf formats the message.
func Validationf(format string, args ...any) *httperror.HTTPError {
	return httperror.NewHTTPErrorf(http.StatusBadRequest, format, args...).
		AddMetaValue(MetaKind, KindValidation)
}

// Authorization reports an actor whose role does not permit the attempted
// action.
func Authorization(message string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusForbidden, message).
		AddMetaValue(MetaKind, KindAuthorization)
}

// Authorizationf formats the message.
func Authorizationf(format string, args ...any) *httperror.HTTPError {
	return httperror.NewHTTPErrorf(http.StatusForbidden, format, args...).
		AddMetaValue(MetaKind, KindAuthorization)
}

// StateConflict reports an action that is illegal in the record's current
// lifecycle state, including transitions missing from the transition table.
func StateConflict(message string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusConflict, message).
		AddMetaValue(MetaKind, KindStateConflict)
}

// StateConflictf formats the message.
func StateConflictf(format string, args ...any) *httperror.HTTPError {
	return httperror.NewHTTPErrorf(http.StatusConflict, format, args...).
		AddMetaValue(MetaKind, KindStateConflict)
}

// NotFound reports a missing entity by type and identifier.
func NotFound(entity, id string) *httperror.HTTPError {
	return httperror.NewHTTPErrorf(http.StatusNotFound, "%s %s not found", entity, id).
		AddMetaValue(MetaKind, KindNotFound).
		AddMetaValue("entity", entity).
		AddMetaValue("id", id)
}

// Persistence wraps a storage failure. The underlying error is logged at
// the call site; the response carries only the safe message.
func Persistence(message string) *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusInternalServerError, message).
		AddMetaValue(MetaKind, KindPersistence)
}

// Kind extracts the error kind, or empty string for non-kinded errors.
func Kind(err error) string {
	if err == nil || !httperror.IsHTTPError(err) {
		return ""
	}
	httperr := httperror.ToHTTPError(err)
	if httperr.Meta == nil {
		return ""
	}
	kind, _ := httperr.Meta[MetaKind].(string)
	return kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	return Kind(err) == kind
}
