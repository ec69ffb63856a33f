// Package normalizers provides field normalization functions for duplicate
// grouping and ingestion change detection.
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("uppercase", Uppercase)
	Register("trim", Trim)
	Register("ntax", NormalizeTaxID)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("ncompany", NormalizeCompanyName)
	Register("remove_whitespace", RemoveWhitespace)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Uppercase converts string to uppercase
func Uppercase(s string) string {
	return strings.ToUpper(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// taxIDPrefixes are labels upstream systems prepend to tax registration
// numbers. Stripped before grouping so "TAX-200123456789" and
// "200123456789" land in the same group.
var taxIDPrefixes = []string{"TAXID", "TAX", "VAT", "TRN", "TN", "EG"}

// NormalizeTaxID normalizes a tax/registration number for grouping:
// uppercase, strip known label prefixes, drop separators. Returns empty
// string when nothing identifying survives.
func NormalizeTaxID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))

	for _, prefix := range taxIDPrefixes {
		if strings.HasPrefix(s, prefix) {
			rest := strings.TrimLeft(s[len(prefix):], " -:/.")
			// Only treat it as a label when digits follow, so a key
			// that is itself alphabetic is not gutted.
			if rest != "" && unicode.IsDigit(rune(rest[0])) {
				s = rest
			}
			break
		}
	}

	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizePhone removes all non-digit characters from a phone number
func NormalizePhone(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCompanyName normalizes a company name for display grouping
// - Lowercase
// - Remove common legal suffixes (llc, ltd, inc, sae, ...)
// - Collapse punctuation and repeated whitespace
func NormalizeCompanyName(s string) string {
	s = strings.ToLower(s)

	suffixes := []string{" llc", " ltd.", " ltd", " inc.", " inc", " co.", " co", " sae", " s.a.e", " gmbh", " plc"}
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
		}
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// RemoveWhitespace removes all whitespace characters
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
