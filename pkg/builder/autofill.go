// Package builder materializes master records from duplicate groups with
// field-level provenance: every master field traces to a contributing
// record or to an explicit manual entry.
package builder

import (
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quality"
)

// FieldPlan is the resolved source and value for every master field.
// Sources maps field name to a contributing record id or the manual-entry
// sentinel; fields with no resolvable value are absent from both maps.
type FieldPlan struct {
	Sources map[string]string
	Values  map[string]string
}

// AutoFillBest selects, for every merge field, the member whose value
// scores highest. Ties go to the first member in group order, so the result
// is deterministic for an unchanged group. Fields empty across the whole
// group are left unresolved.
func AutoFillBest(members []models.Record, scorer *quality.Scorer) FieldPlan {
	plan := FieldPlan{
		Sources: make(map[string]string),
		Values:  make(map[string]string),
	}

	for _, field := range models.MergeFields {
		bestScore := 0
		for _, member := range members {
			value := member.Fields()[field]
			if value == "" {
				continue
			}
			score := scorer.Score(field, value)
			if score > bestScore {
				bestScore = score
				plan.Sources[field] = member.ID
				plan.Values[field] = value
			}
		}
	}
	return plan
}

// ApplySelections overlays operator selections onto an automatic plan.
// A selection naming a source record pins that member's value; a selection
// with a manual value records the manual-entry sentinel. Manual entries
// always win until explicitly cleared by a later selection.
func ApplySelections(plan FieldPlan, selections []models.FieldSelection, members []models.Record) (FieldPlan, error) {
	byID := make(map[string]models.Record, len(members))
	for _, member := range members {
		byID[member.ID] = member
	}

	for _, selection := range selections {
		if !models.IsMergeField(selection.Field) {
			return FieldPlan{}, apperrors.ValidationField("unknown merge field", selection.Field)
		}

		if selection.SourceRecordID != "" {
			member, ok := byID[selection.SourceRecordID]
			if !ok {
				return FieldPlan{}, apperrors.Validationf("selection for %s names record %s outside the group", selection.Field, selection.SourceRecordID)
			}
			value := member.Fields()[selection.Field]
			if value == "" {
				return FieldPlan{}, apperrors.Validationf("record %s has no value for %s", selection.SourceRecordID, selection.Field)
			}
			plan.Sources[selection.Field] = member.ID
			plan.Values[selection.Field] = value
			continue
		}

		if selection.ManualValue == "" {
			return FieldPlan{}, apperrors.Validationf("selection for %s needs a source record or a manual value", selection.Field)
		}
		plan.Sources[selection.Field] = models.ManualEntrySource
		plan.Values[selection.Field] = selection.ManualValue
	}
	return plan, nil
}

// ValidateRequired checks that every required master field resolved to a
// source. Returns a validation error naming the first missing field.
func ValidateRequired(plan FieldPlan) error {
	for _, field := range models.RequiredMasterFields {
		if _, ok := plan.Sources[field]; !ok {
			return apperrors.ValidationField("required master field is unresolved", field)
		}
	}
	return nil
}
