// Package quality scores candidate field values for automatic master-field
// selection. Scores are deterministic pure functions of (field, value): the
// builder relies on identical inputs producing identical scores, so the
// bonus table and cap must never drift.
package quality

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
)

const (
	baseScore       = 50
	lengthBonus     = 20
	arabicBonus     = 30
	emailBonus      = 30
	phoneBonus      = 20
	taxKeyBonus     = 25
	cleanNameBonus  = 15
	maxScore        = 100
	minTaxKeyLength = 10
	minBonusLength  = 3
	maxBonusLength  = 100
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Scorer scores field values on a 0-100 scale.
type Scorer struct{}

// NewScorer creates a new Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the quality score for value as a candidate for field.
// Empty values score 0. Non-empty values start at 50, gain 20 when the
// length is strictly between 3 and 100 characters, then gain a
// field-specific bonus. The result is capped at 100.
func (s *Scorer) Score(field, value string) int {
	if value == "" {
		return 0
	}

	score := baseScore
	// Length is counted in runes, not bytes, so multi-byte scripts are
	// gated the same as Latin text.
	length := utf8.RuneCountInString(value)
	if length > minBonusLength && length < maxBonusLength {
		score += lengthBonus
	}

	switch field {
	case models.FieldCompanyNameAr:
		if containsArabic(value) {
			score += arabicBonus
		}
	case models.FieldEmail:
		if emailPattern.MatchString(value) {
			score += emailBonus
		}
	case models.FieldPhone:
		if isPlausiblePhone(value) {
			score += phoneBonus
		}
	case models.FieldTaxNumber:
		if len(value) >= minTaxKeyLength {
			score += taxKeyBonus
		}
	case models.FieldCompanyName:
		if isCleanName(value) {
			score += cleanNameBonus
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// ScoreRecord scores every merge field of a record.
func (s *Scorer) ScoreRecord(record *models.Record) map[string]int {
	fields := record.Fields()
	scores := make(map[string]int, len(fields))
	for name, value := range fields {
		scores[name] = s.Score(name, value)
	}
	return scores
}

// containsArabic reports whether v contains at least one rune in the Arabic
// script block.
func containsArabic(v string) bool {
	for _, r := range v {
		if unicode.Is(unicode.Arabic, r) {
			return true
		}
	}
	return false
}

// isPlausiblePhone accepts 7-15 digits with optional +, spaces, dashes,
// dots, and parentheses.
func isPlausiblePhone(v string) bool {
	digits := 0
	for i, r := range v {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 7 && digits <= 15
}

// isCleanName accepts letters (any script), spaces, and the characters &.-
func isCleanName(v string) bool {
	for _, r := range v {
		if unicode.IsLetter(r) || r == ' ' || strings.ContainsRune("&.-", r) {
			continue
		}
		return false
	}
	return true
}
