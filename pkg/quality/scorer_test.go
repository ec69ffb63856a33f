package quality

import (
	"testing"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer()

	t.Run("empty value scores zero", func(t *testing.T) {
		for _, field := range models.MergeFields {
			assert.Equal(t, 0, scorer.Score(field, ""), field)
		}
	})

	t.Run("short value gets base only", func(t *testing.T) {
		// 3 chars: length bonus requires strictly more than 3.
		assert.Equal(t, 50, scorer.Score(models.FieldCity, "abc"))
	})

	t.Run("mid length value gets length bonus", func(t *testing.T) {
		assert.Equal(t, 70, scorer.Score(models.FieldCity, "Cairo"))
	})

	t.Run("overlong value loses length bonus", func(t *testing.T) {
		long := make([]byte, 100)
		for i := range long {
			long[i] = 'x'
		}
		assert.Equal(t, 50, scorer.Score(models.FieldCity, string(long)))
	})

	t.Run("arabic name bonus", func(t *testing.T) {
		assert.Equal(t, 100, scorer.Score(models.FieldCompanyNameAr, "شركة الأهرام"))
		// Latin text in the localized field earns no script bonus.
		assert.Equal(t, 70, scorer.Score(models.FieldCompanyNameAr, "Ahram Co"))
	})

	t.Run("short arabic value", func(t *testing.T) {
		// "شركة أ" is 6 runes: base 50 + length 20 + arabic 30.
		assert.Equal(t, 100, scorer.Score(models.FieldCompanyNameAr, "شركة أ"))
	})

	t.Run("length gate counts characters not bytes", func(t *testing.T) {
		// "شر" is 2 runes (4 bytes): no length bonus.
		assert.Equal(t, 50, scorer.Score(models.FieldCity, "شر"))
		// "شرك" is 3 runes: the gate is strictly greater than 3.
		assert.Equal(t, 50, scorer.Score(models.FieldCity, "شرك"))
		// "شركة" is 4 runes (8 bytes): earns the bonus.
		assert.Equal(t, 70, scorer.Score(models.FieldCity, "شركة"))
	})

	t.Run("email bonus", func(t *testing.T) {
		assert.Equal(t, 100, scorer.Score(models.FieldEmail, "ops@ahram.example.com"))
		assert.Equal(t, 70, scorer.Score(models.FieldEmail, "not-an-email"))
	})

	t.Run("phone bonus", func(t *testing.T) {
		assert.Equal(t, 90, scorer.Score(models.FieldPhone, "+20 2 2574-6000"))
		// Too few digits.
		assert.Equal(t, 70, scorer.Score(models.FieldPhone, "123456"))
		// Letters disqualify.
		assert.Equal(t, 70, scorer.Score(models.FieldPhone, "CALL-ME-NOW"))
	})

	t.Run("tax number bonus", func(t *testing.T) {
		assert.Equal(t, 95, scorer.Score(models.FieldTaxNumber, "2001234567"))
		assert.Equal(t, 70, scorer.Score(models.FieldTaxNumber, "12345"))
	})

	t.Run("clean company name bonus", func(t *testing.T) {
		assert.Equal(t, 85, scorer.Score(models.FieldCompanyName, "Al-Ahram Trading & Co."))
		// Digits break the clean-charset rule.
		assert.Equal(t, 70, scorer.Score(models.FieldCompanyName, "Ahram 2000"))
	})

	t.Run("score capped at 100", func(t *testing.T) {
		assert.LessOrEqual(t, scorer.Score(models.FieldTaxNumber, "3000123456789"), 100)
	})

	t.Run("deterministic", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			assert.Equal(t, 95, scorer.Score(models.FieldTaxNumber, "2001234567"))
		}
	})
}

func TestScorer_ScoreRecord(t *testing.T) {
	scorer := NewScorer()
	record := &models.Record{
		TaxNumber:   "2001234567",
		CompanyName: "Ahram Trading",
		Email:       "ops@ahram.example.com",
	}

	scores := scorer.ScoreRecord(record)

	assert.Len(t, scores, len(models.MergeFields))
	assert.Equal(t, 95, scores[models.FieldTaxNumber])
	assert.Equal(t, 85, scores[models.FieldCompanyName])
	assert.Equal(t, 100, scores[models.FieldEmail])
	assert.Equal(t, 0, scores[models.FieldCity])
}
