package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTaxID(t *testing.T) {
	t.Run("strips label prefixes", func(t *testing.T) {
		assert.Equal(t, "200123456789", NormalizeTaxID("TAX-200123456789"))
		assert.Equal(t, "200123456789", NormalizeTaxID("VAT 200123456789"))
		assert.Equal(t, "200123456789", NormalizeTaxID("trn:200123456789"))
	})

	t.Run("strips separators and whitespace", func(t *testing.T) {
		assert.Equal(t, "200123456789", NormalizeTaxID("  200-123-456/789  "))
		assert.Equal(t, "200123456789", NormalizeTaxID("200.123.456.789"))
	})

	t.Run("uppercases alphanumeric keys", func(t *testing.T) {
		assert.Equal(t, "AB12345678", NormalizeTaxID("ab-1234-5678"))
	})

	t.Run("keeps alphabetic keys that start with a known label", func(t *testing.T) {
		// "EGYPTCO" starts with prefix "EG" but no digits follow,
		// so the prefix is not stripped.
		assert.Equal(t, "EGYPTCO", NormalizeTaxID("egyptco"))
	})

	t.Run("empty and separator-only inputs collapse to empty", func(t *testing.T) {
		assert.Equal(t, "", NormalizeTaxID(""))
		assert.Equal(t, "", NormalizeTaxID(" --- "))
	})

	t.Run("equivalent raw keys normalize identically", func(t *testing.T) {
		variants := []string{"TAX-200123456789", "200 123 456 789", "tax:200123456789", "200123456789"}
		for _, v := range variants {
			assert.Equal(t, "200123456789", NormalizeTaxID(v), v)
		}
	})
}

func TestNormalizeCompanyName(t *testing.T) {
	assert.Equal(t, "ahram trading", NormalizeCompanyName("Ahram Trading LLC"))
	assert.Equal(t, "ahram trading", NormalizeCompanyName("  Ahram   Trading, Ltd."))
	assert.Equal(t, "الأهرام للتجارة", NormalizeCompanyName("الأهرام للتجارة"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "200123456789", ApplyChain(" TAX-200123456789 ", "trim", "ntax"))
	// Unknown normalizer names pass the value through.
	assert.Equal(t, "x", Apply("x", "nope"))
}
