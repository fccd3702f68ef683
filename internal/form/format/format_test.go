package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistance-portal/internal/form/country"
)

func TestDigitConversion(t *testing.T) {
	assert.Equal(t, "٠١٢٣٤٥٦٧٨٩", ToArabicDigits("0123456789"))
	assert.Equal(t, "0123456789", ToLatinDigits("٠١٢٣٤٥٦٧٨٩"))
	assert.Equal(t, "0123456789", ToLatinDigits("۰۱۲۳۴۵۶۷۸۹"))
	assert.Equal(t, "abc", ToLatinDigits("abc"))
	assert.Equal(t, "784", LocalizeDigits("784", LangEnglish))
	assert.Equal(t, "٧٨٤", LocalizeDigits("784", LangArabic))
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "7841990", Digits("784-1990"))
	assert.Equal(t, "784", Digits("٧٨٤"))
	assert.Equal(t, "", Digits("abc"))
}

func TestApplyMask(t *testing.T) {
	const uaeID = "###-####-#######-#"

	tests := []struct {
		raw  string
		mask string
		want string
	}{
		{"", uaeID, ""},
		{"7", uaeID, "7"},
		{"784", uaeID, "784"},
		{"7841", uaeID, "784-1"},
		{"784199012345671", uaeID, "784-1990-1234567-1"},
		{"784-1990-1234567-1", uaeID, "784-1990-1234567-1"},
		{"7841990123456719999", uaeID, "784-1990-1234567-1"},
		{"٧٨٤١٩٩٠", uaeID, "784-1990"},
		{"501234567", "## ### ####", "50 123 4567"},
		{"50", "## ### ####", "50"},
		{"501", "## ### ####", "50 1"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyMask(tt.raw, tt.mask))
		})
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "12,500", Number("12500", LangEnglish))
	assert.Equal(t, "١٢٬٥٠٠", Number("12500", LangArabic))
	assert.Equal(t, "0", Number("0", LangEnglish))
	assert.Equal(t, "1,000,000", Number("١٠٠٠٠٠٠", LangEnglish))
	assert.Equal(t, "abc", Number("abc", LangEnglish))
}

func TestCurrency(t *testing.T) {
	uae := country.Default().Get("UAE")
	require.NotNil(t, uae)

	assert.Equal(t, "12,500 AED", Currency("12500", uae.Currency, LangEnglish))
	assert.Equal(t, "١٢٬٥٠٠ د.إ", Currency("12500", uae.Currency, LangArabic))
	assert.Equal(t, "n/a", Currency("n/a", uae.Currency, LangEnglish))
	assert.Equal(t, "500", Currency("500", country.Currency{}, LangEnglish))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "15/03/1990", Date("1990-03-15", LangEnglish))
	assert.Equal(t, "١٥/٠٣/١٩٩٠", Date("1990-03-15", LangArabic))
	assert.Equal(t, "15-03-1990", Date("15-03-1990", LangEnglish))
}

func TestPhone(t *testing.T) {
	uae := country.Default().Get("UAE")
	assert.Equal(t, "+971 50 123 4567", Phone("50 123 4567", uae, LangEnglish))
	assert.Equal(t, "+٩٧١ ٥٠ ١٢٣ ٤٥٦٧", Phone("50 123 4567", uae, LangArabic))
	assert.Equal(t, "50 123 4567", Phone("50 123 4567", nil, LangEnglish))
	assert.Equal(t, "", Phone("", uae, LangEnglish))
}

func TestMaskable(t *testing.T) {
	const uaeID = "###-####-#######-#"

	assert.True(t, Maskable("784199012345671", uaeID))
	assert.True(t, Maskable("784-1990-1234567-1", uaeID))
	assert.True(t, Maskable("٧٨٤ ١٩٩٠", uaeID))
	assert.True(t, Maskable("+971 (50) 123", "## ### ####"))
	assert.False(t, Maskable("7841990123456712", uaeID))
	assert.False(t, Maskable("784-1990-1234567-1abc", uaeID))
	assert.False(t, Maskable("50+123", "## ### ####"))
}
