// Package format renders stored form values for display. Formatting never
// changes the stored value.
package format

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"assistance-portal/internal/form/country"
)

const (
	LangEnglish = "en"
	LangArabic  = "ar"

	// DateLayout is the storage layout of dates.
	DateLayout    = "2006-01-02"
	displayLayout = "02/01/2006"

	arabicZero         = '٠'
	extendedArabicZero = '۰'
	arabicThousandsSep = "٬"
)

var groupPrinter = message.NewPrinter(language.English)

// ToLatinDigits folds Arabic-Indic and Extended Arabic-Indic digits to ASCII.
func ToLatinDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= arabicZero && r <= arabicZero+9:
			return '0' + (r - arabicZero)
		case r >= extendedArabicZero && r <= extendedArabicZero+9:
			return '0' + (r - extendedArabicZero)
		}
		return r
	}, s)
}

// ToArabicDigits replaces ASCII digits with Arabic-Indic digits.
func ToArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return arabicZero + (r - '0')
		}
		return r
	}, s)
}

// LocalizeDigits renders ASCII digits in the numeral system of lang.
func LocalizeDigits(s, lang string) string {
	if lang == LangArabic {
		return ToArabicDigits(s)
	}
	return s
}

// Digits returns only the digits of s, folded to ASCII.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range ToLatinDigits(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// maskSeparators may appear in typed ID and phone input besides digits.
const maskSeparators = " -./()"

// Maskable reports whether raw holds only digits and separators, with an
// optional leading '+', and no more digits than mask has slots.
func Maskable(raw, mask string) bool {
	digits := 0
	for _, r := range strings.TrimPrefix(ToLatinDigits(raw), "+") {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(maskSeparators, r):
		default:
			return false
		}
	}
	return digits <= strings.Count(mask, "#")
}

// ApplyMask lays the digits of raw over mask, where '#' is a digit slot.
// Literal characters are emitted only when another digit follows them, so a
// partially typed value never ends in a separator. Digits beyond the mask
// are dropped.
func ApplyMask(raw, mask string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}

	var b strings.Builder
	next := 0
	var pending strings.Builder
	for _, m := range mask {
		if next >= len(digits) {
			break
		}
		if m != '#' {
			pending.WriteRune(m)
			continue
		}
		b.WriteString(pending.String())
		pending.Reset()
		b.WriteByte(digits[next])
		next++
	}
	return b.String()
}

// Number groups thousands of an integer string for lang. Unparsable input is
// returned unchanged.
func Number(raw, lang string) string {
	n, ok := parseInt(raw)
	if !ok {
		return raw
	}
	out := groupPrinter.Sprintf("%d", n)
	if lang == LangArabic {
		out = ToArabicDigits(strings.ReplaceAll(out, ",", arabicThousandsSep))
	}
	return out
}

// Currency formats an amount with the currency suffix, e.g. "12,500 AED" or
// "١٢٬٥٠٠ د.إ". Unparsable input is returned unchanged.
func Currency(raw string, cur country.Currency, lang string) string {
	if _, ok := parseInt(raw); !ok {
		return raw
	}
	out := Number(raw, lang)
	if sym := cur.Symbol(lang); sym != "" {
		return out + " " + sym
	}
	return out
}

func parseInt(raw string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(ToLatinDigits(raw)), 10, 64)
	return n, err == nil
}

// Date renders a stored YYYY-MM-DD date as DD/MM/YYYY. Unparsable input is
// returned unchanged.
func Date(raw, lang string) string {
	t, err := time.Parse(DateLayout, strings.TrimSpace(ToLatinDigits(raw)))
	if err != nil {
		return raw
	}
	return LocalizeDigits(t.Format(displayLayout), lang)
}

// Phone prefixes a stored phone number with the country dial code.
func Phone(raw string, c *country.Country, lang string) string {
	if raw == "" || c == nil || c.Phone.DialCode == "" {
		return LocalizeDigits(raw, lang)
	}
	return LocalizeDigits(c.Phone.DialCode+" "+raw, lang)
}
