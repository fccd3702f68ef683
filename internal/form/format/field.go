package format

import (
	"assistance-portal/internal/form/country"
	"assistance-portal/internal/models"
)

// Field renders the stored value of field for display in lang. c is the
// selected country and may be nil. Fields without a display rule are
// returned unchanged.
func Field(field, raw string, c *country.Country, lang string) string {
	switch field {
	case models.FieldNationalID, models.FieldPostalCode:
		return LocalizeDigits(raw, lang)
	case models.FieldPhone:
		return Phone(raw, c, lang)
	case models.FieldDateOfBirth:
		return Date(raw, lang)
	case models.FieldDependents:
		return Number(raw, lang)
	case models.FieldMonthlyIncome:
		if c != nil {
			return Currency(raw, c.Currency, lang)
		}
		return Number(raw, lang)
	case models.FieldCountry:
		if c != nil {
			return c.Name(lang)
		}
	case models.FieldRegion:
		if c != nil {
			if r, ok := c.Region(raw); ok {
				return r.Name(lang)
			}
		}
	}
	return raw
}
