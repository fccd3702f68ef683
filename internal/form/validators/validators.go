// Package validators checks and normalizes application form fields. Every
// function is pure: results depend only on the field, its value, the
// selected country and the injected clock.
package validators

import (
	"strings"
	"time"
	"unicode/utf8"

	"assistance-portal/internal/form/country"
	"assistance-portal/internal/form/format"
	"assistance-portal/internal/models"
)

// Validator validates fields against a country table.
type Validator struct {
	countries *country.Table
	now       func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the clock used for the date-of-birth check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New returns a Validator. A nil table selects the embedded default.
func New(countries *country.Table, opts ...Option) *Validator {
	if countries == nil {
		countries = country.Default()
	}
	v := &Validator{countries: countries, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Countries returns the table the validator uses.
func (v *Validator) Countries() *country.Table {
	return v.countries
}

// ValidateField checks one field. It returns nil when the value is acceptable.
func (v *Validator) ValidateField(field, value, countryCode string) *ValidationError {
	value = strings.TrimSpace(value)
	if value == "" {
		if isOptional(field) {
			return nil
		}
		return newError(field, CodeRequired)
	}

	switch field {
	case models.FieldNationalID:
		c := v.countries.Get(countryCode)
		if c == nil {
			// No format to check against, so the ID cannot be accepted yet.
			return newError(field, CodeRequired)
		}
		if !c.NationalID.Match(value) {
			return newError(field, CodeInvalidID)
		}

	case models.FieldPhone:
		c := v.countries.Get(countryCode)
		if c == nil {
			return newError(field, CodeRequired)
		}
		if !c.Phone.Match(value) {
			return newError(field, CodeInvalidPhone)
		}

	case models.FieldEmail:
		if !emailRegex.MatchString(value) {
			return newError(field, CodeInvalidEmail)
		}

	case models.FieldDependents, models.FieldMonthlyIncome:
		if !numberRegex.MatchString(value) {
			return newError(field, CodeInvalidNumber)
		}

	case models.FieldDateOfBirth:
		dob, err := time.Parse(format.DateLayout, value)
		if err != nil || dob.After(v.now()) {
			return newError(field, CodeInvalidDate)
		}

	case models.FieldGender:
		return checkOption(field, value, GenderOptions)
	case models.FieldMaritalStatus:
		return checkOption(field, value, MaritalStatusOptions)
	case models.FieldEmploymentStatus:
		return checkOption(field, value, EmploymentStatusOptions)
	case models.FieldHousingStatus:
		return checkOption(field, value, HousingStatusOptions)

	case models.FieldCountry:
		if v.countries.Get(value) == nil {
			return newError(field, CodeInvalidOption)
		}

	case models.FieldRegion:
		c := v.countries.Get(countryCode)
		if c == nil || !c.HasRegion(value) {
			return newError(field, CodeInvalidOption)
		}

	case models.FieldFinancialSituation:
		if utf8.RuneCountInString(value) < MinFinancialSituationLength {
			return newError(field, CodeNeedsMoreDetail)
		}
	}

	return nil
}

func checkOption(field, value string, options []string) *ValidationError {
	for _, o := range options {
		if o == value {
			return nil
		}
	}
	return newError(field, CodeInvalidOption)
}

func isOptional(field string) bool {
	for _, s := range Steps {
		for _, f := range s.Fields {
			if f.Name == field {
				return !f.Required
			}
		}
	}
	return false
}

// ValidateStep returns every failing field of a step in field order. The
// review step validates the whole document.
func (v *Validator) ValidateStep(step int, doc *models.ApplicationDocument) []ValidationError {
	if step == StepReview {
		return v.ValidateDocument(doc)
	}
	def, ok := Step(step)
	if !ok {
		return nil
	}

	var errs []ValidationError
	for _, f := range def.Fields {
		if err := v.ValidateField(f.Name, doc.Value(f.Name), doc.Country); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// ValidateDocument validates all data steps in order.
func (v *Validator) ValidateDocument(doc *models.ApplicationDocument) []ValidationError {
	var errs []ValidationError
	for _, s := range Steps {
		if s.Number == StepReview {
			continue
		}
		errs = append(errs, v.ValidateStep(s.Number, doc)...)
	}
	return errs
}

// StepComplete reports whether a step passes validation.
func (v *Validator) StepComplete(step int, doc *models.ApplicationDocument) bool {
	return len(v.ValidateStep(step, doc)) == 0
}

// Normalize returns the stored form of a raw input value: trimmed, native
// digits folded to ASCII and ID/phone re-masked for the country. ID and phone
// input that does not fit the mask is kept as typed so validation rejects it.
func (v *Validator) Normalize(field, raw, countryCode string) string {
	value := strings.TrimSpace(raw)

	switch field {
	case models.FieldNationalID, models.FieldPhone:
		value = format.ToLatinDigits(value)
		c := v.countries.Get(countryCode)
		if c == nil {
			return value
		}
		mask := c.NationalID.Mask
		if field == models.FieldPhone {
			mask = c.Phone.Mask
			// Drop a leading dial code typed together with the number.
			if dial := format.Digits(c.Phone.DialCode); dial != "" {
				digits := format.Digits(value)
				if strings.HasPrefix(value, "+") && strings.HasPrefix(digits, dial) {
					value = digits[len(dial):]
				}
			}
		}
		if format.Digits(value) == "" || !format.Maskable(value, mask) {
			return value
		}
		return format.ApplyMask(value, mask)

	case models.FieldDependents, models.FieldMonthlyIncome, models.FieldDateOfBirth, models.FieldPostalCode:
		return format.ToLatinDigits(value)

	case models.FieldFullNameEn, models.FieldFullNameAr, models.FieldStreet, models.FieldCity:
		return spacesRegex.ReplaceAllString(value, " ")

	case models.FieldEmail:
		return strings.ToLower(value)
	}

	return value
}

// FirstError returns the first error or nil.
func FirstError(errs []ValidationError) *ValidationError {
	if len(errs) == 0 {
		return nil
	}
	return &errs[0]
}

// ErrorsForField filters errs to one field.
func ErrorsForField(errs []ValidationError, field string) []ValidationError {
	var out []ValidationError
	for _, e := range errs {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}
