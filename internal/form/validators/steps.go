package validators

import "assistance-portal/internal/models"

// Step numbers of the wizard.
const (
	StepPersonal  = 1
	StepHousehold = 2
	StepSituation = 3
	StepReview    = 4

	FirstStep = StepPersonal
	LastStep  = StepReview
)

// FieldSpec is one field of a step.
type FieldSpec struct {
	Name     string
	Required bool
}

// StepDefinition is an ordered page of the wizard.
type StepDefinition struct {
	Number   int
	Key      string
	LabelKey string
	Fields   []FieldSpec
}

// Steps lists the wizard pages in order. The review page has no own fields.
var Steps = []StepDefinition{
	{
		Number:   StepPersonal,
		Key:      "personal",
		LabelKey: "steps.personal",
		Fields: []FieldSpec{
			{models.FieldFullNameEn, true},
			{models.FieldFullNameAr, true},
			{models.FieldNationalID, true},
			{models.FieldDateOfBirth, true},
			{models.FieldGender, true},
			{models.FieldStreet, true},
			{models.FieldCity, true},
			{models.FieldRegion, true},
			{models.FieldCountry, true},
			{models.FieldPostalCode, false},
			{models.FieldPhone, true},
			{models.FieldEmail, true},
		},
	},
	{
		Number:   StepHousehold,
		Key:      "household",
		LabelKey: "steps.household",
		Fields: []FieldSpec{
			{models.FieldMaritalStatus, true},
			{models.FieldDependents, true},
			{models.FieldEmploymentStatus, true},
			{models.FieldMonthlyIncome, true},
			{models.FieldHousingStatus, true},
		},
	},
	{
		Number:   StepSituation,
		Key:      "situation",
		LabelKey: "steps.situation",
		Fields: []FieldSpec{
			{models.FieldFinancialSituation, true},
			{models.FieldEmploymentCircumstances, false},
			{models.FieldReasonForApplying, true},
		},
	},
	{
		Number:   StepReview,
		Key:      "review",
		LabelKey: "steps.review",
	},
}

// Step returns the definition for a step number.
func Step(n int) (StepDefinition, bool) {
	if n < FirstStep || n > LastStep {
		return StepDefinition{}, false
	}
	return Steps[n-1], true
}

// StepOf returns the step number that owns field, or 0.
func StepOf(field string) int {
	for _, s := range Steps {
		for _, f := range s.Fields {
			if f.Name == field {
				return s.Number
			}
		}
	}
	return 0
}

// IsKnownField reports whether field belongs to any step.
func IsKnownField(field string) bool {
	return StepOf(field) != 0
}
