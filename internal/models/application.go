// internal/models/application.go
package models

import (
	"strings"
	"time"
)

// Field keys of the application document. They double as JSON keys.
const (
	FieldFullNameEn              = "fullNameEn"
	FieldFullNameAr              = "fullNameAr"
	FieldNationalID              = "nationalId"
	FieldDateOfBirth             = "dateOfBirth"
	FieldGender                  = "gender"
	FieldStreet                  = "street"
	FieldCity                    = "city"
	FieldRegion                  = "region"
	FieldCountry                 = "country"
	FieldPostalCode              = "postalCode"
	FieldPhone                   = "phone"
	FieldEmail                   = "email"
	FieldMaritalStatus           = "maritalStatus"
	FieldDependents              = "dependents"
	FieldEmploymentStatus        = "employmentStatus"
	FieldMonthlyIncome           = "monthlyIncome"
	FieldHousingStatus           = "housingStatus"
	FieldFinancialSituation      = "financialSituation"
	FieldEmploymentCircumstances = "employmentCircumstances"
	FieldReasonForApplying       = "reasonForApplying"
)

// ApplicationDocument is the working copy of the form. Every value is kept as
// text; numeric fields are parsed only when validated.
type ApplicationDocument struct {
	FullNameEn  string `json:"fullNameEn"`
	FullNameAr  string `json:"fullNameAr"`
	NationalID  string `json:"nationalId"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	PostalCode  string `json:"postalCode"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`

	MaritalStatus    string `json:"maritalStatus"`
	Dependents       string `json:"dependents"`
	EmploymentStatus string `json:"employmentStatus"`
	MonthlyIncome    string `json:"monthlyIncome"`
	HousingStatus    string `json:"housingStatus"`

	FinancialSituation      string `json:"financialSituation"`
	EmploymentCircumstances string `json:"employmentCircumstances"`
	ReasonForApplying       string `json:"reasonForApplying"`
}

func (d *ApplicationDocument) fields() map[string]*string {
	return map[string]*string{
		FieldFullNameEn:              &d.FullNameEn,
		FieldFullNameAr:              &d.FullNameAr,
		FieldNationalID:              &d.NationalID,
		FieldDateOfBirth:             &d.DateOfBirth,
		FieldGender:                  &d.Gender,
		FieldStreet:                  &d.Street,
		FieldCity:                    &d.City,
		FieldRegion:                  &d.Region,
		FieldCountry:                 &d.Country,
		FieldPostalCode:              &d.PostalCode,
		FieldPhone:                   &d.Phone,
		FieldEmail:                   &d.Email,
		FieldMaritalStatus:           &d.MaritalStatus,
		FieldDependents:              &d.Dependents,
		FieldEmploymentStatus:        &d.EmploymentStatus,
		FieldMonthlyIncome:           &d.MonthlyIncome,
		FieldHousingStatus:           &d.HousingStatus,
		FieldFinancialSituation:      &d.FinancialSituation,
		FieldEmploymentCircumstances: &d.EmploymentCircumstances,
		FieldReasonForApplying:       &d.ReasonForApplying,
	}
}

// Get returns the value of a field and whether the field exists.
func (d *ApplicationDocument) Get(field string) (string, bool) {
	p, ok := d.fields()[field]
	if !ok {
		return "", false
	}
	return *p, true
}

// Value returns the value of a field, or "" for unknown fields.
func (d *ApplicationDocument) Value(field string) string {
	v, _ := d.Get(field)
	return v
}

// Set assigns a field. It reports false for unknown fields.
func (d *ApplicationDocument) Set(field, value string) bool {
	p, ok := d.fields()[field]
	if !ok {
		return false
	}
	*p = value
	return true
}

// IsEmpty reports whether no field holds a non-blank value.
func (d *ApplicationDocument) IsEmpty() bool {
	for _, p := range d.fields() {
		if strings.TrimSpace(*p) != "" {
			return false
		}
	}
	return true
}

// Application is a submitted document as recorded by the back office.
type Application struct {
	Reference   string              `json:"reference"`
	Document    ApplicationDocument `json:"document"`
	Language    string              `json:"language"`
	Status      string              `json:"status"`
	SubmittedAt time.Time           `json:"submittedAt"`
}

// Application statuses.
const (
	ApplicationStatusSubmitted   = "submitted"
	ApplicationStatusUnderReview = "under_review"
)

// SubmissionReceipt acknowledges an accepted application.
type SubmissionReceipt struct {
	Reference   string    `json:"reference"`
	SubmittedAt time.Time `json:"submittedAt"`
}
