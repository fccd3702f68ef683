package validators

import (
	"fmt"
	"regexp"
)

// Code identifies why a field failed validation.
type Code string

const (
	CodeRequired        Code = "REQUIRED"
	CodeInvalidID       Code = "INVALID_ID"
	CodeInvalidPhone    Code = "INVALID_PHONE"
	CodeInvalidEmail    Code = "INVALID_EMAIL"
	CodeInvalidNumber   Code = "INVALID_NUMBER"
	CodeInvalidOption   Code = "INVALID_OPTION"
	CodeInvalidDate     Code = "INVALID_DATE"
	CodeNeedsMoreDetail Code = "NEEDS_MORE_DETAIL"
)

// MinFinancialSituationLength is the minimum narrative length in characters.
const MinFinancialSituationLength = 50

// ValidationError is a user-correctable problem with one field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

var messages = map[Code]string{
	CodeRequired:        "This field is required",
	CodeInvalidID:       "National ID does not match the format for the selected country",
	CodeInvalidPhone:    "Phone number does not match the format for the selected country",
	CodeInvalidEmail:    "Invalid email format",
	CodeInvalidNumber:   "Enter digits only",
	CodeInvalidOption:   "Select one of the available options",
	CodeInvalidDate:     "Enter a valid date in the past",
	CodeNeedsMoreDetail: "Please describe your situation in at least 50 characters",
}

func newError(field string, code Code) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: messages[code]}
}

// Option sets of the enumerated fields.
var (
	GenderOptions           = []string{"male", "female"}
	MaritalStatusOptions    = []string{"single", "married", "divorced", "widowed"}
	EmploymentStatusOptions = []string{"employed", "selfEmployed", "unemployed", "retired", "student"}
	HousingStatusOptions    = []string{"owned", "rented", "family", "other"}
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	numberRegex = regexp.MustCompile(`^\d+$`)
	spacesRegex = regexp.MustCompile(`\s+`)
)
