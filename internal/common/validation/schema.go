// Package validation checks JSON request bodies against JSON schemas.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes reported in ValidationError.Code.
const (
	CodeRequired    = "REQUIRED_FIELD_MISSING"
	CodeInvalidType = "INVALID_TYPE"
	CodeInvalidEnum = "INVALID_ENUM_VALUE"
	CodeExtraField  = "EXTRA_FIELD"
	CodeMinLength   = "MIN_LENGTH_VIOLATION"
	CodeMaxLength   = "MAX_LENGTH_VIOLATION"
	CodeMalformed   = "MALFORMED_JSON"
	CodeInvalid     = "INVALID_VALUE"
)

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a raw JSON body. Errors are sorted by field.
func (s *Schema) Validate(body []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: "request body is not valid JSON",
			Code:    CodeMalformed,
		}}}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   fieldOf(re),
			Message: re.Description(),
			Code:    codeOf(re.Type()),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return &ValidationResult{Errors: errs}
}

// fieldOf names the offending property. Required and additional-property
// errors are reported on the parent, so the property comes from the details.
func fieldOf(re gojsonschema.ResultError) string {
	field := re.Field()
	if prop, ok := re.Details()["property"].(string); ok && prop != "" {
		if field == gojsonschema.STRING_CONTEXT_ROOT || field == "" {
			return prop
		}
		return field + "." + prop
	}
	return field
}

func codeOf(errType string) string {
	switch errType {
	case "required":
		return CodeRequired
	case "invalid_type":
		return CodeInvalidType
	case "enum":
		return CodeInvalidEnum
	case "additional_property_not_allowed":
		return CodeExtraField
	case "string_gte":
		return CodeMinLength
	case "string_lte":
		return CodeMaxLength
	}
	return CodeInvalid
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
