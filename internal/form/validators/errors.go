package validators

import "fmt"

// DocumentError reports a document that failed full validation.
type DocumentError struct {
	Errors []ValidationError
}

func (e *DocumentError) Error() string {
	if len(e.Errors) == 0 {
		return "document invalid"
	}
	return fmt.Sprintf("document invalid: %d field errors, first %s", len(e.Errors), e.Errors[0].Error())
}
