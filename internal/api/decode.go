package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/validation"
)

// fieldCodes maps the first failing schema property to the error code the
// client sees. Unlisted properties report INVALID_REQUEST.
type fieldCodes map[string]stderrors.ErrorCode

// readBody reads a size-limited request body. An empty body reads as "{}".
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest,
			"Request body could not be read", err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return []byte("{}"), nil
	}
	return body, nil
}

// decode validates body against schema and unmarshals it into v.
func decode(body []byte, schema *validation.Schema, codes fieldCodes, v interface{}) error {
	if schema != nil {
		result := schema.Validate(body)
		if !result.Valid {
			first := result.Errors[0]
			code, ok := codes[first.Field]
			if !ok {
				code = stderrors.ErrCodeInvalidRequest
			}
			return stderrors.NewValidationError(code, messageFor(code),
				fmt.Sprintf("%s: %s", first.Field, first.Message))
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest,
			messageFor(stderrors.ErrCodeInvalidRequest), err.Error())
	}
	return nil
}

func messageFor(code stderrors.ErrorCode) string {
	switch code {
	case stderrors.ErrCodeTextRequired:
		return "Text is required"
	case stderrors.ErrCodeInvalidLanguage:
		return "Language must be en or ar"
	case stderrors.ErrCodeInvalidDirection:
		return "Direction must be toArabic or toEnglish"
	}
	return "Request body is invalid"
}
