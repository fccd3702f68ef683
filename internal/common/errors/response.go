package errors

import (
	"encoding/json"
	"net/http"
)

// Response is the JSON error body returned by the HTTP API.
type Response struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
}

// ToResponse renders the error body. Validation errors carry details;
// upstream failures carry the retryable flag instead.
func (e *StandardError) ToResponse() Response {
	resp := Response{Error: string(e.Code), Message: e.Message}
	if e.Status() == http.StatusBadRequest {
		resp.Details = e.Details
		return resp
	}
	retryable := e.Retryable
	resp.Retryable = &retryable
	return resp
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError normalizes err and writes it with its HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	stdErr := Normalize(err)
	WriteJSON(w, stdErr.Status(), stdErr.ToResponse())
}
