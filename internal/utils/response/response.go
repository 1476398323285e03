// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Successful responses and most errors share one envelope:
//
//	{ "status": "success", "data": ... }
//	{ "status": "error", "message": "..." | { "field": ["..."] } }
//
// A missing worker is reported with the bare shape { "error": "..." }.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Status string constants: a typo is caught by the compiler rather than
// silently sent to clients.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the standard envelope. Exactly one of Data and Message is set.
type Response struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message any    `json:"message,omitempty"`
}

// NotFoundResponse is the body of a 404.
type NotFoundResponse struct {
	Error string `json:"error"`
}

// FieldErrors maps a JSON field name to its error messages.
type FieldErrors map[string][]string

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// Header() → WriteHeader() → body writes: once WriteHeader is called the
// headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// NoContent writes a 204 with an empty body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Success(data any) Response {
	return Response{Status: StatusSuccess, Data: data}
}

// Error wraps a message string or a FieldErrors map.
func Error(message any) Response {
	return Response{Status: StatusError, Message: message}
}

// GeneralError wraps any Go error into the error envelope.
func GeneralError(err error) Response {
	return Error(err.Error())
}

func NotFound(message string) NotFoundResponse {
	return NotFoundResponse{Error: message}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts validator.FieldError values into FieldErrors,
// one readable sentence per failed rule.
//
// Example output:
//
//	{ "name": ["This field may not be blank."], "email": ["Enter a valid email address."] }
//
// Field names are whatever the validator reports, so register a tag name
// func to get JSON names instead of Go names.
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) FieldErrors {
	fields := FieldErrors{}

	for _, e := range errs {
		switch e.Tag() {
		case "required":
			fields.Add(e.Field(), "This field is required.")
		case "notblank":
			fields.Add(e.Field(), "This field may not be blank.")
		case "email":
			fields.Add(e.Field(), "Enter a valid email address.")
		case "max":
			fields.Add(e.Field(),
				fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param()))
		default:
			fields.Add(e.Field(), "This field is invalid.")
		}
	}

	return fields
}
