package common

import (
	"encoding/json"
	"net/http"
)

// InternalErrorMessage is the only detail clients see for unexpected failures.
const InternalErrorMessage = "Internal server error"

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// Envelope is the uniform response contract of the payment endpoints.
// Build it with Success or Failure rather than by hand.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// Success wraps data in a successful envelope.
func Success(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Failure wraps an error body in a failed envelope. A missing status defaults to 500.
func Failure(body ErrorBody) Envelope {
	if body.StatusCode == 0 {
		body.StatusCode = http.StatusInternalServerError
	}
	return Envelope{Success: false, Error: &body}
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders a failed envelope using the status carried by body.
func JSONError(w http.ResponseWriter, body ErrorBody) {
	env := Failure(body)
	JSON(w, env.Error.StatusCode, env)
}

// Error renders a failed envelope with just a status and message.
func Error(w http.ResponseWriter, status int, message string) {
	JSONError(w, ErrorBody{Message: message, StatusCode: status})
}

// InternalError renders the generic 500 envelope.
func InternalError(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, InternalErrorMessage)
}
