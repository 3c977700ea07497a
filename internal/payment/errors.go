package payment

import (
	"errors"
	"net/http"

	"github.com/noah-isme/payment-service/internal/common"
)

// ErrSignatureVerification is returned for every webhook that fails verification.
// The cause is deliberately not exposed.
var ErrSignatureVerification = errors.New("payment: webhook signature verification failed")

// PaymentError is the normalised failure of a provider call or a validation stage.
type PaymentError struct {
	Message    string
	Code       string
	StatusCode int
	cause      error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *PaymentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Body renders the client-facing shape of the error.
func (e *PaymentError) Body() common.ErrorBody {
	status := e.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return common.ErrorBody{Message: e.Message, Code: e.Code, StatusCode: status}
}

func validationError(message string) *PaymentError {
	return &PaymentError{Message: message, StatusCode: http.StatusBadRequest}
}

func internalError(cause error) *PaymentError {
	return &PaymentError{
		Message:    common.InternalErrorMessage,
		StatusCode: http.StatusInternalServerError,
		cause:      cause,
	}
}
