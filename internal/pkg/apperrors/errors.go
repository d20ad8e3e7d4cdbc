package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	// Protocol-level failures.
	ErrMalformedEnvelope   ErrorType = "MALFORMED_ENVELOPE"
	ErrFieldOverflow       ErrorType = "FIELD_OVERFLOW"
	ErrDerivationExhausted ErrorType = "DERIVATION_EXHAUSTED"

	// Adapter input-validation failures.
	ErrUnknownMarket        ErrorType = "UNKNOWN_MARKET"
	ErrUnsupportedTif       ErrorType = "UNSUPPORTED_TIF"
	ErrInvalidFaucetRequest ErrorType = "INVALID_FAUCET_REQUEST"

	// Gateway-level failures.
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is, or wraps, an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrMalformedEnvelope, ErrFieldOverflow, ErrUnknownMarket,
		ErrUnsupportedTif, ErrInvalidFaucetRequest, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrDerivationExhausted:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrMalformedEnvelope:
		return "Re-encode the envelope; the byte layout is fixed per protocol version."
	case ErrUnknownMarket:
		return "Check the market symbol or index against the registry."
	case ErrUnsupportedTif:
		return "Use one of Gtc, Ioc, Alo."
	case ErrFieldOverflow:
		return "Reduce the field value to fit its declared width."
	case ErrAuthFailed:
		return "Check API keys."
	case ErrDerivationExhausted:
		return "Check the program id; this indicates a fatal configuration error."
	default:
		return ""
	}
}
