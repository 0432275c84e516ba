package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrStructural     ErrorType = "STRUCTURAL"
	ErrConsistency    ErrorType = "ORDER_PERMIT_MISMATCH"
	ErrExpired        ErrorType = "ORDER_EXPIRED"
	ErrReplay         ErrorType = "NONCE_USED"
	ErrUnauthorized   ErrorType = "EXECUTOR_UNAUTHORIZED"
	ErrSignature      ErrorType = "SIGNATURE_INVALID"
	ErrRoute          ErrorType = "ROUTE_INVALID"
	ErrVenue          ErrorType = "VENUE_INVALID"
	ErrOutcome        ErrorType = "INSUFFICIENT_OUTPUT"
	ErrReentrancy     ErrorType = "REENTRANT_CALL"
	ErrAdmin          ErrorType = "ADMIN_REJECT"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
)

// AppError is the standard error struct for the application. Reason is a
// stable machine-readable tag within a Type, fine-grained enough for an
// automated relayer to decide between retrying and discarding an order.
type AppError struct {
	Type       ErrorType `json:"code"`
	Reason     string    `json:"reason,omitempty"`
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

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

// Newf builds a tagged error; reason stays constant across occurrences while
// the message carries the offending value.
func Newf(errType ErrorType, reason, format string, args ...any) *AppError {
	e := New(errType, fmt.Sprintf(format, args...), nil)
	e.Reason = reason
	return e
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

// Reason extracts the fine-grained tag, empty for foreign errors.
func Reason(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Reason
	}
	return ""
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrStructural, ErrConsistency, ErrRoute, ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrSignature:
		return http.StatusUnauthorized
	case ErrAdmin:
		return http.StatusForbidden
	case ErrReplay:
		return http.StatusConflict
	case ErrExpired:
		return http.StatusGone
	case ErrOutcome, ErrVenue:
		return http.StatusUnprocessableEntity
	case ErrReentrancy:
		return http.StatusTooManyRequests
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrConsistency:
		return "Re-generate the permit from the signed order fields."
	case ErrExpired:
		return "Obtain a freshly signed order."
	case ErrReplay:
		return "The order was already settled or cancelled; discard it."
	case ErrRoute:
		return "Adjust the route path or fee tiers and resubmit."
	case ErrVenue:
		return "Pick a different venue or wait for re-activation."
	case ErrOutcome:
		return "Retry against a venue with better liquidity or a lower minimum."
	case ErrAdmin:
		return "Check admin credentials and parameter bounds."
	default:
		return ""
	}
}
