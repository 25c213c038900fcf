package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payment Tokens (TKN) ----

func ErrTokenNotFound() *AppError {
	return New("TKN_001", "Payment token not found", http.StatusNotFound)
}

func ErrTokenExpired() *AppError {
	return New("TKN_002", "Payment token has expired", http.StatusGone)
}

func ErrTokenAlreadyUsed() *AppError {
	return New("TKN_003", "Payment token has already been used", http.StatusConflict)
}

func ErrTokenCancelled() *AppError {
	return New("TKN_004", "Payment token has been cancelled", http.StatusConflict)
}

// ---- Settlement Business Logic (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in selected source", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrSelfPayment() *AppError {
	return New("PAY_003", "Cannot pay a token issued by your own account", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrUnbalancedItems() *AppError {
	return New("PAY_005", "Transaction line items do not net to zero", http.StatusInternalServerError)
}

func ErrBonusAlreadyClaimed() *AppError {
	return New("PAY_006", "Referral activation bonus already claimed", http.StatusConflict)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired session token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Caller is not entitled to act on this resource", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("PAY_002", message, http.StatusBadRequest)
}
