package apperror

import (
	"errors"
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

// Is matches on Code, so errors.Is(err, ErrLockContended()) works for any
// instance of the same failure class.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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

// CodeOf returns the AppError code carried by err, or "" when err is not an AppError.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

const (
	CodeLockContended      = "LOCK_001"
	CodeInsufficientFunds  = "PAY_001"
	CodeInvalidAmount      = "PAY_002"
	CodeBetLimitExceeded   = "PAY_003"
	CodeLedgerUnavailable  = "SYS_001"
	CodeCacheUnavailable   = "SYS_002"
	CodeGameStateNotFound  = "GAME_001"
	CodeInvalidBet         = "GAME_002"
	CodeInvalidCredentials = "AUTH_001"
	CodeUsernameExists     = "AUTH_002"
	CodeInvalidToken       = "AUTH_003"
	CodeAccountNotFound    = "AUTH_004"
	CodeAccountInactive    = "AUTH_005"
	CodeRateLimitExceeded  = "RATE_001"
	CodeBodyTooLarge       = "REQ_413"
)

// ---- Concurrency (LOCK) ----

// ErrLockContended means another action for the same user is in flight.
func ErrLockContended() *AppError {
	return New(CodeLockContended, "Another action is already in progress", http.StatusConflict)
}

// ---- Ledger Business Logic (PAY) ----

// ErrInsufficientFundsOrConflict covers both a short balance and a lost
// optimistic race; the caller should re-read state.
func ErrInsufficientFundsOrConflict() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Invalid amount", http.StatusBadRequest)
}

func ErrBetLimitExceeded() *AppError {
	return New(CodeBetLimitExceeded, "Bet exceeds table limit", http.StatusUnprocessableEntity)
}

// ---- Games (GAME) ----

// ErrGameStateNotFound is informational: no active round for the user.
func ErrGameStateNotFound() *AppError {
	return New(CodeGameStateNotFound, "No active game", http.StatusNotFound)
}

func ErrInvalidBet(message string) *AppError {
	return New(CodeInvalidBet, message, http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New(CodeUsernameExists, "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountNotFound() *AppError {
	return New(CodeAccountNotFound, "Account not found", http.StatusNotFound)
}

func ErrAccountInactive() *AppError {
	return New(CodeAccountInactive, "Account is suspended or closed", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

func ErrBodyTooLarge() *AppError {
	return New(CodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- System & Infrastructure (SYS) ----

// ErrLedgerUnavailable means the durable store failed; nothing was applied.
func ErrLedgerUnavailable(err error) *AppError {
	return Wrap(CodeLedgerUnavailable, "Service temporarily unavailable, please try again", http.StatusServiceUnavailable, err)
}

// ErrCacheUnavailable is never returned to clients; callers degrade to the durable tier.
func ErrCacheUnavailable(err error) *AppError {
	return Wrap(CodeCacheUnavailable, "Cache unavailable", http.StatusServiceUnavailable, err)
}

// InternalError wraps an unexpected failure.
func InternalError(err error) *AppError {
	return Wrap(CodeLedgerUnavailable, "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_002-style validation error.
func Validation(message string) *AppError {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}
