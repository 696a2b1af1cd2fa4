package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrAuthFailed      ErrorType = "AUTH_FAILED"
	ErrNonce           ErrorType = "NONCE_ERROR"
	ErrInvalidRequest  ErrorType = "INVALID_REQUEST"
	ErrInternal        ErrorType = "INTERNAL_ERROR"
	ErrNotFound        ErrorType = "NOT_FOUND"
	ErrReadOnly        ErrorType = "READ_ONLY"
	ErrTooManyRequests ErrorType = "RATE_LIMITED"

	ErrIdempotencyKeyReused ErrorType = "IDEMPOTENCY_KEY_REUSED"

	// Config
	ErrConfigNotInitialized              ErrorType = "CONFIG_NOT_INITIALIZED"
	ErrConfigAlreadyInitialized          ErrorType = "CONFIG_ALREADY_INITIALIZED"
	ErrInvalidAdminPubkey                ErrorType = "INVALID_ADMIN_PUBKEY"
	ErrNewAdminPubkeyMismatch            ErrorType = "NEW_ADMIN_PUBKEY_MISMATCH"
	ErrNewFeeVaultPubkeyMismatch         ErrorType = "NEW_FEE_VAULT_PUBKEY_MISMATCH"
	ErrNewDestinationVaultPubkeyMismatch ErrorType = "NEW_DESTINATION_VAULT_PUBKEY_MISMATCH"
	ErrTooManyPaymentTokens              ErrorType = "TOO_MANY_PAYMENT_TOKENS"
	ErrInvalidFeeBps                     ErrorType = "INVALID_FEE_BPS"

	// Booking payments
	ErrForbidden              ErrorType = "FORBIDDEN"
	ErrTokenNotAllowed        ErrorType = "TOKEN_NOT_ALLOWED"
	ErrOverflow               ErrorType = "OVERFLOW"
	ErrAlreadySettled         ErrorType = "ALREADY_SETTLED"
	ErrBookingPaymentConflict ErrorType = "BOOKING_PAYMENT_CONFLICT"

	// Token accounts
	ErrInsufficientFunds    ErrorType = "INSUFFICIENT_FUNDS"
	ErrTokenAccountNotFound ErrorType = "TOKEN_ACCOUNT_NOT_FOUND"
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

func NewForbidden(msg string) *AppError {
	return New(ErrForbidden, msg, nil)
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

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest, ErrTokenNotAllowed, ErrTooManyPaymentTokens, ErrInvalidFeeBps:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrForbidden, ErrInvalidAdminPubkey, ErrNewAdminPubkeyMismatch,
		ErrNewFeeVaultPubkeyMismatch, ErrNewDestinationVaultPubkeyMismatch, ErrReadOnly:
		return http.StatusForbidden
	case ErrNonce, ErrAlreadySettled, ErrBookingPaymentConflict, ErrConfigAlreadyInitialized:
		return http.StatusConflict
	case ErrOverflow, ErrInsufficientFunds, ErrIdempotencyKeyReused:
		return http.StatusUnprocessableEntity
	case ErrNotFound, ErrTokenAccountNotFound, ErrConfigNotInitialized:
		return http.StatusNotFound
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrNonce:
		return "Sign the request again with a higher nonce."
	case ErrAuthFailed:
		return "Check the signer key and request signature."
	case ErrAlreadySettled:
		return "The booking payment is already settled; treat the settlement as done."
	case ErrTokenNotAllowed:
		return "Use one of the allowed payment tokens from GET /v1/config."
	case ErrNewAdminPubkeyMismatch, ErrNewFeeVaultPubkeyMismatch, ErrNewDestinationVaultPubkeyMismatch:
		return "Repeat the new key in the confirm block exactly."
	case ErrConfigNotInitialized:
		return "Initialize the config first."
	case ErrInsufficientFunds:
		return "Fund the payer token account and retry."
	case ErrIdempotencyKeyReused:
		return "Use a new X-Idempotency-Key for each distinct request."
	default:
		return ""
	}
}
