package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal   ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidMode      ErrorCode = "INVALID_MODE"
	ErrCodeInvalidKind      ErrorCode = "INVALID_KIND"

	ErrCodeKycInsufficient     ErrorCode = "KYC_INSUFFICIENT"
	ErrCodeAmountBelowMinimum  ErrorCode = "AMOUNT_BELOW_MINIMUM"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"

	ErrCodeDuplicateEvent          ErrorCode = "DUPLICATE_EVENT"
	ErrCodeUnknownEventType        ErrorCode = "UNKNOWN_EVENT_TYPE"
	ErrCodeTransactionNotFound     ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeInvalidTransactionState ErrorCode = "INVALID_TRANSACTION_STATE"

	ErrCodeCreatorNotFound ErrorCode = "CREATOR_NOT_FOUND"

	ErrCodePayoutNotFound     ErrorCode = "PAYOUT_NOT_FOUND"
	ErrCodeInvalidPayoutState ErrorCode = "INVALID_PAYOUT_STATE"
	ErrCodeGatewayTransfer    ErrorCode = "GATEWAY_TRANSFER_FAILED"

	ErrCodeLedgerInvariant ErrorCode = "LEDGER_INVARIANT_VIOLATION"
	ErrCodeNothingToRefund ErrorCode = "NOTHING_TO_REFUND"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewExternalError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewLedgerInvariantError marks a condition that must be unreachable in correct
// code: an entry group whose credits and debits do not sum to the same value.
// Processing of the offending transaction halts; it is never silently corrected.
func NewLedgerInvariantError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeLedgerInvariant,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

var (
	ErrInvalidAmount       = NewValidationError("amount must be a positive integer in minor units", ErrCodeInvalidAmount)
	ErrKycInsufficient     = NewForbiddenError("KYC level is insufficient for the requested payout mode", ErrCodeKycInsufficient)
	ErrAmountBelowMinimum  = NewValidationError("amount is below the platform minimum", ErrCodeAmountBelowMinimum)
	ErrInsufficientBalance = NewValidationError("available balance is insufficient", ErrCodeInsufficientBalance)
	ErrTransactionNotFound = NewNotFoundError("transaction not found", ErrCodeTransactionNotFound)
	ErrPayoutNotFound      = NewNotFoundError("payout not found", ErrCodePayoutNotFound)
	ErrInvalidPayoutState  = NewConflictError("payout is not in a state that allows this operation", ErrCodeInvalidPayoutState)
	ErrDuplicateEvent      = NewConflictError("event was already processed", ErrCodeDuplicateEvent)
	ErrNothingToRefund     = NewConflictError("reference has no unrefunded balance left", ErrCodeNothingToRefund)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
