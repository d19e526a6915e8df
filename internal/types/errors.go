package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All domain constructors and handlers MUST use these constants instead of
// hardcoded strings.
const (
	// Validation (400) -- malformed input to a constructor or factory.
	ErrCodeValidationInvalidEmail      ErrorCode = "validation_invalid_email"
	ErrCodeValidationInvalidPhone      ErrorCode = "validation_invalid_phone_number"
	ErrCodeValidationInvalidWebhook    ErrorCode = "validation_invalid_webhook_url"
	ErrCodeValidationUnsupportedScheme ErrorCode = "validation_unsupported_url_scheme"
	ErrCodeValidationEmptyValue        ErrorCode = "validation_empty_value"
	ErrCodeValidationUnknownChannel    ErrorCode = "validation_unknown_channel"
	ErrCodeValidationMissingField      ErrorCode = "validation_missing_required_field"
	ErrCodeValidationMissingSubject    ErrorCode = "validation_missing_subject"
	ErrCodeValidationEmptyContent      ErrorCode = "validation_empty_content"
	ErrCodeValidationNilRecipient      ErrorCode = "validation_nil_recipient"
	ErrCodeValidationEmptyReason       ErrorCode = "validation_empty_reason"
	ErrCodeValidationInvalidAttempt    ErrorCode = "validation_invalid_attempt_number"
	ErrCodeValidationPastSchedule      ErrorCode = "validation_schedule_in_past"
	ErrCodeValidationInvalidBody       ErrorCode = "validation_invalid_request_body"
	ErrCodeValidationChannelMismatch   ErrorCode = "validation_channel_mismatch"

	// State (409) -- operation invoked while the entity is not in the
	// required state. The entity is always left unchanged.
	ErrCodeStateInvalidTransition ErrorCode = "state_invalid_transition"
	ErrCodeStateTemplateInactive  ErrorCode = "state_template_inactive"
	ErrCodeStateAttemptCompleted  ErrorCode = "state_attempt_completed"

	// Lookup (400) -- a referenced key is absent from supplied data.
	ErrCodeLookupMissingPlaceholder ErrorCode = "lookup_missing_placeholder"

	// Not Found (404)
	ErrCodeNotFoundNotification ErrorCode = "not_found_notification"
	ErrCodeNotFoundTemplate     ErrorCode = "not_found_template"
	ErrCodeNotFoundAttempt      ErrorCode = "not_found_delivery_attempt"

	// Conflict (409)
	ErrCodeConflictConcurrent     ErrorCode = "conflict_concurrent_modification"
	ErrCodeConflictTemplateName   ErrorCode = "conflict_template_name_exists"
	ErrCodeConflictAttemptNumber  ErrorCode = "conflict_attempt_number_exists"
	ErrCodeConflictRetryExhausted ErrorCode = "conflict_retry_budget_exhausted"

	// Limits (429)
	ErrCodeRateLimit ErrorCode = "rate_limit_exceeded"

	// Internal (500)
	ErrCodeInternalDB              ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected      ErrorCode = "internal_unexpected_error"
	ErrCodeInternalUnknownPriority ErrorCode = "internal_unknown_priority"
	ErrCodeInternalDispatch        ErrorCode = "internal_dispatch_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Used by the API layer to translate AppErrors into HTTP responses.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "state_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "lookup_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case s == string(ErrCodeRateLimit):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the service.
// All domain and handler errors should be expressed as AppError to enable
// consistent error formatting, HTTP status mapping, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// This is useful for adding context without mutating the original error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
