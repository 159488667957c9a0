package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeCancelled  ErrorType = "CANCELLED"
	ErrorTypeNetwork    ErrorType = "NETWORK_ERROR"
	ErrorTypeRejected   ErrorType = "REJECTED"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidRole      ErrorCode = "INVALID_ROLE"

	ErrCodeTaskNotFound    ErrorCode = "TASK_NOT_FOUND"
	ErrCodeMessageNotFound ErrorCode = "MESSAGE_NOT_FOUND"
	ErrCodeNotTaskOwner    ErrorCode = "NOT_TASK_OWNER"
	ErrCodeNotReceiver     ErrorCode = "NOT_MESSAGE_RECEIVER"
	ErrCodeInvalidStatus   ErrorCode = "INVALID_TASK_STATUS"
	ErrCodeActionForbidden ErrorCode = "ACTION_FORBIDDEN"

	ErrCodeNotConfirmed ErrorCode = "NOT_CONFIRMED"

	ErrCodeUnreachable    ErrorCode = "BACKEND_UNREACHABLE"
	ErrCodeBackendRefused ErrorCode = "BACKEND_REFUSED"
	ErrCodeBadResponse    ErrorCode = "BAD_RESPONSE"

	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)

// GenericErrorMessage is shown when neither the backend nor the caller supplies a better explanation.
const GenericErrorMessage = "Something went wrong. Please try again."

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
		if e.Message == "" {
			return e.Cause.Error()
		}
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

func NewCancelledError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeCancelled,
		Code:    ErrCodeNotConfirmed,
		Message: message,
	}
}

// NewNetworkError marks a request that never produced a backend answer.
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeNetwork,
		Code:    ErrCodeUnreachable,
		Message: message,
		Cause:   cause,
	}
}

// NewRejectedError carries the backend's own explanation in Message, verbatim.
func NewRejectedError(statusCode int, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRejected,
		Code:       ErrCodeBackendRefused,
		Message:    message,
		StatusCode: statusCode,
	}
}

// NewBadResponseError marks a 2xx response whose body could not be decoded.
func NewBadResponseError(cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeBadResponse,
		Message: "unexpected backend response",
		Cause:   cause,
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

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeRejected,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

var (
	ErrTaskNotFound      = NewNotFoundError("Task not found", ErrCodeTaskNotFound)
	ErrMessageNotFound   = NewNotFoundError("Message not found", ErrCodeMessageNotFound)
	ErrNotTaskOwner      = NewForbiddenError("Only the assigned employee can change this task", ErrCodeNotTaskOwner)
	ErrNotReceiver       = NewForbiddenError("Only the receiver can mark a message as read", ErrCodeNotReceiver)
	ErrInvalidTaskStatus = NewValidationError("Task cannot move to that status", ErrCodeInvalidStatus)
	ErrActionForbidden   = NewForbiddenError("Your role cannot perform this action", ErrCodeActionForbidden)
	ErrNotConfirmed      = NewCancelledError("Action cancelled")

	ErrInvalidToken = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

// UserMessage is the text shown to the user for a failed fetch or mutation.
// Backend rejections, validation and permission failures carry their own message;
// anything else falls back to the caller's generic text.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if fallback == "" {
		fallback = GenericErrorMessage
	}
	appErr, ok := IsAppError(err)
	if !ok {
		return fallback
	}
	switch appErr.Type {
	case ErrorTypeRejected, ErrorTypeValidation, ErrorTypeForbidden, ErrorTypeNotFound, ErrorTypeCancelled:
		if msg := appErr.GetDetailedMessage(); msg != "" {
			return msg
		}
	}
	return fallback
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
