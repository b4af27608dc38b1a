// Package errors provides standardized error handling for the notification
// dispatch pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeNoFactoryFound   ErrorCode = "NO_FACTORY_FOUND"
	ErrCodeEmptyRecipients  ErrorCode = "EMPTY_RECIPIENTS"
	ErrCodeTransport        ErrorCode = "TRANSPORT_ERROR"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeMissingVariables ErrorCode = "MISSING_VARIABLES"
	ErrCodeEntityNotFound   ErrorCode = "ENTITY_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDirectoryFetchFailed     ErrorCode = "DIRECTORY_FETCH_FAILED"
	ErrCodeDispatchPublishFailed    ErrorCode = "DISPATCH_PUBLISH_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable payload validation error.
// Surfaced to the caller as a 4xx-equivalent.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Notification payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoFactoryFoundError creates a non-retryable unknown-channel error.
func NewNoFactoryFoundError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoFactoryFound,
		Message:   "No notification factory registered for channel",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmptyRecipientsError creates a non-retryable empty recipient set error.
func NewEmptyRecipientsError(scope, channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyRecipients,
		Message:   "Scope resolved to zero eligible recipients",
		Details:   fmt.Sprintf("scope: %s, channel: %s", scope, channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportError creates a provider transport failure. Batch-level
// transport failures abort the whole batch and are not retried in-process.
func NewTransportError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransport,
		Message:   "Provider transport failure",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template cache miss error.
func NewTemplateNotFoundError(templateID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in cache",
		Details:   fmt.Sprintf("templateId: %d", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingVariablesError creates a non-retryable required-variable error.
func NewMissingVariablesError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingVariables,
		Message:   "Required template variables are missing",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEntityNotFoundError creates a non-retryable lookup error.
func NewEntityNotFoundError(entity, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEntityNotFound,
		Message:   "Entity not found",
		Details:   fmt.Sprintf("%s: %s", entity, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDirectoryFetchFailedError creates a retryable user-directory error.
func NewDirectoryFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDirectoryFetchFailed,
		Message:   "User directory fetch failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchPublishFailedError creates a retryable queue publish error.
func NewDispatchPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchPublishFailed,
		Message:   "Dispatch command publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// AsStandardError unwraps err into a *StandardError if possible.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err is a StandardError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Code == code
	}
	return false
}

// IsRetryable reports whether err may be retried by the caller. Unknown
// errors are treated as non-retryable; redelivery is the responsibility of
// the message queue.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return false
}

// WithMetadata attaches metadata to a StandardError and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}
