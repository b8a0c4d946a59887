package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeService    ErrorType = "service"
	ErrorTypeMalformed  ErrorType = "malformed"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeHost       ErrorType = "host"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeTransport         = "ERR_TRANSPORT"
	ErrCodeServiceRejected   = "ERR_SERVICE"
	ErrCodeMalformedResponse = "ERR_MALFORMED_RESPONSE"
	ErrCodeResponseTooLarge  = "ERR_RESPONSE_TOO_LARGE"
	ErrCodeUnexpectedStatus  = "ERR_UNEXPECTED_STATUS"
	ErrCodeNoActiveEditor    = "ERR_NO_ACTIVE_EDITOR"
	ErrCodeUnsupportedKind   = "ERR_UNSUPPORTED_KIND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInvalidURL        = "ERR_INVALID_URL"
	ErrCodeInvalidPath       = "ERR_INVALID_PATH"
	ErrCodeHostFailure       = "ERR_HOST"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// PreviewError is a structured error type with context.
type PreviewError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *PreviewError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PreviewError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *PreviewError) Is(target error) bool {
	var t *PreviewError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *PreviewError) WithContext(key string, value interface{}) *PreviewError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the document path the error concerns.
func (e *PreviewError) WithPath(path string) *PreviewError {
	e.Path = path

	return e
}

// NewTransportError creates a network-level error. The cause text is what the
// user sees.
func NewTransportError(message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeTransport,
		Code:        ErrCodeTransport,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewServiceError wraps a message reported by the conversion service.
func NewServiceError(message string) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeService,
		Code:        ErrCodeServiceRejected,
		Message:     message,
		Recoverable: true,
	}
}

// NewMalformedError reports a response body the client could not interpret.
func NewMalformedError(message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeMalformed,
		Code:        ErrCodeMalformedResponse,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeConfig,
		Code:        ErrCodeConfigInvalid,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewHostError reports a failure in the editor host.
func NewHostError(message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeHost,
		Code:        ErrCodeHostFailure,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *PreviewError {
	return &PreviewError{
		Type:        ErrorTypeInternal,
		Code:        ErrCodeInternalError,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var pe *PreviewError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// TypeOf returns the error type, or ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var pe *PreviewError
	if errors.As(err, &pe) {
		return pe.Type
	}

	return ErrorTypeInternal
}

// UserMessage returns the text shown to the user for err.
//
// Transport errors show the underlying cause verbatim, service errors show
// the service's own message, everything else shows Message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var pe *PreviewError
	if !errors.As(err, &pe) {
		return err.Error()
	}

	switch pe.Type {
	case ErrorTypeTransport:
		if pe.Cause != nil {
			return pe.Cause.Error()
		}
		return pe.Message
	default:
		return pe.Message
	}
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger   Logger
	notifier Notifier
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Notifier receives errors that must reach the user.
type Notifier interface {
	NotifyError(ctx context.Context, err *PreviewError) error
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger, notifier Notifier) *ErrorHandler {
	return &ErrorHandler{
		logger:   logger,
		notifier: notifier,
	}
}

// Handle processes an error with appropriate logging and notifications.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var pe *PreviewError
	if errors.As(err, &pe) {
		h.handlePreviewError(ctx, pe)
	} else {
		h.handleGenericError(ctx, err)
	}
}

func (h *ErrorHandler) handlePreviewError(ctx context.Context, err *PreviewError) {
	switch err.Type {
	case ErrorTypeTransport, ErrorTypeService, ErrorTypeMalformed:
		if h.logger != nil {
			h.logger.Warn(ctx, err, "Conversion failed",
				"type", err.Type,
				"code", err.Code,
				"path", err.Path)
		}
		if h.notifier != nil {
			_ = h.notifier.NotifyError(ctx, err)
		}
	case ErrorTypeValidation:
		if h.logger != nil {
			h.logger.Warn(ctx, err, "Validation error occurred",
				"type", err.Type,
				"code", err.Code)
		}
		if h.notifier != nil {
			_ = h.notifier.NotifyError(ctx, err)
		}
	default:
		if h.logger != nil {
			h.logger.Error(ctx, err, "Error occurred",
				"type", err.Type,
				"code", err.Code,
				"path", err.Path)
		}
		if h.notifier != nil {
			_ = h.notifier.NotifyError(ctx, err)
		}
	}
}

func (h *ErrorHandler) handleGenericError(ctx context.Context, err error) {
	if h.logger != nil {
		h.logger.Error(ctx, err, "Unhandled error occurred")
	}
}

// ErrInvalidURL creates an endpoint URL validation error.
func ErrInvalidURL(raw string, cause error) *PreviewError {
	e := NewValidationError(ErrCodeInvalidURL, "invalid URL: "+raw)
	e.Cause = cause
	return e
}

// ErrInvalidPath creates a document path validation error.
func ErrInvalidPath(path string) *PreviewError {
	return NewValidationError(ErrCodeInvalidPath, "invalid path: "+path)
}

// ErrNoActiveEditor reports that the host has no active document.
func ErrNoActiveEditor() *PreviewError {
	return NewValidationError(ErrCodeNoActiveEditor, "no active editor")
}

// ErrUnsupportedKind reports a document kind the pipeline does not convert.
func ErrUnsupportedKind(kind string) *PreviewError {
	return NewValidationError(ErrCodeUnsupportedKind, "unsupported document kind: "+kind)
}
