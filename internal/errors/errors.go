package errors

import (
	"errors"
	"fmt"
)

// Domain-specific error types
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrAttachmentNotFound indicates the attachment is not in the local index
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrDocumentNotFound indicates the owning document could not be loaded
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnknownDocType indicates no loader is registered for a document type
	ErrUnknownDocType = errors.New("unknown document type")

	// ErrMalformedRevision indicates a revision token without a numeric sequence
	ErrMalformedRevision = errors.New("malformed revision")

	// ErrUploadRejected indicates the database answered an upload with a non-2xx status
	ErrUploadRejected = errors.New("upload rejected")

	// ErrTransport indicates the request never produced a response
	ErrTransport = errors.New("transport error")

	// ErrUnauthorized indicates unauthorized access
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal server error")
)

// Error codes for API responses
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeUnknownDocType = "UNKNOWN_DOC_TYPE"
	CodeMalformedRev   = "MALFORMED_REVISION"
	CodeUploadRejected = "UPLOAD_REJECTED"
	CodeTransportError = "TRANSPORT_ERROR"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternalError  = "INTERNAL_ERROR"
)

// AppError represents an application error with context
type AppError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(err error, message string, code string) *AppError {
	return &AppError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// UploadError carries the HTTP status of a rejected upload
type UploadError struct {
	Status int
	Body   string
}

// Error implements the error interface
func (e *UploadError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload rejected with status %d", e.Status)
	}
	return fmt.Sprintf("upload rejected with status %d: %s", e.Status, e.Body)
}

// Unwrap lets errors.Is match ErrUploadRejected
func (e *UploadError) Unwrap() error {
	return ErrUploadRejected
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAttachmentNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// GetErrorCode returns the appropriate error code for an error
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}

	switch {
	case IsNotFound(err):
		return CodeNotFound
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrUnknownDocType):
		return CodeUnknownDocType
	case errors.Is(err, ErrMalformedRevision):
		return CodeMalformedRev
	case errors.Is(err, ErrUploadRejected):
		return CodeUploadRejected
	case errors.Is(err, ErrTransport):
		return CodeTransportError
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	default:
		return CodeInternalError
	}
}
