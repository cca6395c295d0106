package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAppError_CreatesErrorWithCorrectFields(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "custom message", CodeNotFound)

	assert.Equal(t, baseErr, appErr.Err)
	assert.Equal(t, "custom message", appErr.Message)
	assert.Equal(t, CodeNotFound, appErr.Code)
}

func TestAppError_Error_ReturnsBaseErrorWhenNoMessage(t *testing.T) {
	baseErr := errors.New("base error")
	appErr := NewAppError(baseErr, "", CodeNotFound)

	assert.Equal(t, "base error", appErr.Error())
	assert.Equal(t, baseErr, appErr.Unwrap())
}

func TestWrap_ReturnsNilForNilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	wrapped := Wrap(ErrAttachmentNotFound, "find att1")
	assert.ErrorIs(t, wrapped, ErrAttachmentNotFound)
	assert.Equal(t, "find att1: attachment not found", wrapped.Error())
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ErrNotFound", ErrNotFound, true},
		{"ErrAttachmentNotFound", ErrAttachmentNotFound, true},
		{"ErrDocumentNotFound", ErrDocumentNotFound, true},
		{"wrapped", Wrap(ErrAttachmentNotFound, "context"), true},
		{"unknown doc type", ErrUnknownDocType, false},
		{"other error", errors.New("other"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestUploadError_MatchesRejected(t *testing.T) {
	err := fmt.Errorf("put att1: %w", &UploadError{Status: 409, Body: `{"error":"conflict"}`})

	assert.ErrorIs(t, err, ErrUploadRejected)
	assert.Contains(t, err.Error(), "409")

	var uploadErr *UploadError
	assert.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, 409, uploadErr.Status)
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", ErrAttachmentNotFound, CodeNotFound},
		{"invalid input", Wrap(ErrInvalidInput, "ids"), CodeInvalidInput},
		{"unknown doc type", ErrUnknownDocType, CodeUnknownDocType},
		{"malformed revision", ErrMalformedRevision, CodeMalformedRev},
		{"rejected upload", &UploadError{Status: 500}, CodeUploadRejected},
		{"transport", Wrap(ErrTransport, "dial"), CodeTransportError},
		{"unauthorized", ErrUnauthorized, CodeUnauthorized},
		{"app error code wins", NewAppError(ErrNotFound, "gone", CodeInvalidInput), CodeInvalidInput},
		{"unknown", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorCode(tt.err))
		})
	}
}
