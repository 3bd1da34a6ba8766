package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeStitch, "short write")
	assert.Equal(t, "STITCH_FAILED: short write", err.Error())

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, ErrCodeStitch, "short write")
	assert.Equal(t, "STITCH_FAILED: short write (caused by: disk full)", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestStageError_KeepsCauseVerbatim(t *testing.T) {
	cause := stderrors.New("503 from store")
	err := StageError(ErrCodeUpload, "upload", cause)

	assert.Same(t, cause, stderrors.Unwrap(err))
	assert.Equal(t, "upload", err.Details["stage"])
}

func TestIs_FindsWrappedAppError(t *testing.T) {
	inner := MissingFieldError("series.name")
	outer := fmt.Errorf("loading config: %w", inner)

	assert.True(t, Is(outer, ErrCodeMissingField))
	assert.False(t, Is(outer, ErrCodeNotFound))
	assert.Equal(t, ErrCodeMissingField, GetCode(outer))

	appErr, ok := As(outer)
	require.True(t, ok)
	assert.Equal(t, "series.name", appErr.Details["field"])
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPCode(stderrors.New("boom")))
}

func TestGetHTTPCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRunLocked, http.StatusConflict},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeMissingField, http.StatusBadRequest},
		{ErrCodeUpload, http.StatusBadGateway},
		{ErrCodeStitch, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPCode(New(tt.code, "x")))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"transient store error", ExternalServiceError("store", stderrors.New("reset")), ClassTransient},
		{"missing config", MissingFieldError("webhook.url"), ClassFatalSetup},
		{"capture cannot start", New(ErrCodeCaptureStart, "mkdir"), ClassFatalSetup},
		{"locked series", New(ErrCodeRunLocked, "held"), ClassFatalSetup},
		{"stitch io", New(ErrCodeStitch, "read"), ClassFatalIntegrity},
		{"empty capture", New(ErrCodeEmptyCapture, "no fragments"), ClassBoundary},
		{"upload exhausted", New(ErrCodeUpload, "gave up"), ClassFatal},
		{"plain error", stderrors.New("boom"), ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
