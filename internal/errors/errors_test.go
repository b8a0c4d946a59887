package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityString(t *testing.T) {
	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestPreviewErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewTransportError("conversion request failed", cause).WithPath("/a/b.slim")

	assert.Equal(t, "[ERR_TRANSPORT] /a/b.slim conversion request failed: connection refused", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, stderrors.Is(err, cause))
}

func TestPreviewErrorIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewServiceError("bad syntax"))

	assert.True(t, stderrors.Is(err, NewServiceError("anything")))
	assert.False(t, stderrors.Is(err, NewMalformedError("x", nil)))
}

func TestWithContext(t *testing.T) {
	err := NewValidationError(ErrCodeInvalidPath, "bad").WithContext("path", "x").WithContext("n", 1)

	assert.Equal(t, "x", err.Context["path"])
	assert.Equal(t, 1, err.Context["n"])
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"transport shows cause verbatim", NewTransportError("request failed", stderrors.New("dial tcp: connection refused")), "dial tcp: connection refused"},
		{"transport without cause", NewTransportError("timeout", nil), "timeout"},
		{"service message", NewServiceError("bad syntax"), "bad syntax"},
		{"malformed", NewMalformedError("Unable to generate slim", nil), "Unable to generate slim"},
		{"wrapped service", fmt.Errorf("outer: %w", NewServiceError("inner")), "inner"},
		{"foreign", stderrors.New("plain"), "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UserMessage(tt.err))
		})
	}
}

func TestTypeOfAndRecoverable(t *testing.T) {
	assert.Equal(t, ErrorTypeService, TypeOf(NewServiceError("x")))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("x")))

	assert.True(t, IsRecoverable(NewTransportError("x", nil)))
	assert.False(t, IsRecoverable(NewConfigError("x", nil)))
	assert.False(t, IsRecoverable(stderrors.New("x")))
}

type capturingLogger struct {
	errors []string
	warns  []string
}

func (l *capturingLogger) Error(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.errors = append(l.errors, msg)
}

func (l *capturingLogger) Warn(ctx context.Context, err error, msg string, fields ...interface{}) {
	l.warns = append(l.warns, msg)
}

type capturingNotifier struct {
	notified []*PreviewError
}

func (n *capturingNotifier) NotifyError(ctx context.Context, err *PreviewError) error {
	n.notified = append(n.notified, err)
	return nil
}

func TestErrorHandler(t *testing.T) {
	logger := &capturingLogger{}
	notifier := &capturingNotifier{}
	handler := NewErrorHandler(logger, notifier)
	ctx := context.Background()

	handler.Handle(ctx, nil)
	handler.Handle(ctx, NewServiceError("bad syntax"))
	handler.Handle(ctx, NewValidationError(ErrCodeInvalidPath, "bad path"))
	handler.Handle(ctx, NewInternalError("boom", nil))
	handler.Handle(ctx, stderrors.New("plain"))

	assert.Equal(t, []string{"Conversion failed", "Validation error occurred"}, logger.warns)
	assert.Equal(t, []string{"Error occurred", "Unhandled error occurred"}, logger.errors)
	require.Len(t, notifier.notified, 3)
	assert.Equal(t, "bad syntax", notifier.notified[0].Message)
	assert.Equal(t, "bad path", notifier.notified[1].Message)
	assert.Equal(t, "boom", notifier.notified[2].Message)
}

func TestRecorder(t *testing.T) {
	recorder := NewRecorder(2)
	assert.False(t, recorder.HasErrors())

	_, ok := recorder.Last()
	assert.False(t, ok)

	recorder.Record(nil)
	recorder.Record(NewServiceError("first"))
	recorder.Record(NewTransportError("second", stderrors.New("refused")))
	recorder.Record(stderrors.New("third"))

	entries := recorder.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "refused", entries[0].Message)
	assert.Equal(t, ErrCodeTransport, entries[0].Code)
	assert.Equal(t, SeverityWarning, entries[0].Severity)
	assert.Equal(t, "third", entries[1].Message)
	assert.Equal(t, SeverityError, entries[1].Severity)

	last, ok := recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "third", last.Message)

	recorder.Clear()
	assert.False(t, recorder.HasErrors())
}
