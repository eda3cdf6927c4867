package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	e := New(ContextNotFound, "missing")
	assert.Equal(t, "CONTEXT_NOT_FOUND: missing", e.Error())
	assert.False(t, e.Timestamp.IsZero())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(SystemInternal, cause, "wrapped")
	assert.ErrorIs(t, e, cause)
}

func TestWithDetailsAndTraceID(t *testing.T) {
	e := New(ValidationInvalidInput, "bad").WithDetails(map[string]interface{}{"field": "x"}).WithTraceID("t-1")
	assert.Equal(t, "x", e.Details["field"])
	assert.Equal(t, "t-1", e.TraceID)
}

func TestToEnvelope(t *testing.T) {
	t.Run("typed error", func(t *testing.T) {
		e := New(SessionNotFound, "nope")
		env := ToEnvelope(e)
		require.True(t, env.Error)
		assert.Equal(t, int(SessionNotFound), env.Code)
		assert.Equal(t, "nope", env.Message)
	})

	t.Run("untyped error maps to internal", func(t *testing.T) {
		env := ToEnvelope(errors.New("raw"))
		assert.Equal(t, int(SystemInternal), env.Code)
		assert.NotContains(t, env.Message, "raw")
	})
}

func TestIs(t *testing.T) {
	e := New(ExecutionTimeout, "timed out")
	assert.True(t, Is(e, ExecutionTimeout))
	assert.False(t, Is(e, ExecutionFailed))
	assert.False(t, Is(errors.New("plain"), ExecutionTimeout))
}
