package observability

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCapturingLogger(level LogLevel) (*StandardLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := &StandardLogger{prefix: "test", level: level, out: log.New(&buf, "", 0)}
	return l, &buf
}

func TestStandardLoggerFiltersBelowLevel(t *testing.T) {
	l, buf := newCapturingLogger(LevelWarn)
	l.Info("should not appear", nil)
	assert.Empty(t, buf.String())

	l.Warn("should appear", nil)
	assert.Contains(t, buf.String(), "should appear")
}

func TestStandardLoggerIncludesPrefixAndFields(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	l.Info("message", map[string]interface{}{"key": "value"})

	out := buf.String()
	assert.Contains(t, out, "[test]")
	assert.Contains(t, out, "message")
	assert.Contains(t, out, "key=value")
}

func TestWithMergesFieldsWithoutMutatingParent(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	child := l.With(map[string]interface{}{"request": "abc"})

	child.Info("hello", nil)
	assert.Contains(t, buf.String(), "request=abc")

	buf.Reset()
	l.Info("hello again", nil)
	assert.NotContains(t, buf.String(), "request=abc")
}

func TestWithPrefixNestsDotSeparated(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	child := l.WithPrefix("child")
	child.Info("msg", nil)
	assert.Contains(t, buf.String(), "[test.child]")
}

func TestFormattedHelpers(t *testing.T) {
	l, buf := newCapturingLogger(LevelDebug)
	l.Infof("count=%d", 3)
	assert.True(t, strings.Contains(buf.String(), "count=3"))
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	var l Logger = NewNoopLogger()
	l.Info("anything", map[string]interface{}{"a": 1})
	child := l.With(map[string]interface{}{"b": 2}).WithPrefix("x")
	child.Error("still nothing", nil)
}
