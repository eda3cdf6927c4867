package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPutRoundTrip(t *testing.T) {
	c := New[string](4)
	c.Put("k1", "hash-a", "value-1")

	v, ok := c.Get("k1", "hash-a")
	require := assert.New(t)
	require.True(ok)
	require.Equal("value-1", v)
}

func TestGetMissOnHashMismatch(t *testing.T) {
	c := New[string](4)
	c.Put("k1", "hash-a", "value-1")

	_, ok := c.Get("k1", "hash-b")
	assert.False(t, ok, "a stale content hash must be treated as a miss")

	_, ok = c.Get("k1", "hash-a")
	assert.False(t, ok, "a detected stale entry is removed, not just hidden")
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int](16)
	prefix := Key("session-1", "context-1")
	c.Put(Key("session-1", "context-1", "fixed_size"), "h", 1)
	c.Put(Key("session-1", "context-1", "by_lines"), "h", 2)
	c.Put(Key("session-1", "context-2", "fixed_size"), "h", 3)

	c.InvalidatePrefix(prefix)

	_, ok := c.Get(Key("session-1", "context-1", "fixed_size"), "h")
	assert.False(t, ok)
	_, ok = c.Get(Key("session-1", "context-1", "by_lines"), "h")
	assert.False(t, ok)

	v, ok := c.Get(Key("session-1", "context-2", "fixed_size"), "h")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRUEviction(t *testing.T) {
	c := New[int](2)
	c.Put("a", "h", 1)
	c.Put("b", "h", 2)
	c.Put("c", "h", 3) // evicts "a"

	_, ok := c.Get("a", "h")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
