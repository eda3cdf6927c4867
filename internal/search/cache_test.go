package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryCacheRoundTrip(t *testing.T) {
	qc := NewQueryCache(4)
	key := Key("sess-1", "ctx-1", "regex", "opts-digest")
	resp := Response{Matches: []Match{{Line: 1, Text: "cat"}}, Truncated: false}

	qc.Put(key, "content-hash", resp)
	got, ok := qc.Get(key, "content-hash")
	assert.True(t, ok)
	assert.Equal(t, resp, got)
}

func TestQueryCacheMissesOnStaleContentHash(t *testing.T) {
	qc := NewQueryCache(4)
	key := Key("sess-1", "ctx-1", "find_all", "opts-digest")
	qc.Put(key, "hash-a", Response{Matches: nil})

	_, ok := qc.Get(key, "hash-b")
	assert.False(t, ok, "edits to the underlying context must invalidate cached query results")
}
