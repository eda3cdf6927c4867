package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopStoreEverySuccessWithoutPersisting(t *testing.T) {
	var s Store = NoopStore{}

	assert.NoError(t, s.Save("sess-1", "ctx-1", "content", nil, time.Now()))
	assert.NoError(t, s.SaveSnapshot("sess-1", "ctx-1", "content", nil, time.Now()))
	assert.NoError(t, s.DeleteContext("sess-1", "ctx-1"))
	assert.NoError(t, s.ClearChunkMetadata("sess-1", "ctx-1"))

	content, meta, createdAt, found, err := s.Load("sess-1", "ctx-1")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, content)
	assert.Nil(t, meta)
	assert.True(t, createdAt.IsZero())
}
