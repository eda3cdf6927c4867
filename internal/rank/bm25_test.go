package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxrelay/rlm-server/internal/decompose"
)

func TestRankOrdersByBM25Score(t *testing.T) {
	chunks := []decompose.Chunk{
		{StartOffset: 0, EndOffset: 11, Content: "the cat sat"},
		{StartOffset: 11, EndOffset: 20, Content: "dogs bark"},
		{StartOffset: 20, EndOffset: 40, Content: "the cat and the cat"},
	}
	idx := Build(chunks, "hash", TokenizerStandard)

	results := Rank(idx, "cat", TokenizerStandard, 0, 0)

	require.Len(t, results, 2, "the chunk without any occurrence of 'cat' must be filtered out")
	assert.Equal(t, 2, results[0].DocID, "the chunk with two occurrences ranks first")
	assert.Equal(t, 0, results[1].DocID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestRankRespectsTopK(t *testing.T) {
	chunks := []decompose.Chunk{
		{Content: "alpha alpha alpha"},
		{Content: "alpha alpha"},
		{Content: "alpha"},
	}
	idx := Build(chunks, "hash", TokenizerStandard)

	results := Rank(idx, "alpha", TokenizerStandard, 1, 0)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].DocID)
}

func TestRankFiltersBelowMinScore(t *testing.T) {
	chunks := []decompose.Chunk{
		{Content: "rare term appears once here"},
	}
	idx := Build(chunks, "hash", TokenizerStandard)

	results := Rank(idx, "term", TokenizerStandard, 0, 1000)
	assert.Empty(t, results)
}

func TestRankReturnsNilForEmptyQueryOrIndex(t *testing.T) {
	chunks := []decompose.Chunk{{Content: "something"}}
	idx := Build(chunks, "hash", TokenizerStandard)

	assert.Nil(t, Rank(idx, "", TokenizerStandard, 0, 0))
	assert.Nil(t, Rank(Build(nil, "hash", TokenizerStandard), "anything", TokenizerStandard, 0, 0))
}
