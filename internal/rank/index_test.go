package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxrelay/rlm-server/internal/decompose"
)

func TestBuildComputesDocLengthsAndAvgLength(t *testing.T) {
	chunks := []decompose.Chunk{
		{Content: "the cat sat"},
		{Content: "dogs bark"},
	}
	idx := Build(chunks, "hash-1", TokenizerStandard)

	require.Equal(t, 2, idx.DocCount)
	assert.Equal(t, []int{3, 2}, idx.DocLengths)
	assert.InDelta(t, 2.5, idx.AvgDocLength, 1e-9)
	assert.Equal(t, "hash-1", idx.ContentHash)
}

func TestBuildInvertsPostingsByTerm(t *testing.T) {
	chunks := []decompose.Chunk{
		{Content: "cat cat dog"},
		{Content: "dog only"},
	}
	idx := Build(chunks, "hash", TokenizerStandard)

	catPostings := idx.Postings["cat"]
	require.Len(t, catPostings, 1)
	assert.Equal(t, 0, catPostings[0].DocID)
	assert.Equal(t, 2, catPostings[0].TF)

	dogPostings := idx.Postings["dog"]
	require.Len(t, dogPostings, 2)
}

func TestBuildEmptyChunksYieldsZeroAvgLength(t *testing.T) {
	idx := Build(nil, "hash", TokenizerStandard)
	assert.Equal(t, 0, idx.DocCount)
	assert.Equal(t, float64(0), idx.AvgDocLength)
}

func TestBuildRecordsChunkMetaOffsets(t *testing.T) {
	chunks := []decompose.Chunk{
		{StartOffset: 5, EndOffset: 16, Content: "the cat sat"},
	}
	idx := Build(chunks, "hash", TokenizerStandard)
	require.Len(t, idx.ChunkMeta, 1)
	assert.Equal(t, 5, idx.ChunkMeta[0].StartOffset)
	assert.Equal(t, 16, idx.ChunkMeta[0].EndOffset)
	assert.Equal(t, len("the cat sat"), idx.ChunkMeta[0].Length)
}
