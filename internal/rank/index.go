package rank

import "github.com/ctxrelay/rlm-server/internal/decompose"

// Posting is one entry in an inverted-index postings list.
type Posting struct {
	DocID int
	TF    int
}

// Index is the precomputed BM25 state for one decomposition (IndexEntry
// in spec §3).
type Index struct {
	ContentHash  string
	DocCount     int
	DocLengths   []int
	AvgDocLength float64
	Postings     map[string][]Posting
	// ChunkMeta lets the ranker return offsets/length without holding a
	// reference to the full chunk slice.
	ChunkMeta []ChunkMeta
}

// ChunkMeta is the minimal per-chunk metadata an IndexEntry retains.
type ChunkMeta struct {
	StartOffset int
	EndOffset   int
	Length      int
}

// Build tokenizes every chunk, computes per-chunk term frequency, and
// inverts into term -> postings, per spec §4.4.
func Build(chunks []decompose.Chunk, contentHash string, mode TokenizerMode) *Index {
	idx := &Index{
		ContentHash: contentHash,
		DocCount:    len(chunks),
		DocLengths:  make([]int, len(chunks)),
		Postings:    make(map[string][]Posting),
		ChunkMeta:   make([]ChunkMeta, len(chunks)),
	}

	var totalLen int
	for docID, chunk := range chunks {
		terms := TokenizeWithMode(chunk.Content, mode)
		idx.DocLengths[docID] = len(terms)
		totalLen += len(terms)
		idx.ChunkMeta[docID] = ChunkMeta{
			StartOffset: chunk.StartOffset, EndOffset: chunk.EndOffset, Length: len(chunk.Content),
		}

		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for term, count := range tf {
			idx.Postings[term] = append(idx.Postings[term], Posting{DocID: docID, TF: count})
		}
	}
	if idx.DocCount > 0 {
		idx.AvgDocLength = float64(totalLen) / float64(idx.DocCount)
	}
	return idx
}
