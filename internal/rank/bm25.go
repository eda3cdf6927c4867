package rank

import (
	"math"
	"sort"
)

// K1 and B are the BM25 parameters fixed by spec §4.4.
const (
	K1 = 1.5
	B  = 0.75
)

// ScoredChunk is one ranked result.
type ScoredChunk struct {
	DocID       int     `json:"docId"`
	Score       float64 `json:"score"`
	StartOffset int     `json:"startOffset"`
	EndOffset   int     `json:"endOffset"`
}

// Rank scores every chunk against query using BM25(k1=1.5,b=0.75),
// returning the top-K by score descending, filtering non-positive scores
// and anything below minScore.
func Rank(idx *Index, query string, mode TokenizerMode, topK int, minScore float64) []ScoredChunk {
	queryTerms := TokenizeWithMode(query, mode)
	if len(queryTerms) == 0 || idx.DocCount == 0 {
		return nil
	}

	qf := make(map[string]int, len(queryTerms))
	for _, t := range queryTerms {
		qf[t]++
	}

	scores := make([]float64, idx.DocCount)
	n := float64(idx.DocCount)

	for term, freq := range qf {
		postings, ok := idx.Postings[term]
		if !ok {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))

		for _, p := range postings {
			tf := float64(p.TF)
			docLen := float64(idx.DocLengths[p.DocID])
			denom := tf + K1*(1-B+B*docLen/idx.AvgDocLength)
			scores[p.DocID] += float64(freq) * idf * (tf * (K1 + 1)) / denom
		}
	}

	results := make([]ScoredChunk, 0, idx.DocCount)
	for docID, score := range scores {
		if score <= 0 || score < minScore {
			continue
		}
		meta := idx.ChunkMeta[docID]
		results = append(results, ScoredChunk{
			DocID: docID, Score: score, StartOffset: meta.StartOffset, EndOffset: meta.EndOffset,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
