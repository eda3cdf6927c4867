package rank

import "github.com/ctxrelay/rlm-server/internal/cache"

// IndexCache memoizes one Index per (session, context, strategy,
// normalized-options), bound to the current content-hash.
type IndexCache struct {
	*cache.Cache[*Index]
}

func NewIndexCache(size int) *IndexCache {
	return &IndexCache{Cache: cache.New[*Index](size)}
}

// QueryResponse is the cached ranked-chunks payload.
type QueryResponse struct {
	Results []ScoredChunk `json:"results"`
}

// QueryCache memoizes the full ranked response keyed additionally by
// (query, top_k, min_score, tokenizer).
type QueryCache struct {
	*cache.Cache[QueryResponse]
}

func NewQueryCache(size int) *QueryCache {
	return &QueryCache{Cache: cache.New[QueryResponse](size)}
}

// Key builds the canonical index-cache key (no query component).
func Key(sessionID, contextID, strategy, optionsDigest string) string {
	return cache.Key(sessionID, contextID, strategy, optionsDigest)
}

// QueryKey extends Key with the query-specific fields.
func QueryKey(sessionID, contextID, strategy, optionsDigest, query, topK, minScore, tokenizerMode string) string {
	return cache.Key(sessionID, contextID, strategy, optionsDigest, query, topK, minScore, tokenizerMode)
}
