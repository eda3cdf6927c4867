package search

import (
	"github.com/ctxrelay/rlm-server/internal/cache"
)

// Response is the cached payload for a search/find_all call, memoized by
// (session, context, query-kind, options, content-hash) per spec §4.5.
type Response struct {
	Matches   []Match `json:"matches"`
	Truncated bool    `json:"truncated"`
}

// QueryCache wraps the generic LRU cache for the Searcher's
// query-result memo.
type QueryCache struct {
	*cache.Cache[Response]
}

func NewQueryCache(size int) *QueryCache {
	return &QueryCache{Cache: cache.New[Response](size)}
}

// Key builds the canonical cache key for a search/find_all call.
func Key(sessionID, contextID, queryKind, optionsDigest string) string {
	return cache.Key(sessionID, contextID, queryKind, optionsDigest)
}
