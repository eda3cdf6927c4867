package decompose

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ctxrelay/rlm-server/internal/cache"
)

// ChunkCache memoizes decompositions keyed by
// (sessionId, contextId, strategy, canonicalized-options), bound to a
// content-hash sidecar (spec §4.3).
type ChunkCache struct {
	*cache.Cache[[]Chunk]
}

func NewChunkCache(size int) *ChunkCache {
	return &ChunkCache{Cache: cache.New[[]Chunk](size)}
}

// Key builds the canonical chunk-cache key.
func Key(sessionID, contextID string, strategy Strategy, options map[string]interface{}) string {
	return cache.Key(sessionID, contextID, string(strategy), canonicalizeOptions(options))
}

// SessionContextPrefix builds the (session, context) invalidation prefix
// shared by every cache per invariant M1.
func SessionContextPrefix(sessionID, contextID string) string {
	return cache.Key(sessionID, contextID)
}

// ContentHash combines length with samples of prefix, midpoint, and
// suffix -- cheap enough to compute on every lookup without hashing the
// full (potentially 100 MiB) context text.
func ContentHash(text string) string {
	const sample = 64
	h := sha256.New()
	fmt.Fprintf(h, "%d:", len(text))
	h.Write([]byte(head(text, sample)))
	h.Write([]byte(mid(text, sample)))
	h.Write([]byte(tail(text, sample)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func head(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func tail(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[len(s)-n:]
}

func mid(s string, n int) string {
	if len(s) < n {
		return s
	}
	m := len(s) / 2
	lo := m - n/2
	if lo < 0 {
		lo = 0
	}
	hi := lo + n
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

// canonicalizeOptions renders an options bag deterministically so
// semantically identical calls share a cache key regardless of map
// iteration order.
func canonicalizeOptions(options map[string]interface{}) string {
	if len(options) == 0 {
		return ""
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%v;", k, options[k])
	}
	return out
}
