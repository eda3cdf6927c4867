package rpc

import (
	"context"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/decompose"
)

func decomposeTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_decompose_context",
			Description: "Split a context into chunks under a named strategy, returning a decompose_id",
			Category:    "decompose",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "strategy", Required: true}, {Name: "options"},
			},
			Handler: handleDecomposeContext,
		},
		{
			Name:        "rlm_get_chunks",
			Description: "Fetch chunk content by indices, resolved via decompose_id or the last decomposition",
			Category:    "decompose",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id"},
				{Name: "decompose_id"}, {Name: "use_last_decompose"},
				{Name: "indices"},
			},
			Handler: handleGetChunks,
		},
		{
			Name:        "rlm_suggest_strategy",
			Description: "Heuristic chunking strategy recommendation for a context",
			Category:    "decompose",
			Fields:      []Field{{Name: "session_id"}, {Name: "context_id", Required: true}},
			Handler:     handleSuggestStrategy,
		},
	}
}

func decomposeDeps(deps *Deps) decompose.Deps {
	maxChunks := decompose.DefaultMaxChunks
	if deps.Config != nil && deps.Config.Cache.MaxChunks > 0 {
		maxChunks = deps.Config.Cache.MaxChunks
	}
	return decompose.Deps{MaxChunks: maxChunks, Tokenizer: deps.Tokens}
}

// decomposeAndCache runs Decompose, consulting and then populating the
// chunk cache keyed by (session, context, strategy, options) bound to the
// context's current content-hash (spec §4.3).
func decomposeAndCache(deps *Deps, sessionID, contextID string, strategy decompose.Strategy, options map[string]interface{}) ([]decompose.Chunk, error) {
	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}
	hash := decompose.ContentHash(c.Content)
	key := decompose.Key(sessionID, contextID, strategy, options)

	if cached, ok := deps.Registry.ChunkCache().Get(key, hash); ok {
		return cached, nil
	}

	chunks, err := decompose.Decompose(c.Content, strategy, options, decomposeDeps(deps))
	if err != nil {
		return nil, err
	}
	deps.Registry.ChunkCache().Put(key, hash, chunks)
	return chunks, nil
}

func handleDecomposeContext(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	strategyStr, err := reqString(args, "strategy")
	if err != nil {
		return nil, err
	}
	strategy := decompose.Strategy(strategyStr)
	options := optStringMap(args, "options")

	chunks, err := decomposeAndCache(deps, sessionID, contextID, strategy, options)
	if err != nil {
		return nil, err
	}
	rec, err := deps.Registry.StoreDecomposition(sessionID, contextID, strategy, options)
	if err != nil {
		return nil, err
	}
	if deps.Metrics != nil {
		deps.Metrics.IncCounter("index_builds")
	}
	return map[string]interface{}{
		"decomposeId": rec.ID,
		"chunkCount":  len(chunks),
		"chunks":      chunks,
	}, nil
}

func handleGetChunks(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID := optString(args, "context_id", "")
	decomposeID := optString(args, "decompose_id", "")
	useLast := optBool(args, "use_last_decompose", decomposeID == "")
	indices := optIntSlice(args, "indices")

	rec, err := deps.Registry.LookupDecomposition(sessionID, contextID, decomposeID, useLast)
	if err != nil {
		return nil, err
	}

	chunks, err := decomposeAndCache(deps, sessionID, rec.ContextID, rec.Strategy, rec.Options)
	if err != nil {
		return nil, err
	}

	if len(indices) == 0 {
		return map[string]interface{}{"chunks": chunks}, nil
	}

	out := make([]decompose.Chunk, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(chunks) {
			return nil, apperrors.Newf(apperrors.ValidationOutOfRange, "chunk index %d out of range [0,%d)", idx, len(chunks))
		}
		out = append(out, chunks[idx])
	}
	return map[string]interface{}{"chunks": out}, nil
}

func handleSuggestStrategy(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"strategy": string(decompose.SuggestStrategy(c.Content))}, nil
}
