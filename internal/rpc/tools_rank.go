package rpc

import (
	"context"
	"strconv"

	"github.com/ctxrelay/rlm-server/internal/decompose"
	"github.com/ctxrelay/rlm-server/internal/rank"
)

func rankTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_rank_chunks",
			Description: "BM25-rank the chunks of a decomposition against a query",
			Category:    "rank",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id"},
				{Name: "decompose_id"}, {Name: "use_last_decompose"},
				{Name: "query", Required: true}, {Name: "top_k"},
				{Name: "min_score"}, {Name: "tokenizer"},
			},
			Handler: handleRankChunks,
		},
	}
}

func handleRankChunks(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID := optString(args, "context_id", "")
	decomposeID := optString(args, "decompose_id", "")
	useLast := optBool(args, "use_last_decompose", decomposeID == "")
	query, err := reqString(args, "query")
	if err != nil {
		return nil, err
	}
	topK := optInt(args, "top_k", 10)
	minScore := optFloat(args, "min_score", 0)
	tokMode := rank.TokenizerMode(optString(args, "tokenizer", string(rank.TokenizerAuto)))

	rec, err := deps.Registry.LookupDecomposition(sessionID, contextID, decomposeID, useLast)
	if err != nil {
		return nil, err
	}

	chunks, err := decomposeAndCache(deps, sessionID, rec.ContextID, rec.Strategy, rec.Options)
	if err != nil {
		return nil, err
	}

	c, err := deps.Registry.GetContext(sessionID, rec.ContextID)
	if err != nil {
		return nil, err
	}
	hash := decompose.ContentHash(c.Content)

	optDigest := decomposeOptionsDigest(rec)
	idxKey := rank.Key(sessionID, rec.ContextID, string(rec.Strategy), optDigest)
	idx, ok := deps.Registry.IndexCache().Get(idxKey, hash)
	if !ok {
		idx = rank.Build(chunks, hash, tokMode)
		deps.Registry.IndexCache().Put(idxKey, hash, idx)
		if deps.Metrics != nil {
			deps.Metrics.IncCounter("index_builds")
		}
	}

	queryKey := rank.QueryKey(sessionID, rec.ContextID, string(rec.Strategy), optDigest, query, strconv.Itoa(topK), strconv.FormatFloat(minScore, 'g', -1, 64), string(tokMode))
	if cached, ok := deps.Registry.RankQueryCache().Get(queryKey, hash); ok {
		if deps.Metrics != nil {
			deps.Metrics.IncCounter("cache_hits")
		}
		return map[string]interface{}{"results": cached.Results}, nil
	}
	if deps.Metrics != nil {
		deps.Metrics.IncCounter("cache_misses")
	}

	results := rank.Rank(idx, query, tokMode, topK, minScore)
	deps.Registry.RankQueryCache().Put(queryKey, hash, rank.QueryResponse{Results: results})
	return map[string]interface{}{"results": results}, nil
}

func decomposeOptionsDigest(rec *decompose.Record) string {
	return decompose.Key("", "", rec.Strategy, rec.Options)
}
