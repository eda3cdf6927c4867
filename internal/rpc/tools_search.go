package rpc

import (
	"context"
	"strconv"
	"time"

	"github.com/ctxrelay/rlm-server/internal/decompose"
	"github.com/ctxrelay/rlm-server/internal/search"
)

func searchTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_search_context",
			Description: "Regex search with optional compact output",
			Category:    "search",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "pattern", Required: true}, {Name: "compact"},
				{Name: "match_cap"}, {Name: "context_window"},
			},
			Handler: handleSearchContext,
		},
		{
			Name:        "rlm_find_all",
			Description: "Substring scan returning offsets",
			Category:    "search",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "needle", Required: true}, {Name: "case_sensitive"},
				{Name: "compact"}, {Name: "match_cap"}, {Name: "context_window"},
			},
			Handler: handleFindAll,
		},
	}
}

func searchConfig(deps *Deps) (budget time.Duration, matchCap, contextWindow int) {
	budget, matchCap, contextWindow = search.DefaultBudget, search.DefaultMatchCap, 50
	if deps.Config != nil {
		if deps.Config.Search.RegexBudget > 0 {
			budget = deps.Config.Search.RegexBudget
		}
		if deps.Config.Search.MatchCap > 0 {
			matchCap = deps.Config.Search.MatchCap
		}
		if deps.Config.Search.ContextWindow > 0 {
			contextWindow = deps.Config.Search.ContextWindow
		}
	}
	return
}

func handleSearchContext(ctx context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	pattern, err := reqString(args, "pattern")
	if err != nil {
		return nil, err
	}
	compact := optBool(args, "compact", false)

	defBudget, defMatchCap, defWindow := searchConfig(deps)
	window := defWindow
	if compact {
		window = 0
	}
	opts := search.RegexOptions{
		Budget:        defBudget,
		MatchCap:      optInt(args, "match_cap", defMatchCap),
		ContextWindow: optInt(args, "context_window", window),
	}

	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}

	digest := "regex:" + pattern + ";" + strconv.Itoa(opts.ContextWindow) + ";" + strconv.Itoa(opts.MatchCap)
	hash := decompose.ContentHash(c.Content)
	key := searchCacheKey(sessionID, contextID, "search", digest)
	if cached, ok := deps.Registry.SearchQueryCache().Get(key, hash); ok {
		if deps.Metrics != nil {
			deps.Metrics.IncCounter("cache_hits")
		}
		return map[string]interface{}{"matches": cached.Matches, "truncated": cached.Truncated}, nil
	}
	if deps.Metrics != nil {
		deps.Metrics.IncCounter("cache_misses")
	}

	started := time.Now()
	matches, err := search.Regex(ctx, c.Content, pattern, opts)
	if deps.Metrics != nil {
		deps.Metrics.ObserveDuration("search_duration_ms", time.Since(started))
		deps.Metrics.IncCounter("searches")
	}
	if err != nil {
		return nil, err
	}

	resp := search.Response{Matches: matches, Truncated: len(matches) >= opts.MatchCap}
	deps.Registry.SearchQueryCache().Put(key, hash, resp)
	return map[string]interface{}{"matches": resp.Matches, "truncated": resp.Truncated}, nil
}

func handleFindAll(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	needle, err := reqString(args, "needle")
	if err != nil {
		return nil, err
	}
	compact := optBool(args, "compact", false)

	_, defMatchCap, defWindow := searchConfig(deps)
	window := defWindow
	if compact {
		window = 0
	}
	opts := search.SubstringOptions{
		CaseSensitive: optBool(args, "case_sensitive", true),
		MatchCap:      optInt(args, "match_cap", defMatchCap),
		ContextWindow: optInt(args, "context_window", window),
	}

	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}

	digest := "find_all:" + needle + ";" + strconv.FormatBool(opts.CaseSensitive) + ";" + strconv.Itoa(opts.ContextWindow)
	hash := decompose.ContentHash(c.Content)
	key := searchCacheKey(sessionID, contextID, "find_all", digest)
	if cached, ok := deps.Registry.SearchQueryCache().Get(key, hash); ok {
		if deps.Metrics != nil {
			deps.Metrics.IncCounter("cache_hits")
		}
		return map[string]interface{}{"matches": cached.Matches, "truncated": cached.Truncated}, nil
	}
	if deps.Metrics != nil {
		deps.Metrics.IncCounter("cache_misses")
	}

	matches := search.FindAll(c.Content, needle, opts)
	if deps.Metrics != nil {
		deps.Metrics.IncCounter("searches")
	}

	resp := search.Response{Matches: matches, Truncated: len(matches) >= opts.MatchCap}
	deps.Registry.SearchQueryCache().Put(key, hash, resp)
	return map[string]interface{}{"matches": resp.Matches, "truncated": resp.Truncated}, nil
}

func searchCacheKey(sessionID, contextID, kind, digest string) string {
	return search.Key(sessionID, contextID, kind, digest)
}
