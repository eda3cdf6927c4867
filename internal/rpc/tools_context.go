package rpc

import (
	"context"
	"strings"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/session"
	"github.com/ctxrelay/rlm-server/internal/textstore"
)

func contextTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_load_context",
			Description: "Create or replace a named context in a session",
			Category:    "context",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "text", Required: true}, {Name: "max_bytes"},
			},
			Handler: handleLoadContext,
		},
		{
			Name:        "rlm_append_context",
			Description: "Append or prepend content to a context",
			Category:    "context",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "text", Required: true}, {Name: "mode"},
				{Name: "create_if_missing"}, {Name: "max_bytes"},
			},
			Handler: handleAppendContext,
		},
		{
			Name:        "rlm_unload_context",
			Description: "Drop a context from live memory",
			Category:    "context",
			Fields:      []Field{{Name: "session_id"}, {Name: "context_id", Required: true}},
			Handler:     handleUnloadContext,
		},
		{
			Name:        "rlm_get_context_info",
			Description: "Metadata plus an optional preview",
			Category:    "context",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "preview_chars"},
			},
			Handler: handleGetContextInfo,
		},
		{
			Name:        "rlm_read_context",
			Description: "Read a range of a context by character offsets or line numbers",
			Category:    "context",
			Fields: []Field{
				{Name: "session_id"}, {Name: "context_id", Required: true},
				{Name: "start_offset"}, {Name: "end_offset"},
				{Name: "start_line"}, {Name: "end_line"},
			},
			Handler: handleReadContext,
		},
		{
			Name:        "rlm_get_statistics",
			Description: "Structural statistics of a context",
			Category:    "context",
			Fields:      []Field{{Name: "session_id"}, {Name: "context_id", Required: true}},
			Handler:     handleGetStatistics,
		},
	}
}

func handleLoadContext(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	text, err := reqString(args, "text")
	if err != nil {
		return nil, err
	}
	maxBytes := optInt64(args, "max_bytes", 0)

	c, err := deps.Registry.Load(sessionID, contextID, text, maxBytes)
	if err != nil {
		return nil, err
	}
	return contextInfoPayload(c, 0), nil
}

func handleAppendContext(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	text, err := reqString(args, "text")
	if err != nil {
		return nil, err
	}
	mode := session.ModeAppend
	if optString(args, "mode", "append") == "prepend" {
		mode = session.ModePrepend
	}
	createIfMissing := optBool(args, "create_if_missing", true)
	maxBytes := optInt64(args, "max_bytes", 0)

	c, err := deps.Registry.Append(sessionID, contextID, text, mode, createIfMissing, maxBytes)
	if err != nil {
		return nil, err
	}
	return contextInfoPayload(c, 0), nil
}

func handleUnloadContext(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	if err := deps.Registry.Unload(sessionID, contextID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"unloaded": true}, nil
}

func handleGetContextInfo(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}
	previewChars := optInt(args, "preview_chars", 0)
	return contextInfoPayload(c, previewChars), nil
}

func contextInfoPayload(c *textstore.Context, previewChars int) map[string]interface{} {
	payload := map[string]interface{}{
		"contextId": c.ID,
		"createdAt": c.CreatedAt,
		"metadata": map[string]interface{}{
			"length":    c.Metadata.Length,
			"lineCount": c.Metadata.LineCount,
			"wordCount": c.Metadata.WordCount,
			"structure": string(c.Metadata.Structure),
		},
	}
	if previewChars > 0 {
		n := previewChars
		if n > len(c.Content) {
			n = len(c.Content)
		}
		payload["preview"] = c.Content[:n]
	}
	return payload
}

func handleGetStatistics(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"length":    c.Metadata.Length,
		"lineCount": c.Metadata.LineCount,
		"wordCount": c.Metadata.WordCount,
		"structure": string(c.Metadata.Structure),
	}, nil
}

func handleReadContext(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	contextID, err := reqString(args, "context_id")
	if err != nil {
		return nil, err
	}
	c, err := deps.Registry.GetContext(sessionID, contextID)
	if err != nil {
		return nil, err
	}

	hasOffsets := args["start_offset"] != nil || args["end_offset"] != nil
	hasLines := args["start_line"] != nil || args["end_line"] != nil

	text := c.Content
	var start, end int
	switch {
	case hasLines:
		lines := strings.Split(text, "\n")
		startLine := optInt(args, "start_line", 1)
		endLine := optInt(args, "end_line", len(lines))
		if startLine < 1 {
			startLine = 1
		}
		if endLine > len(lines) {
			endLine = len(lines)
		}
		if startLine > endLine {
			return map[string]interface{}{"content": "", "startOffset": 0, "endOffset": 0}, nil
		}
		start = lineOffset(lines, startLine)
		end = lineOffset(lines, endLine+1) - 1
		if end < start {
			end = start
		}
		if end > len(text) {
			end = len(text)
		}
	case hasOffsets:
		start = optInt(args, "start_offset", 0)
		end = optInt(args, "end_offset", len(text))
	default:
		start, end = 0, len(text)
	}

	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		return nil, apperrors.New(apperrors.ValidationOutOfRange, "start position must not exceed end position")
	}

	return map[string]interface{}{
		"content":     text[start:end],
		"startOffset": start,
		"endOffset":   end,
	}, nil
}

// lineOffset returns the character offset of the start of 1-based line n
// (n beyond len(lines) returns len(text)+1's equivalent join length).
func lineOffset(lines []string, n int) int {
	offset := 0
	for i := 0; i < n-1 && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}
