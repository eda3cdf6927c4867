package rpc

import (
	"context"

	"github.com/ctxrelay/rlm-server/internal/session"
)

func sessionTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_create_session",
			Description: "Allocate a new, isolated session",
			Category:    "session",
			Fields:      nil,
			Handler:     handleCreateSession,
		},
		{
			Name:        "rlm_get_session_info",
			Description: "Lifecycle and quota snapshot for a session",
			Category:    "session",
			Fields:      []Field{{Name: "session_id"}},
			Handler:     handleGetSessionInfo,
		},
		{
			Name:        "rlm_clear_session",
			Description: "Reset a session's contexts, variables, and history without destroying it",
			Category:    "session",
			Fields:      []Field{{Name: "session_id"}},
			Handler:     handleClearSession,
		},
		{
			Name:        "rlm_list_sessions",
			Description: "Paginated listing of live sessions",
			Category:    "session",
			Fields: []Field{
				{Name: "limit"}, {Name: "offset"},
				{Name: "sort_by"}, {Name: "sort_order"},
			},
			Handler: handleListSessions,
		},
		{
			Name:        "rlm_set_variable",
			Description: "Set a session-scoped variable",
			Category:    "session",
			Fields:      []Field{{Name: "session_id"}, {Name: "name", Required: true}, {Name: "value", Required: true}},
			Handler:     handleSetVariable,
		},
		{
			Name:        "rlm_get_variable",
			Description: "Read a session-scoped variable",
			Category:    "session",
			Fields:      []Field{{Name: "session_id"}, {Name: "name", Required: true}},
			Handler:     handleGetVariable,
		},
	}
}

func handleCreateSession(_ context.Context, deps *Deps, _ Args) (interface{}, error) {
	id := deps.Registry.CreateSession()
	return map[string]interface{}{"sessionId": id}, nil
}

func handleGetSessionInfo(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	info, err := deps.Registry.GetSessionInfo(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfoPayload(info), nil
}

func handleClearSession(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	if err := deps.Registry.Clear(sessionID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"cleared": true}, nil
}

func handleListSessions(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	limit := optInt(args, "limit", 50)
	offset := optInt(args, "offset", 0)
	sortBy := optString(args, "sort_by", "lastActivity")
	sortOrder := optString(args, "sort_order", "desc")

	infos, total := deps.Registry.ListSessions(limit, offset, sortBy, sortOrder)
	out := make([]map[string]interface{}, 0, len(infos))
	for _, info := range infos {
		out = append(out, sessionInfoPayload(info))
	}
	return map[string]interface{}{"sessions": out, "total": total}, nil
}

func sessionInfoPayload(info session.SessionInfo) map[string]interface{} {
	return map[string]interface{}{
		"sessionId":     info.ID,
		"createdAt":     info.CreatedAt,
		"lastActivity":  info.LastActivity,
		"contextCount":  info.ContextCount,
		"variableCount": info.VariableCount,
		"memoryBytes":   info.MemoryBytes,
	}
}

func handleSetVariable(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	name, err := reqString(args, "name")
	if err != nil {
		return nil, err
	}
	value := args["value"]
	if err := deps.Registry.SetVariable(sessionID, name, value); err != nil {
		return nil, err
	}
	return map[string]interface{}{"set": true}, nil
}

func handleGetVariable(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	name, err := reqString(args, "name")
	if err != nil {
		return nil, err
	}
	value, ok, err := deps.Registry.GetVariable(sessionID, name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"value": value, "found": ok}, nil
}
