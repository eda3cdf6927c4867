package rpc

import (
	"context"
	"time"

	"github.com/ctxrelay/rlm-server/internal/session"
)

func sandboxTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_execute_code",
			Description: "Run a sandboxed expression against the session's contexts, variables, and answer state",
			Category:    "sandbox",
			Fields:      []Field{{Name: "session_id"}, {Name: "code", Required: true}},
			Handler:     handleExecuteCode,
		},
	}
}

func handleExecuteCode(ctx context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	code, err := reqString(args, "code")
	if err != nil {
		return nil, err
	}

	sess, err := deps.Registry.Session(sessionID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	rec := deps.Sandbox.Execute(ctx, code, sess)
	if deps.Metrics != nil {
		deps.Metrics.ObserveDuration("code_execution_duration_ms", time.Since(started))
		deps.Metrics.IncCounter("code_executions")
		if !rec.Success {
			deps.Metrics.IncCounter("code_errors")
		}
	}

	_ = deps.Registry.AppendHistory(sessionID, session.HistoryEntry{
		Code: rec.Code, Success: rec.Success, Output: rec.Output,
		Error: rec.Error, DurationMs: rec.DurationMs, CreatedAt: rec.CreatedAt,
	})

	return map[string]interface{}{
		"success":    rec.Success,
		"output":     rec.Output,
		"error":      rec.Error,
		"durationMs": rec.DurationMs,
	}, nil
}
