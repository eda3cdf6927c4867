package rpc

import "context"

func answerTools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "rlm_set_answer",
			Description: "Replace the session's answer content and readiness flag",
			Category:    "answer",
			Fields:      []Field{{Name: "session_id"}, {Name: "content", Required: true}, {Name: "ready"}},
			Handler:     handleSetAnswer,
		},
		{
			Name:        "rlm_get_answer",
			Description: "Read the session's answer content and readiness flag",
			Category:    "answer",
			Fields:      []Field{{Name: "session_id"}},
			Handler:     handleGetAnswer,
		},
	}
}

func handleSetAnswer(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	content, err := reqString(args, "content")
	if err != nil {
		return nil, err
	}
	ready := optBool(args, "ready", false)

	sess, err := deps.Registry.Session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.SetAnswer(content, ready)
	return map[string]interface{}{"set": true}, nil
}

func handleGetAnswer(_ context.Context, deps *Deps, args Args) (interface{}, error) {
	sessionID := optString(args, "session_id", "")
	sess, err := deps.Registry.Session(sessionID)
	if err != nil {
		return nil, err
	}
	content, ready := sess.GetAnswer()
	return map[string]interface{}{"content": content, "ready": ready}, nil
}
