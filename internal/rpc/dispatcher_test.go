package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxrelay/rlm-server/internal/observability"
	"github.com/ctxrelay/rlm-server/internal/sandbox"
	"github.com/ctxrelay/rlm-server/internal/session"
)

func newTestDeps() *Deps {
	reg := session.New(session.Config{
		MaxSessions:       10,
		MaxContextBytes:   1 << 20,
		MaxSessionMemory:  1 << 20,
		MaxContexts:       10,
		MaxVariables:      10,
		MaxHistoryEntries: 10,
		TTL:               time.Hour,
		ScavengeInterval:  time.Hour,
		ChunkCacheEntries: 16,
		IndexCacheEntries: 16,
		QueryCacheEntries: 16,
	}, nil, observability.NewNoopLogger(), observability.New())

	return &Deps{
		Registry: reg,
		Sandbox:  sandbox.New(2*time.Second, 0),
		Logger:   observability.NewNoopLogger(),
		Metrics:  observability.New(),
	}
}

func TestValidateRejectsUnknownField(t *testing.T) {
	fields := []Field{{Name: "context_id", Required: true}}
	err := validate(fields, Args{"context_id": "a", "bogus": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	fields := []Field{{Name: "context_id", Required: true}}
	err := validate(fields, Args{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context_id")
}

func TestValidateAcceptsWellFormedArgs(t *testing.T) {
	fields := []Field{{Name: "context_id", Required: true}, {Name: "max_bytes"}}
	err := validate(fields, Args{"context_id": "a", "max_bytes": 5})
	assert.NoError(t, err)
}

func TestDispatcherRejectsUnknownTool(t *testing.T) {
	d := NewDispatcher(newTestDeps())
	_, err := d.Call(context.Background(), "rlm_does_not_exist", Args{})
	assert.Error(t, err)
}

func TestDispatcherListIncludesEveryToolGroup(t *testing.T) {
	d := NewDispatcher(newTestDeps())
	names := map[string]bool{}
	for _, def := range d.List() {
		names[def.Name] = true
	}
	for _, want := range []string{
		"rlm_load_context", "rlm_decompose_context", "rlm_rank_chunks",
		"rlm_execute_code", "rlm_create_session", "rlm_set_answer", "rlm_get_metrics",
	} {
		assert.Contains(t, names, want, "expected tool %s to be registered", want)
	}
}

func TestDispatcherCallDispatchesToHandler(t *testing.T) {
	d := NewDispatcher(newTestDeps())
	result, err := d.Call(context.Background(), "rlm_load_context", Args{
		"context_id": "main",
		"text":       "hello world",
	})
	require.NoError(t, err)
	payload, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "main", payload["contextId"])
}
