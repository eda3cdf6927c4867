package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctxrelay/rlm-server/internal/observability"
)

func TestServeStdioSuccessRoundTrip(t *testing.T) {
	d := NewDispatcher(newTestDeps())

	in := strings.NewReader(`{"id":"1","tool":"rlm_load_context","args":{"context_id":"doc","text":"hi"}}` + "\n")
	var out bytes.Buffer

	ServeStdio(context.Background(), d, in, &out, observability.NewNoopLogger())

	var resp StdioResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "1", resp.ID)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestServeStdioMalformedLineReturnsErrorEnvelope(t *testing.T) {
	d := NewDispatcher(newTestDeps())

	in := strings.NewReader("{not json}\n")
	var out bytes.Buffer

	ServeStdio(context.Background(), d, in, &out, observability.NewNoopLogger())

	var resp StdioResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.NotNil(t, resp.Error)
}

func TestServeStdioUnknownToolReturnsErrorEnvelope(t *testing.T) {
	d := NewDispatcher(newTestDeps())

	in := strings.NewReader(`{"id":"x","tool":"does_not_exist","args":{}}` + "\n")
	var out bytes.Buffer

	ServeStdio(context.Background(), d, in, &out, observability.NewNoopLogger())

	var resp StdioResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "x", resp.ID)
	require.NotNil(t, resp.Error)
}

func TestServeStdioSkipsBlankLines(t *testing.T) {
	d := NewDispatcher(newTestDeps())

	in := strings.NewReader("\n\n" + `{"id":"2","tool":"rlm_get_metrics","args":{}}` + "\n")
	var out bytes.Buffer

	ServeStdio(context.Background(), d, in, &out, observability.NewNoopLogger())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)

	var resp StdioResponse
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &resp))
	assert.Equal(t, "2", resp.ID)
}
