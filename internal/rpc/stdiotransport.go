// Stdio transport: one JSON object per line in, one JSON object per line
// out -- for agent harnesses that prefer a pipe over HTTP. Grounded on
// apps/edge-mcp/cmd/server/main.go's dual stdio/HTTP bootstrap.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/observability"
)

// StdioRequest is one line of input: {"tool": "...", "args": {...}}.
type StdioRequest struct {
	ID   string          `json:"id,omitempty"`
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// StdioResponse is one line of output, either a result or an error
// envelope, echoing the request id for correlation.
type StdioResponse struct {
	ID     string              `json:"id,omitempty"`
	Result interface{}         `json:"result,omitempty"`
	Error  *apperrors.Envelope `json:"error,omitempty"`
}

// ServeStdio reads newline-delimited requests from r and writes
// newline-delimited responses to w until r is exhausted or ctx is done.
func ServeStdio(ctx context.Context, d *Dispatcher, r io.Reader, w io.Writer, logger observability.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req StdioRequest
		if err := json.Unmarshal(line, &req); err != nil {
			env := apperrors.ToEnvelope(apperrors.Newf(apperrors.ValidationInvalidInput, "malformed request line: %v", err))
			_ = enc.Encode(StdioResponse{Error: &env})
			continue
		}

		var args Args
		if len(req.Args) > 0 {
			if err := json.Unmarshal(req.Args, &args); err != nil {
				env := apperrors.ToEnvelope(apperrors.Newf(apperrors.ValidationInvalidInput, "malformed args: %v", err))
				_ = enc.Encode(StdioResponse{ID: req.ID, Error: &env})
				continue
			}
		}
		if args == nil {
			args = Args{}
		}

		result, err := d.Call(ctx, req.Tool, args)
		if err != nil {
			env := apperrors.ToEnvelope(err)
			if logger != nil {
				logger.Warn("tool call failed", map[string]interface{}{"tool": req.Tool, "code": env.Code})
			}
			_ = enc.Encode(StdioResponse{ID: req.ID, Error: &env})
			continue
		}
		_ = enc.Encode(StdioResponse{ID: req.ID, Result: result})
	}
}
