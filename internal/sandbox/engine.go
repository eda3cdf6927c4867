// Package sandbox implements the Expression Engine (C6): a
// resource-bounded evaluator running on github.com/yuin/gopher-lua, with a
// curated set of Go-bound helper functions as the *only* globals exposed
// to evaluated code -- no os/io/net library is ever opened on the VM.
//
// gopher-lua is the teacher's own transitive dependency (pulled in for
// miniredis's Lua-scripting support, alongside alicebob/gopher-json) and
// is also used by theRebelliousNerd-codenerd for embedded scripting.
// traefik/yaegi (codenerd's other embedded-scripting candidate, a full Go
// interpreter) was considered and rejected: yaegi interprets Go itself,
// which is much harder to keep from exposing native capabilities than a
// small, closed Lua dialect with an explicit global table.
package sandbox

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
)

// DefaultTimeBudget, DefaultOutputCap, and DefaultHistoryCap are the
// literal defaults from spec §4.6.
const (
	DefaultTimeBudget = 30 * time.Second
	DefaultOutputCap  = 50000
	DefaultHistoryCap = 100
	truncationMarker  = "\n...[truncated]"
)

// StateAccessor is the session-state boundary the sandbox is given
// read/write access to -- implemented by internal/session so the sandbox
// package itself never imports the session registry (avoiding a cycle,
// and keeping the sandbox's access surface exactly as narrow as spec
// §4.6 describes).
type StateAccessor interface {
	GetContext(id string) (string, bool)
	GetContextMetadata(id string) (map[string]interface{}, bool)
	ListContexts() []string

	GetVar(name string) (interface{}, bool)
	SetVar(name string, value interface{}) bool
	ListVars() map[string]interface{}
	DeleteVar(name string) bool

	GetAnswer() (string, bool)
	SetAnswer(content string, ready bool)
	AppendAnswer(content string)
}

// ExecutionRecord is pushed onto the session's bounded execution history
// (FIFO, default 100 entries) regardless of success or failure; code
// failures are materialized here and never raised from the engine's RPC
// surface (spec §7).
type ExecutionRecord struct {
	Code       string    `json:"code"`
	Success    bool      `json:"success"`
	Output     string    `json:"output"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Engine evaluates snippets against a StateAccessor under a time and
// output budget.
type Engine struct {
	TimeBudget time.Duration
	OutputCap  int
}

// New builds an Engine; a non-positive timeBudget or outputCap falls back
// to DefaultTimeBudget or DefaultOutputCap.
func New(timeBudget time.Duration, outputCap int) *Engine {
	if timeBudget <= 0 {
		timeBudget = DefaultTimeBudget
	}
	if outputCap <= 0 {
		outputCap = DefaultOutputCap
	}
	return &Engine{TimeBudget: timeBudget, OutputCap: outputCap}
}

// Execute runs code in a fresh Lua VM with only the curated helper
// surface as globals. It returns no Go error: a code failure or timeout
// is reported in the record (Success false, Error set), so per spec §7
// the RPC call succeeds with success:false in the payload.
func (e *Engine) Execute(ctx context.Context, code string, state StateAccessor) *ExecutionRecord {
	started := time.Now()
	rec := &ExecutionRecord{Code: code, CreatedAt: started.UTC()}

	budget := e.TimeBudget
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	out := newOutputBuffer(e.OutputCap)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(deadlineCtx)

	registerHelpers(L, state, out)

	done := make(chan error, 1)
	go func() {
		done <- L.DoString(code)
	}()

	select {
	case err := <-done:
		rec.DurationMs = time.Since(started).Milliseconds()
		rec.Output = out.String()
		if err != nil {
			rec.Success = false
			rec.Error = formatLuaError(err, deadlineCtx)
		} else {
			rec.Success = true
		}
		return rec
	case <-deadlineCtx.Done():
		rec.DurationMs = time.Since(started).Milliseconds()
		rec.Output = ""
		rec.Success = false
		rec.Error = "execution timeout: exceeded time budget"
		return rec
	}
}

func formatLuaError(err error, ctx context.Context) string {
	if ctx.Err() != nil {
		return "execution timeout: exceeded time budget"
	}
	return fmt.Sprintf("execution failed: %v", err)
}

// ExecutionTimeoutError surfaces EXECUTION_TIMEOUT when a caller needs the
// typed error alongside the history record (e.g. to decide whether to
// retry), even though the record itself never raises across the engine's
// own RPC surface.
func ExecutionTimeoutError() *apperrors.Error {
	return apperrors.New(apperrors.ExecutionTimeout, "expression execution exceeded time budget")
}

// outputBuffer is the bounded buffer `print`/the logger object write
// into; output is truncated to OutputCap with a suffix marker.
type outputBuffer struct {
	cap int
	buf []byte
}

func newOutputBuffer(cap int) *outputBuffer { return &outputBuffer{cap: cap} }

func (o *outputBuffer) Write(s string) {
	if len(o.buf) >= o.cap {
		return
	}
	remaining := o.cap - len(o.buf)
	if len(s) > remaining {
		o.buf = append(o.buf, s[:remaining]...)
		o.buf = append(o.buf, []byte(truncationMarker)...)
		return
	}
	o.buf = append(o.buf, s...)
}

func (o *outputBuffer) String() string { return string(o.buf) }
