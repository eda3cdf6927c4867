// Package rpc implements the thin RPC tool layer (spec §6): parameter
// validation, dispatch by tool name, and result framing. It never embeds
// wire-level JSON-RPC framing itself (out of scope per spec §1) -- the
// transports in httptransport.go and stdiotransport.go each decode one
// call's arguments into a map and hand it to Dispatcher.Call.
//
// Grounded on the teacher's apps/edge-mcp/internal/tools/registry.go
// (Registry / ToolDefinition / Execute), trimmed of the relationship-
// graph and workflow-template machinery that serves the teacher's open,
// growing DevOps tool catalogue -- this server's tool set is small and
// fixed.
package rpc

import (
	"context"
	"time"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/config"
	"github.com/ctxrelay/rlm-server/internal/observability"
	"github.com/ctxrelay/rlm-server/internal/sandbox"
	"github.com/ctxrelay/rlm-server/internal/session"
	"github.com/ctxrelay/rlm-server/internal/tokenizer"
)

// Args is a decoded tool-call argument record. Values come from JSON so
// numbers arrive as float64 -- handlers use the optInt/optString/optBool
// helpers in args.go to coerce them.
type Args map[string]interface{}

// Handler executes one tool call against the shared Deps.
type Handler func(ctx context.Context, deps *Deps, args Args) (interface{}, error)

// Field describes one accepted argument for strict-schema validation.
type Field struct {
	Name     string
	Required bool
}

// ToolDefinition is one named, schema-validated RPC tool.
type ToolDefinition struct {
	Name        string
	Description string
	Category    string
	Fields      []Field
	Handler     Handler
}

// Deps bundles the shared core components every tool handler is allowed
// to reach -- the session registry, the sandbox engine, and ambient
// logging/metrics/config. Handlers never reach further than this.
type Deps struct {
	Registry *session.Registry
	Sandbox  *sandbox.Engine
	Tokens   tokenizer.Provider
	Config   *config.Config
	Logger   observability.Logger
	Metrics  *observability.Metrics
}

// Dispatcher is the name -> ToolDefinition table.
type Dispatcher struct {
	tools map[string]ToolDefinition
	deps  *Deps
	rate  *rateLimiter
}

// NewDispatcher builds a Dispatcher with every rlm_* tool registered,
// rate-limited per deps.Config.RateLimit (or config.Defaults() if
// deps.Config is nil).
func NewDispatcher(deps *Deps) *Dispatcher {
	rl := config.Defaults().RateLimit
	if deps.Config != nil {
		rl = deps.Config.RateLimit
	}
	return NewDispatcherWithRateLimit(deps, rl)
}

// NewDispatcherWithRateLimit builds a Dispatcher with an explicit rate
// limit -- pass config.RateLimitConfig{} (zero RPS) to disable
// throttling, e.g. in tests that issue many calls back to back.
func NewDispatcherWithRateLimit(deps *Deps, rl config.RateLimitConfig) *Dispatcher {
	d := &Dispatcher{tools: make(map[string]ToolDefinition), deps: deps, rate: newRateLimiter(rl)}
	d.register(contextTools()...)
	d.register(decomposeTools()...)
	d.register(searchTools()...)
	d.register(rankTools()...)
	d.register(sandboxTools()...)
	d.register(sessionTools()...)
	d.register(answerTools()...)
	d.register(metricsTools()...)
	return d
}

func (d *Dispatcher) register(defs ...ToolDefinition) {
	for _, def := range defs {
		d.tools[def.Name] = def
	}
}

// List returns every registered tool definition, for introspection.
func (d *Dispatcher) List() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(d.tools))
	for _, t := range d.tools {
		out = append(out, t)
	}
	return out
}

// Call validates args against the named tool's schema, then invokes its
// handler, recording the tool_calls_total counter and tool_duration_ms
// histogram whether or not the handler fails. Unknown-tool, rate-limited
// and validation-failed calls return before either is recorded.
func (d *Dispatcher) Call(ctx context.Context, name string, args Args) (interface{}, error) {
	def, ok := d.tools[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.SystemNotImplemented, "unknown tool %q", name)
	}
	if !d.rate.allow() {
		if d.deps.Metrics != nil {
			d.deps.Metrics.IncCounter("rate_limited_total")
		}
		return nil, errRateLimited
	}
	if err := validate(def.Fields, args); err != nil {
		return nil, err
	}

	started := time.Now()
	if d.deps.Metrics != nil {
		d.deps.Metrics.IncCounter("tool_calls_total")
	}
	result, err := def.Handler(ctx, d.deps, args)
	if d.deps.Metrics != nil {
		d.deps.Metrics.ObserveDuration("tool_duration_ms", time.Since(started))
	}
	return result, err
}

// validate enforces strict unknown-field rejection and required-field
// presence, per spec §6 ("Unknown fields are rejected").
func validate(fields []Field, args Args) error {
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f.Name] = true
	}
	for k := range args {
		if !allowed[k] {
			return apperrors.Newf(apperrors.ValidationInvalidInput, "unknown field %q", k).
				WithDetails(map[string]interface{}{"field": k})
		}
	}
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if _, ok := args[f.Name]; !ok {
			return apperrors.Newf(apperrors.ValidationMissingField, "missing required field %q", f.Name).
				WithDetails(map[string]interface{}{"field": f.Name})
		}
	}
	return nil
}
