package rpc

import (
	"golang.org/x/time/rate"

	"github.com/ctxrelay/rlm-server/internal/apperrors"
	"github.com/ctxrelay/rlm-server/internal/config"
)

// rateLimiter wraps golang.org/x/time/rate with a no-op fallback when RPS
// is non-positive, so disabling it in Config never requires a nil check
// at every call site. *rate.Limiter is already safe for concurrent use.
//
// Grounded on the teacher's apps/edge-mcp/internal/middleware/rate_limit.go,
// trimmed from its per-tenant/per-tool/quota hierarchy down to a single
// global token bucket in front of the dispatcher -- this server has no
// multi-tenant concept, so one limiter protects the whole process rather
// than one per caller.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if cfg.RPS <= 0 {
		return &rateLimiter{}
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst)}
}

func (rl *rateLimiter) allow() bool {
	if rl == nil || rl.limiter == nil {
		return true
	}
	return rl.limiter.Allow()
}

var errRateLimited = apperrors.New(apperrors.ResourceRateLimited, "tool call rate exceeded")
