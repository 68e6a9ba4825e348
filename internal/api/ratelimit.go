package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
)

// NewAuthRateLimiter creates the per-client limiter for credential endpoints.
func NewAuthRateLimiter(perMinute, burst int) *ratelimit.KeyedRateLimiter {
	return ratelimit.New(ratelimit.PerMinute(perMinute), burst)
}

// rateLimited returns a huma operation middleware that rejects requests from
// a client that exhausted its budget with 429 and a Retry-After header.
func (s *Server) rateLimited(limiter *ratelimit.KeyedRateLimiter) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if limiter == nil {
			next(ctx)
			return
		}

		key := clientIP(ctx.Context())
		ok, retryAfter := limiter.Check(key)
		if ok {
			next(ctx)
			return
		}

		logger.FromContext(ctx.Context(), s.logger).Warn("rate limit exceeded",
			"ip", key,
			"operation", ctx.Operation().OperationID,
		)
		seconds := max(1, int(math.Ceil(retryAfter.Seconds())))
		ctx.SetHeader("Retry-After", strconv.Itoa(seconds))
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many requests, please try again later")
	}
}
