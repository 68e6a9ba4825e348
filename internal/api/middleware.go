package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
)

// EnvelopeVersion is bumped on breaking changes to the envelope shape.
const EnvelopeVersion = 1

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// APIEnvelope wraps every JSON response body.
type APIEnvelope struct {
	Version int       `json:"v" doc:"Envelope version"`
	Success bool      `json:"success" doc:"Whether the request succeeded"`
	Data    any       `json:"data,omitempty" doc:"Response payload"`
	Error   *APIError `json:"error,omitempty" doc:"Error description when success is false"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in APIEnvelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if env, ok := v.(APIEnvelope); ok {
		return env, nil
	}

	code, _ := strconv.Atoi(status)

	switch body := v.(type) {
	case *APIError:
		return APIEnvelope{Version: EnvelopeVersion, Error: body}, nil
	case error:
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   &APIError{status: code, Code: statusToCode(code), Message: body.Error()},
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: code < http.StatusBadRequest,
		Data:    v,
	}, nil
}

type clientIPKey struct{}

// clientIP returns the address recorded by requestContext.
func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// requestContext assigns a request ID and attaches a request-scoped logger
// and the client IP to the context. Must run after middleware.RealIP.
func requestContext(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 64 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)
			ctx = context.WithValue(ctx, clientIPKey{}, hostOnly(r.RemoteAddr))
			ctx = logger.IntoContext(ctx, base.With("request_id", reqID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// hostOnly strips the port from an address, leaving bare IPs untouched.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// accessLog logs each request and records it in the HTTP metrics, labelled
// with the matched route pattern rather than the raw path.
func accessLog(base *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			recorder.RecordHTTPRequest(r.Method, route, status, duration)

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.FromContext(r.Context(), base).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"remote_ip", clientIP(r.Context()),
			)
		})
	}
}
