package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/metrics"
	"github.com/mindsage/analyzer/internal/tracing"
)

type traceKey string

// TraceIDKey holds the request trace id in the request context.
const TraceIDKey traceKey = "trace_id"

// TracingMiddleware assigns a trace id, opens a server span and counts the
// response status.
type TracingMiddleware struct {
	logger *zap.Logger
}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware(logger *zap.Logger) *TracingMiddleware {
	return &TracingMiddleware{
		logger: logger,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Middleware returns the HTTP middleware function
func (tm *TracingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := extractTraceID(r)
		if traceID == "" {
			traceID = generateTraceID()
		}

		ctx := context.WithValue(r.Context(), TraceIDKey, traceID)
		ctx, span := tracing.StartSpan(ctx, r.Method+" "+r.URL.Path)
		defer span.End()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.String("mindsage.trace_id", traceID),
		)

		w.Header().Set("X-Trace-ID", traceID)

		tm.logger.Debug("Request received",
			zap.String("trace_id", traceID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)

		rec := &statusRecorder{ResponseWriter: w}
		req := r.WithContext(ctx)
		next.ServeHTTP(rec, req)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", rec.status))

		route := req.Pattern
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

// TraceID returns the trace id assigned to the request, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// extractTraceID extracts trace ID from request headers
func extractTraceID(r *http.Request) string {
	// Check traceparent header (W3C Trace Context)
	if traceparent := r.Header.Get("traceparent"); traceparent != "" {
		parts := strings.Split(traceparent, "-")
		if len(parts) >= 2 {
			return parts[1]
		}
	}
	if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
		return traceID
	}
	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		return requestID
	}
	return ""
}

func generateTraceID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
