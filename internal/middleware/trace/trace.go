// Package trace tags each request with an ID and a span and logs its outcome.
package trace

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"michaucha/internal/log"
)

const (
	RequestIDHeader = "X-Request-ID"
	tracerName      = "michaucha/http"
)

type Middleware struct {
	extractIP func(*http.Request) string
	tracer    oteltrace.Tracer
	total     int64
	failed    int64
}

// NewMiddleware uses the global OpenTelemetry tracer provider, a no-op
// unless the binary installs one.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP, tracer: otel.Tracer(tracerName)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx, span := m.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("client.address", clientIP),
				attribute.String("request.id", requestID),
			))
		defer span.End()
		ctx = log.WithRequestID(ctx, requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		atomic.AddInt64(&m.total, 1)
		duration := time.Since(start)
		span.SetAttributes(attribute.Int("http.response.status_code", rw.statusCode))

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
			atomic.AddInt64(&m.failed, 1)
			span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}

		slog.Log(ctx, level, "HTTP request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			log.FieldClientIP, clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Counts returns requests served and those that ended in a 5xx.
func (m *Middleware) Counts() (total, failed int64) {
	return atomic.LoadInt64(&m.total), atomic.LoadInt64(&m.failed)
}
