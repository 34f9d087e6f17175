// Package trace assigns request ids and logs every completed request.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	klog "kasa/internal/log"
)

// HeaderRequestID is echoed on every response and accepted from trusted callers.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Middleware tags requests with an id and a request-scoped logger.
type Middleware struct {
	extractIP func(*http.Request) string
	log       *klog.Logger
	now       func() time.Time

	totalRequests atomic.Int64
	totalMicros   atomic.Int64
}

// Metrics summarises the requests seen so far.
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime time.Duration
}

func NewMiddleware(extractIP func(*http.Request) string, log *klog.Logger) *Middleware {
	if log == nil {
		log = klog.For(klog.ComponentHTTP)
	}
	return &Middleware{extractIP: extractIP, log: log, now: time.Now}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := m.now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		reqLog := m.log.With(klog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = klog.NewContext(ctx, reqLog)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := m.now().Sub(start)
		m.totalRequests.Add(1)
		m.totalMicros.Add(elapsed.Microseconds())
		reqLog.LogRequest(ctx, r.Method, r.URL.Path, clientIP, rw.statusCode, elapsed.Milliseconds())
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		ok := c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !ok {
			return false
		}
	}
	return true
}

// responseWriter captures the status code written by the handler.
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

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// GenerateRequestID returns "req_" followed by 16 random hex digits.
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (m *Middleware) Metrics() Metrics {
	n := m.totalRequests.Load()
	var avg time.Duration
	if n > 0 {
		avg = time.Duration(m.totalMicros.Load()/n) * time.Microsecond
	}
	return Metrics{TotalRequests: n, AverageResponseTime: avg}
}
