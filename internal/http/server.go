package http

import (
	"context"
	"net/http"
	"time"

	"kasa/internal/app"
	klog "kasa/internal/log"
	"kasa/internal/middleware/ratelimit"
	"kasa/internal/middleware/security"
	"kasa/internal/middleware/trace"
)

// Request handling timeouts.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	// actionTimeout bounds one user action including its backend round-trips
	// and the reload that follows it.
	actionTimeout = 20 * time.Second
)

// Server serves the categories page API for one App.
type Server struct {
	http.Server
	app     *app.App
	logger  *klog.Logger
	started time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
}

// Options tunes the middleware stack.
type Options struct {
	RequestsPerMinute int
	TrustedProxies    []string
}

// NewServer builds the route table and middleware chain around a.
func NewServer(addr string, a *app.App, opts Options) *Server {
	logger := klog.For(klog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", klog.FieldError, err)
		}
	}

	s := &Server{
		app:      a,
		logger:   logger,
		started:  time.Now(),
		detector: detector,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
		tracer: trace.NewMiddleware(detector.ClientIP, logger),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/categories", s.handlePage)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleArchiveCategory)
	mux.HandleFunc("POST /api/categories/{id}/restore", s.handleRestoreCategory)

	mux.HandleFunc("POST /api/view/filter", s.handleFilter)
	mux.HandleFunc("POST /api/view/clear", s.handleClearFilter)
	mux.HandleFunc("POST /api/view/archived", s.handleShowArchived)
	mux.HandleFunc("POST /api/view/page", s.handleGoToPage)

	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)

	mux.HandleFunc("POST /api/visibility", s.handleVisibility)

	limited := s.rateLimiter.Middleware(detector.ClientIP, ratelimit.SafeMethod, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
			TriggerErrorNotification("Too many requests, please slow down").
			Write(w)
	})

	var handler http.Handler = mux
	handler = security.NoStore(handler)
	handler = limited(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.rateLimiter.Stop()
	return s.Server.Shutdown(ctx)
}
