package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kasa/internal/app"
	"kasa/internal/core"
	klog "kasa/internal/log"
)

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once the first reload has completed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	loaded := s.app.Ready()
	if !loaded {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"data_loaded":       loaded,
			"scheduler_running": s.app.Scheduler().Running(),
		},
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.tracer.Metrics()
	limitMetrics := s.rateLimiter.Metrics()
	securityMetrics := s.detector.Metrics()

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_seconds", "Average request duration", "gauge", traceMetrics.AverageResponseTime.Seconds())
	metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "Requests blocked as suspicious", "counter", securityMetrics.SuspiciousRequests)
	metric("categories_total", "Known categories including archived ones", "gauge", len(s.app.Categories()))
	metric("notifications_unread", "Unread visible notifications", "gauge", s.app.UnreadCount())
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.app.Page()).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	c, err := s.app.CreateCategory(ctx, categoryInput(p))
	if err != nil {
		s.actionFailed(ctx, w, klog.OpCreate, err)
		return
	}
	s.actionDone(w, http.StatusCreated, c, fmt.Sprintf("%q created", c.Name))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid category id").Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	c, err := s.app.UpdateCategory(ctx, id, categoryInput(p))
	if err != nil {
		s.actionFailed(ctx, w, klog.OpUpdate, err)
		return
	}
	s.actionDone(w, http.StatusOK, c, fmt.Sprintf("%q saved", c.Name))
}

func (s *Server) handleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, klog.OpArchive, s.app.ArchiveCategory, "Category archived")
}

func (s *Server) handleRestoreCategory(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, klog.OpRestore, s.app.RestoreCategory, "Category restored")
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, op string, action func(context.Context, int64) (core.Category, error), done string) {
	id, ok := pathID(r)
	if !ok {
		BadRequestError("Invalid category id").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	c, err := action(ctx, id)
	if err != nil {
		s.actionFailed(ctx, w, op, err)
		return
	}
	s.actionDone(w, http.StatusOK, c, done)
}

func (s *Server) actionDone(w http.ResponseWriter, status int, c core.Category, message string) {
	NewResponse().
		Status(status).
		JSON(c).
		TriggerSuccessNotification(message).
		TriggerCategoriesChanged().
		TriggerNotificationsChanged(s.app.UnreadCount()).
		Write(w)
}

func (s *Server) actionFailed(ctx context.Context, w http.ResponseWriter, op string, err error) {
	fields := klog.NewFields().WithOperation(op).WithError(err)
	if core.IsValidationError(err) {
		klog.FromContext(ctx).InfoContext(ctx, "Action rejected", fields.Args()...)
	} else {
		klog.FromContext(ctx).WarnContext(ctx, "Action failed", fields.Args()...)
	}
	FailedAction(err).Write(w)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}
	f, err := filterFrom(p, s.app.Filter())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.writePage(w, s.app.ApplyFilter(f))
}

func (s *Server) handleClearFilter(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, s.app.ClearFilter())
}

func (s *Server) handleShowArchived(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}
	archived, err := p.Bool("archived")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.writePage(w, s.app.ShowArchived(archived))
}

// handleGoToPage moves to the requested page. An out-of-range page leaves
// the view unchanged and is not an error.
func (s *Server) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}
	n, err := p.Int("page")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	page, _ := s.app.GoToPage(n)
	s.writePage(w, page)
}

func (s *Server) writePage(w http.ResponseWriter, page app.Page) {
	NewResponse().
		JSON(page).
		TriggerViewChanged(page.Pagination.CurrentPage).
		Write(w)
}

type notificationsBody struct {
	Notifications []app.Label `json:"notifications"`
	Unread        int         `json:"unread"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(notificationsBody{
		Notifications: s.app.Notifications(),
		Unread:        s.app.UnreadCount(),
	}).Write(w)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		BadRequestError("Invalid notification id").Write(w)
		return
	}
	err := s.app.MarkNotificationRead(r.Context(), id)
	s.writeNotifications(w, r, err)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	err := s.app.MarkAllNotificationsRead(r.Context())
	s.writeNotifications(w, r, err)
}

// writeNotifications answers a read-state change. The change is already
// applied in memory when persisting fails, so the response is still 200.
func (s *Server) writeNotifications(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		klog.FromContext(r.Context()).WarnContext(r.Context(), "Read state not persisted", klog.FieldError, err)
	}
	unread := s.app.UnreadCount()
	NewResponse().
		JSON(notificationsBody{Notifications: s.app.Notifications(), Unread: unread}).
		TriggerNotificationsChanged(unread).
		Write(w)
}

// handleVisibility pauses label refreshes while the page is hidden.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if errResp := ParseBodyOrFail(p); errResp != nil {
		errResp.Write(w)
		return
	}
	hidden, err := p.Bool("hidden")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	s.app.SetVisible(!hidden)
	w.WriteHeader(http.StatusNoContent)
}
