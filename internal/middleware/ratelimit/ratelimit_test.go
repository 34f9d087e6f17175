package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := range 3 {
		if !rl.Allow("a") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("4th request in window allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client rejected")
	}
	if got := rl.Metrics().TotalHits; got != 1 {
		t.Fatalf("TotalHits = %d, want 1", got)
	}

	*now = now.Add(20 * time.Second)
	if got := rl.RetryAfter("a"); got != 40*time.Second {
		t.Fatalf("RetryAfter = %v, want 40s", got)
	}

	*now = now.Add(40 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("request in fresh window rejected")
	}
}

func TestDefaultsApplied(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.requestsPerMinute != 60 || rl.cleanupInterval != 5*time.Minute {
		t.Fatalf("defaults = %d/%v", rl.requestsPerMinute, rl.cleanupInterval)
	}
	rl.Stop()
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("old")
	*now = now.Add(3 * time.Hour)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients = %d, want 1", got)
	}
}

func TestMiddlewareLimitsOnlyMutatingRequests(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(
		func(r *http.Request) string { return "client" },
		SafeMethod,
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/categories", nil))
		return rr
	}

	if rr := do(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rr.Code)
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After = %q, want 60", got)
	}
	for range 5 {
		if rr := do(http.MethodGet); rr.Code != http.StatusNoContent {
			t.Fatalf("GET = %d, reads must not be limited", rr.Code)
		}
	}
}

func TestMiddlewareCustomOnLimit(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		nil,
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
	)(http.NotFoundHandler())

	for i, want := range []int{http.StatusNotFound, http.StatusServiceUnavailable} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		if rr.Code != want {
			t.Fatalf("request %d: status %d, want %d", i+1, rr.Code, want)
		}
	}
}
