package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	for _, name := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
	if got := rr.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS over plain HTTP = %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got, want := rr.Header().Get("Strict-Transport-Security"), "max-age=31536000; includeSubDomains"; got != want {
		t.Errorf("HSTS = %q, want %q", got, want)
	}
}

func TestNoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	NoStore(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer ignores forwarding", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy forwards first hop", "10.0.0.2:80", "198.51.100.1, 10.0.0.9", "", "198.51.100.1"},
		{"invalid forwarded falls back to real ip", "127.0.0.1:80", "garbage", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy without headers", "192.168.1.4:80", "", "", "192.168.1.4"},
		{"unparseable remote", "pipe", "", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:443"
	r.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ClientIP(r); got != "198.51.100.1" {
		t.Fatalf("ClientIP = %q", got)
	}
}

func TestIsSuspicious(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain api call", http.MethodGet, "/api/categories", "Mozilla/5.0", false},
		{"search query", http.MethodGet, "/api/categories?search=food", "", false},
		{"dotenv probe", http.MethodGet, "/.env", "", true},
		{"git probe", http.MethodGet, "/.git/config", "", true},
		{"sql in query", http.MethodGet, "/api/categories?q=1%20union%20select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				r.Header.Set("User-Agent", tt.agent)
			}
			if got := d.IsSuspicious(r); got != tt.want {
				t.Fatalf("IsSuspicious = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector()
	called := false
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin/", nil))
	if rr.Code != http.StatusBadRequest || called {
		t.Fatalf("status=%d called=%v, want 400 and handler skipped", rr.Code, called)
	}
	if got := d.Metrics().SuspiciousRequests; got != 1 {
		t.Fatalf("SuspiciousRequests = %d, want 1", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	if !called {
		t.Fatal("clean request did not reach handler")
	}
}
