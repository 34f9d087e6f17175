// Package security provides the response headers, client IP resolution and
// suspicious request detection used by kasa's HTTP server.
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	klog "kasa/internal/log"
)

// DetectionMetrics counts detection events since start.
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector resolves client addresses behind trusted proxies and flags
// requests that look like scans.
type Detector struct {
	suspicious     atomic.Int64
	trustedProxies []*net.IPNet
	log            *klog.Logger
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
}

const maxURLLength = 2048

func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			mustParseCIDR("127.0.0.0/8"),
			mustParseCIDR("::1/128"),
			mustParseCIDR("10.0.0.0/8"),
			mustParseCIDR("172.16.0.0/12"),
			mustParseCIDR("192.168.0.0/16"),
		},
		log: klog.For(klog.ComponentHTTP),
	}
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// IsSuspicious reports whether the request path, query, user agent or
// method match a known probing pattern.
func (d *Detector) IsSuspicious(r *http.Request) bool {
	if len(r.URL.String()) > maxURLLength {
		return true
	}
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return true
	}

	path := strings.ToLower(r.URL.Path)
	query := r.URL.RawQuery
	if q, err := url.QueryUnescape(query); err == nil {
		query = q
	}
	query = strings.ToLower(query)
	for _, p := range suspiciousPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return true
		}
	}

	agent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return true
		}
	}
	return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
}

// Middleware rejects suspicious requests with 400 before they reach a handler.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.IsSuspicious(r) {
			d.suspicious.Add(1)
			d.log.WarnContext(r.Context(), "Blocked suspicious request",
				klog.FieldMethod, r.Method,
				klog.FieldPath, r.URL.Path,
				klog.FieldClientIP, d.ClientIP(r))
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller's address. Forwarding headers are honoured
// only when the direct peer is a trusted proxy.
func (d *Detector) ClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil || !d.isTrustedProxy(ip) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) Metrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
	}
}

// AddTrustedProxy trusts forwarding headers from peers in cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
