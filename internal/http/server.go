// Package http serves the Telegram webhook and liveness endpoints.
package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "flowerbot/internal/log"
)

const (
	// RootBody is the reply to GET /, kept for uptime checks that probe it.
	RootBody = "Telegram Bot API is running"

	// DefaultRateLimit is the per-client webhook budget per minute.
	DefaultRateLimit = 120

	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	maxUpdateBytes    = 1 << 20
)

// WebhookPath is the route Telegram is told to POST updates to.
func WebhookPath(token string) string {
	return "/webhook/" + token
}

type Server struct {
	http.Server
	token        string
	webhook      http.Handler
	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	logger       *applog.Logger
	shutdownOnce sync.Once
}

type Option func(*Server)

// WithRateLimit sets the per-client webhook requests allowed per minute;
// zero disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

func WithLogger(l *applog.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(applog.ComponentHTTP) }
}

// NewServer routes POST /webhook/<token> to webhook. A nil webhook serves the
// liveness endpoints only, which is what polling mode uses.
func NewServer(addr, token string, webhook http.Handler, opts ...Option) *Server {
	s := &Server{
		token:       token,
		webhook:     webhook,
		rateLimiter: newRateLimiter(DefaultRateLimit),
		metrics:     &securityMetrics{},
		logger:      applog.Discard().WithComponent(applog.ComponentHTTP),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	if webhook != nil {
		mux.HandleFunc("POST /webhook/{token}", s.handleWebhook)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(s.logger)(s.withSecurity(mux)),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

// Stats reports security counters since start.
func (s *Server) Stats() SecurityStats {
	return s.metrics.snapshot()
}

// Shutdown stops the listener and the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldUserAgent, r.UserAgent())
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.PathValue("token")), []byte(s.token)) != 1 {
		atomic.AddInt64(&s.metrics.rejectedTokens, 1)
		http.NotFound(w, r)
		return
	}

	clientIP := extractClientIP(r)
	if !s.rateLimiter.allow(clientIP, s.metrics) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, clientIP)
		w.Header().Set("Retry-After", "60")
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBytes)
	s.webhook.ServeHTTP(w, r)
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(RootBody))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
