package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/capturd/capturd/internal/observability"
	"github.com/capturd/capturd/pkg/recording"
	"github.com/rs/zerolog"
)

// DefaultMaxChunkSize caps a single chunk upload at 50MB, matching what a
// MediaRecorder timeslice can plausibly produce with headroom.
const DefaultMaxChunkSize = 50 << 20

// Server is the HTTP front end: the request/response ingest adapter plus
// retrieval, cleanup, listing, health and metrics. The WebSocket adapter is
// mounted on the same listener under /ws.
type Server struct {
	options        ServerOptions
	server         *http.Server
	controller     *recording.Controller
	streamHandler  http.Handler
	rateLimiter    *RateLimiter
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// ServerOptions holds server configuration.
type ServerOptions struct {
	Host               string
	Port               int
	MaxChunkSize       int64
	RateLimitPerMinute int
}

// NewServer creates the HTTP server. streamHandler may be nil, in which
// case /ws is not mounted.
func NewServer(options ServerOptions, controller *recording.Controller, streamHandler http.Handler, logger zerolog.Logger) (*Server, error) {
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	if options.Port == 0 {
		options.Port = 3000
	}
	if options.Host == "" {
		options.Host = "0.0.0.0"
	}
	if options.MaxChunkSize == 0 {
		options.MaxChunkSize = DefaultMaxChunkSize
	}
	if options.RateLimitPerMinute == 0 {
		options.RateLimitPerMinute = 600
	}

	s := &Server{
		options:       options,
		controller:    controller,
		streamHandler: streamHandler,
		rateLimiter:   NewRateLimiter(options.RateLimitPerMinute),
		logger:        logger,
		startTime:     time.Now(),
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", options.Host, options.Port),
		Handler: s.Handler(),
	}

	return s, nil
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/recording/start", s.handleStart)
	mux.HandleFunc("POST /api/recording/{id}/chunk", s.handleChunk)
	mux.HandleFunc("POST /api/recording/{id}/stop", s.handleStop)
	mux.HandleFunc("GET /api/recording/{id}/download", s.handleDownload)
	mux.HandleFunc("DELETE /api/recording/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/recordings", s.handleList)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.MetricsHandler())

	if s.streamHandler != nil {
		mux.Handle("/ws", s.streamHandler)
	}

	return s.withMiddleware(mux)
}

// Start starts the HTTP server and blocks until it shuts down.
func (s *Server) Start() error {
	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting recording server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start recording server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests.
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down recording server")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown recording server: %w", err)
	}

	s.logger.Info().Msg("Recording server stopped")
	return nil
}

// withMiddleware applies CORS, shutdown gating, rate limiting and in-flight
// tracking around the route table.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The browser extension calls from its own origin.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		ip := clientIP(r)
		if !s.rateLimiter.CheckLimit(ip) {
			retryAfter := s.rateLimiter.RetryAfter(ip)
			s.logger.Warn().
				Str("ip", ip).
				Str("path", r.URL.Path).
				Int("retryAfter", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client IP from the request.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
