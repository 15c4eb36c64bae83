package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Default configuration values.
const (
	DefaultAddr        = ":8000"
	DefaultUploadDir   = "data/raw"
	DefaultMaxUploadMB = 20
	shutdownTimeout    = 10 * time.Second
)

// Config holds HTTP server configuration.
type Config struct {
	// UploadDir receives uploaded files (default: data/raw).
	UploadDir string

	// MaxUploadMB bounds an upload's size (default: 20).
	MaxUploadMB int

	// AllowedExtensions is the upload allow-list (default: .txt, .pdf).
	AllowedExtensions []string

	// RateLimitRPS and RateLimitBurst throttle all routes except /healthz.
	// Zero RPS disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// Retrieval is the base that per-request overrides are applied to.
	Retrieval domain.RetrievalOptions
}

// Server serves the HTTP API.
type Server struct {
	ports   *Ports
	cfg     Config
	limiter *ratelimit.Limiter
	handler http.Handler
}

// NewServer creates a server for ports.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = DefaultUploadDir
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = DefaultMaxUploadMB
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".txt", ".pdf"}
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval = domain.DefaultAppSettings().Retrieval.Options()
	}

	s := &Server{ports: ports, cfg: cfg}
	if cfg.RateLimitRPS > 0 {
		s.limiter = ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat_stream", s.handleChatStream)
	mux.HandleFunc("POST /feedback", s.handleFeedback)
	mux.HandleFunc("GET /metrics/summary", s.handleMetricsSummary)

	s.handler = logRequests(cors(s.rateLimit(mux)))
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown: %v", err)
		}
	}()

	logger.Info("Listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
