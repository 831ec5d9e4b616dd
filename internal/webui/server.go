package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"hdrconv/internal/config"
	"hdrconv/internal/deps"
	"hdrconv/internal/history"
	"hdrconv/internal/jobs"
	"hdrconv/internal/logging"
)

//go:embed index.html
var indexHTML []byte

// StatusFunc reports external tool availability for /api/status.
type StatusFunc func() []deps.Status

// HistoryFunc returns up to limit finished conversions, newest first.
type HistoryFunc func(ctx context.Context, limit int) ([]history.Entry, error)

// Option configures a Server.
type Option func(*Server)

// WithHistory enables GET /api/history.
func WithHistory(fn HistoryFunc) Option {
	return func(s *Server) {
		s.history = fn
	}
}

// Server is the HTTP front end over a jobs store.
type Server struct {
	bind           string
	uploadDir      string
	outputDir      string
	maxUploadBytes int64
	logger         *slog.Logger
	store          *jobs.Store
	status         StatusFunc
	history        HistoryFunc
	ensureUpload   func() error

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New builds a server bound to cfg.Server.Bind. status may be nil.
func New(cfg *config.Config, store *jobs.Store, status StatusFunc, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("webui: config and job store required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:           strings.TrimSpace(cfg.Server.Bind),
		uploadDir:      cfg.Paths.UploadDir,
		outputDir:      cfg.Paths.OutputDir,
		maxUploadBytes: cfg.MaxUploadBytes(),
		logger:         logging.NewComponentLogger(logger, "webui"),
		store:          store,
		status:         status,
		ensureUpload:   cfg.EnsureUploadDir,
	}
	for _, opt := range opts {
		opt(s)
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/status", s.handleStatus)
	api.HandleFunc("GET /api/jobs", s.handleListJobs)
	api.HandleFunc("POST /api/jobs", s.handleUpload)
	api.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	api.HandleFunc("POST /api/jobs/{id}/cancel", s.handleCancelJob)
	api.HandleFunc("GET /api/jobs/{id}/output", s.handleDownload)
	api.HandleFunc("GET /api/history", s.handleHistory)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("/api/", api)

	s.handler = requestMiddleware(s.logger, mux)
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		// Bodies are multi-gigabyte uploads and downloads; only headers are bounded.
		IdleTimeout: 60 * time.Second,
	}
	return s, nil
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webui listen: %w", err)
	}
	s.listener = listener
	s.server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webui server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("webui listening", logging.String("address", listener.Addr().String()))
	return nil
}

// URL returns the browsable address once Start has succeeded.
func (s *Server) URL() string {
	if s.listener == nil {
		return ""
	}
	addr := s.listener.Addr().String()
	host, port, err := net.SplitHostPort(addr)
	if err == nil && (host == "" || host == "0.0.0.0" || host == "::") {
		addr = net.JoinHostPort("127.0.0.1", port)
	}
	return "http://" + addr + "/"
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(indexHTML)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
