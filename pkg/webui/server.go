// Package webui serves the browser front end for image generation: a single
// page with a prompt form, a JSON generate endpoint, and the output gallery.
package webui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haivivi/jimeng/pkg/history"
	"github.com/haivivi/jimeng/pkg/jimeng"
)

//go:embed templates/*
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// maxBodyBytes caps the /generate request body.
const maxBodyBytes = 1 << 20

// Generator runs one generate invocation. *jimeng.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req jimeng.GenerationRequest) (*jimeng.GenerationResult, error)
}

// Store is the output store the gallery reads from. storage.FileStore
// satisfies it.
type Store interface {
	history.Lister
	Read(ctx context.Context, name string) (io.ReadCloser, error)
}

// Config configures a Server.
type Config struct {
	Generator Generator
	Store     Store

	// Index enriches gallery entries with recorded metadata. Optional.
	Index *history.Index

	Logger *slog.Logger
}

// Server is the web UI HTTP handler.
type Server struct {
	gen    Generator
	store  Store
	index  *history.Index
	logger *slog.Logger
	router chi.Router
}

// New creates a Server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		gen:    cfg.Generator,
		store:  cfg.Store,
		index:  cfg.Index,
		logger: cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	r.Get("/", s.handleIndex)
	r.Post("/generate", s.handleGenerate)
	r.Get("/output", s.handleOutput)
	r.Get("/output/{name}", s.handleOutputFile)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully, waiting at most shutdownTimeout for in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web ui listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("web ui shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, closing", "error", err)
		return srv.Close()
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start).Round(time.Millisecond),
				"req", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type indexData struct {
	Sizes       []string
	DefaultSize string
	MaxCount    int
	MaxPrompt   int
	Scale       float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTmpl.Execute(w, indexData{
		Sizes:       jimeng.SupportedSizes,
		DefaultSize: jimeng.DefaultSize,
		MaxCount:    jimeng.MaxCount,
		MaxPrompt:   jimeng.MaxPromptLength,
		Scale:       jimeng.DefaultScale,
	})
	if err != nil {
		s.logger.Error("render index", "error", err)
	}
}
