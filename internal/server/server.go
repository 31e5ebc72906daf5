// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/oraspectre/internal/engine"
)

const (
	defaultMaxBody  = 1 << 20
	maxBatchSize    = 500
	shutdownTimeout = 5 * time.Second
)

// Analyzer runs analyses. *engine.Engine satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req engine.Request) *engine.Response
	AnalyzeBatch(ctx context.Context, reqs []engine.Request, workers int) []*engine.Response
}

// Config holds configuration for the HTTP server.
type Config struct {
	Engine Analyzer
	Addr   string
	// Connections lists the configured connection ids.
	Connections []string
	Parallel    int
	// MaxBodyBytes caps request bodies; zero means 1 MiB.
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// Server serves the analysis API.
type Server struct {
	engine      Analyzer
	addr        string
	connections []string
	parallel    int
	maxBody     int64
	logger      *slog.Logger
}

// New creates a server instance.
func New(cfg Config) *Server {
	s := &Server{
		engine:      cfg.Engine,
		addr:        cfg.Addr,
		connections: cfg.Connections,
		parallel:    cfg.Parallel,
		maxBody:     cfg.MaxBodyBytes,
		logger:      cfg.Logger,
	}
	if s.maxBody <= 0 {
		s.maxBody = defaultMaxBody
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.connections == nil {
		s.connections = []string{}
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.logRequests,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/connections", s.listConnections)
		r.Post("/analyze", s.analyze)
		r.Post("/analyze/batch", s.analyzeBatch)
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down API server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"parserVersion": engine.ParserVersion,
	})
}

func (s *Server) listConnections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"connections": s.connections})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req engine.Request
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(err, start))
		return
	}
	resp := s.engine.Analyze(r.Context(), req)
	writeJSON(w, StatusFor(resp), resp)
}

// BatchRequest is the body of POST /api/v1/analyze/batch.
type BatchRequest struct {
	Requests []engine.Request `json:"requests"`
}

// BatchResponse holds one response per request, in request order.
type BatchResponse struct {
	Responses []*engine.Response `json:"responses"`
}

func (s *Server) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req BatchRequest
	if err := s.decode(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, badRequest(err, start))
		return
	}
	if len(req.Requests) > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, badRequest(fmt.Errorf("batch holds %d requests, limit is %d", len(req.Requests), maxBatchSize), start))
		return
	}
	out := s.engine.AnalyzeBatch(r.Context(), req.Requests, s.parallel)
	if out == nil {
		out = []*engine.Response{}
	}
	writeJSON(w, http.StatusOK, BatchResponse{Responses: out})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// StatusFor maps a response to its HTTP status: 200 on success, 400 for
// input errors, 500 for internal failures.
func StatusFor(resp *engine.Response) int {
	if resp == nil {
		return http.StatusInternalServerError
	}
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error != nil && resp.Error.Code == engine.CodeInternalError {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// badRequest builds the failure response for a body that never reached the
// engine. It carries the same metadata an analysis would.
func badRequest(err error, start time.Time) *engine.Response {
	return &engine.Response{
		Error: &engine.AnalysisError{Code: engine.CodeInvalidSQL, Message: err.Error()},
		Metadata: engine.Metadata{
			AnalysisID:      uuid.NewString(),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Timestamp:       start.UTC(),
			ParserVersion:   engine.ParserVersion,
			Stage:           engine.StageFailed,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// logRequests logs one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds())
		}()
		next.ServeHTTP(ww, r)
	})
}
