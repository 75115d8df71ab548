// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the analysis engine over HTTP: on-demand keyword
// analysis, trending-keyword discovery, health, and Prometheus metrics.
// See docs/ARCHITECTURE § HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lafarch/trendArbitrage/internal/engine"
	"github.com/lafarch/trendArbitrage/pkg/types"
)

// Runner runs one analysis batch. Satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, req types.RunRequest) (types.Batch, error)
}

// Trender discovers currently trending keywords for a region.
type Trender interface {
	Trending(ctx context.Context, geo string) ([]string, error)
}

// Saver persists finished batches. Satisfied by *store.Store.
type Saver interface {
	Save(ctx context.Context, batch types.Batch) error
}

// Server is the HTTP front end. Saver and Trender may be nil; the
// corresponding behavior is then disabled.
type Server struct {
	runner  Runner
	trender Trender
	saver   Saver
	cfg     types.ServerConfig
	log     *zap.Logger
	mux     *http.ServeMux
}

// New wires the routes and returns the server. A nil logger disables
// logging.
func New(runner Runner, trender Trender, saver Saver, cfg types.ServerConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}

	s := &Server{
		runner:  runner,
		trender: trender,
		saver:   saver,
		cfg:     cfg,
		log:     log,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /api/trending", s.handleTrending)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

// Handler returns the route multiplexer, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving requests until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleAnalyze runs a batch for ?keywords=a,b,c and returns the ranked
// results as JSON. Repeated keywords parameters are accepted too.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var keywords []string
	for _, raw := range q["keywords"] {
		keywords = append(keywords, strings.Split(raw, ",")...)
	}
	if len(engine.NormalizeKeywords(keywords)) == 0 {
		analyzeRequests.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		s.writeError(w, http.StatusBadRequest, "keywords parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	started := time.Now()
	batch, err := s.runner.Run(ctx, types.RunRequest{
		Keywords:  keywords,
		Timeframe: q.Get("timeframe"),
		Geo:       q.Get("geo"),
	})
	runDuration.Observe(time.Since(started).Seconds())

	// A timed-out run still carries its settled results; report them
	// with the partial flag rather than discarding the work.
	if err != nil && !errors.Is(err, engine.ErrPartialRun) {
		analyzeRequests.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		s.log.Error("analysis run failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "analysis run failed")
		return
	}

	// Persist independently of the client connection: a disconnect after
	// the run finished must not lose the run history.
	if s.saver != nil {
		if err := s.saver.Save(context.WithoutCancel(r.Context()), batch); err != nil {
			s.log.Error("saving run failed",
				zap.String("run_id", batch.RunID), zap.Error(err))
		}
	}

	analyzeRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	s.writeJSON(w, http.StatusOK, batch)
}

// handleTrending returns the provider's trending keywords for ?geo=.
func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if s.trender == nil {
		s.writeError(w, http.StatusNotImplemented, "no trending source configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	geo := r.URL.Query().Get("geo")
	keywords, err := s.trender.Trending(ctx, geo)
	if err != nil {
		s.log.Error("trending fetch failed", zap.String("geo", geo), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "trending fetch failed")
		return
	}
	if keywords == nil {
		keywords = []string{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"geo":      geo,
		"keywords": keywords,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
