// Package server exposes the query catalog and recorded benchmark results
// over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
)

type Server struct {
	log     *slog.Logger
	cfg     Config
	cat     *catalog.Catalog
	httpSrv *http.Server
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		log: cfg.Logger,
		cfg: cfg,
		cat: cfg.Catalog,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok\n")); err != nil {
			s.log.Error("failed to write healthz response", "error", err)
		}
	})
	router.Get("/readyz", s.readyzHandler)
	router.Get("/version", s.versionHandler)
	router.Handle("/metrics", promhttp.Handler())

	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Every(time.Minute / 100)
	}
	burst := cfg.RateLimitBurst
	if burst == 0 {
		burst = 20
	}
	limiter := NewRateLimiter(limit, burst)

	router.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(limiter))
		r.Get("/suites", s.listSuitesHandler)
		r.Get("/suites/{suite}/queries", s.listQueriesHandler)
		r.Get("/suites/{suite}/queries/{query}/engines", s.listEnginesHandler)
		r.Get("/suites/{suite}/queries/{query}/sql", s.querySQLHandler)
		r.Get("/suites/{suite}/schema", s.schemaHandler)
		r.Get("/benchmarks", s.listBenchmarksHandler)
	})

	readHeaderTimeout := cfg.ReadHeaderTimeout
	if readHeaderTimeout == 0 {
		readHeaderTimeout = 10 * time.Second
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	return s, nil
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves HTTP until the context is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	serveErrCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- fmt.Errorf("failed to listen and serve: %w", err)
		}
	}()

	s.log.Info("server: http listening", "address", s.cfg.ListenAddr)

	select {
	case <-ctx.Done():
		s.log.Info("server: stopping", "reason", ctx.Err(), "address", s.cfg.ListenAddr)
		shutdownTimeout := s.cfg.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 30 * time.Second
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		s.log.Info("server: http server shutdown complete")
		return nil
	case err := <-serveErrCh:
		return err
	}
}

func (s *Server) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if len(s.cat.Suites()) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte("catalog not loaded\n")); err != nil {
			s.log.Error("failed to write readyz response", "error", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		s.log.Error("failed to write readyz response", "error", err)
	}
}

func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.VersionInfo)
}

type suiteResponse struct {
	Name    string           `json:"name"`
	Engines []catalog.Engine `json:"engines"`
}

func (s *Server) listSuitesHandler(w http.ResponseWriter, r *http.Request) {
	suites := s.cat.Suites()
	response := make([]suiteResponse, 0, len(suites))
	for _, name := range suites {
		engines, err := s.cat.SuiteEngines(name)
		if err != nil {
			s.writeCatalogError(w, err)
			return
		}
		response = append(response, suiteResponse{Name: name, Engines: engines})
	}
	s.writeJSON(w, http.StatusOK, response)
}

type queryResponse struct {
	ID         string           `json:"id"`
	Iterations int              `json:"iterations"`
	Skip       []catalog.Engine `json:"skip,omitempty"`
}

func (s *Server) listQueriesHandler(w http.ResponseWriter, r *http.Request) {
	queries, err := s.cat.Queries(chi.URLParam(r, "suite"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}

	response := make([]queryResponse, 0, len(queries))
	for _, q := range queries {
		response = append(response, queryResponse{ID: q.ID, Iterations: q.Iterations, Skip: q.Skip})
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) listEnginesHandler(w http.ResponseWriter, r *http.Request) {
	engines, err := s.cat.ListEngines(chi.URLParam(r, "suite"), chi.URLParam(r, "query"))
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	if engines == nil {
		engines = []catalog.Engine{}
	}
	s.writeJSON(w, http.StatusOK, engines)
}

func (s *Server) querySQLHandler(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engineParam(w, r)
	if !ok {
		return
	}

	sql, err := s.cat.Resolve(chi.URLParam(r, "suite"), chi.URLParam(r, "query"), engine)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeSQL(w, sql)
}

func (s *Server) schemaHandler(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.engineParam(w, r)
	if !ok {
		return
	}

	ddl, err := s.cat.SchemaFor(chi.URLParam(r, "suite"), engine)
	if err != nil {
		s.writeCatalogError(w, err)
		return
	}
	s.writeSQL(w, ddl)
}

type benchmarkResponse struct {
	ID         int64      `json:"id"`
	Suite      string     `json:"suite"`
	DB         string     `json:"db"`
	Operation  string     `json:"operation"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

func (s *Server) listBenchmarksHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "results store not configured")
		return
	}

	benchmarks, err := s.cfg.Store.ListBenchmarks(r.Context())
	if err != nil {
		s.log.Error("failed to list benchmarks", "error", err)
		sentry.CaptureException(err)
		s.writeError(w, http.StatusInternalServerError, "failed to list benchmarks")
		return
	}

	response := make([]benchmarkResponse, 0, len(benchmarks))
	for _, b := range benchmarks {
		response = append(response, benchmarkResponse{
			ID:         b.ID,
			Suite:      b.Suite,
			DB:         b.DB,
			Operation:  b.Operation,
			StartedAt:  b.StartedAt,
			FinishedAt: b.FinishedAt,
			Notes:      b.Notes,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

// engineParam parses the required ?engine= query parameter.
func (s *Server) engineParam(w http.ResponseWriter, r *http.Request) (catalog.Engine, bool) {
	name := r.URL.Query().Get("engine")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "engine query parameter is required")
		return "", false
	}
	engine, err := catalog.ParseEngine(name)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return engine, true
}

// writeCatalogError maps catalog errors to status codes: missing
// suites/queries/schemas are 404, ambiguous query ids are 409.
func (s *Server) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrAmbiguous):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("catalog error", "error", err)
		sentry.CaptureException(err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeSQL(w http.ResponseWriter, sql string) {
	w.Header().Set("Content-Type", "application/sql")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(sql)); err != nil {
		s.log.Error("failed to write sql response", "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
