package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/stayscore/stayscore/internal/analyzer"
	"github.com/stayscore/stayscore/internal/jobs"
	"github.com/stayscore/stayscore/internal/logging"
	"github.com/stayscore/stayscore/internal/scheduler"
	"github.com/stayscore/stayscore/internal/store"

	_ "github.com/stayscore/stayscore/docs/swagger" // swagger spec registration
	_ "modernc.org/sqlite"                          // SQLite driver
)

// Server is the HTTP API surface for the audit service.
type Server struct {
	cfg       Config
	router    chi.Router
	logger    logging.Logger
	db        *sql.DB
	store     *store.Store
	tracker   *jobs.Tracker
	scheduler *scheduler.Scheduler
	analyzer  *analyzer.Analyzer
}

// NewServer creates a Server with its own store, tracker and scheduler.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	dsn := cfg.DBPath
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dsn == "file::memory:?cache=shared" {
		// A shared in-memory db disappears when its last connection closes.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		logger.Warn("setting pragmas", logging.Field{Key: "error", Value: err.Error()})
	}

	st, err := store.New(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		logger:  logger,
		db:      db,
		store:   st,
		tracker: jobs.NewTracker(),
	}

	run := cfg.Runner
	if run == nil {
		an, err := analyzer.New(cfg.Analyzer, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating analyzer: %w", err)
		}
		s.analyzer = an
		run = an
	}
	s.scheduler = scheduler.New(cfg.Scheduler, st, s.tracker, run, logger)

	s.routes()
	return s, nil
}

// Store exposes the underlying store for advanced use (tests, tooling).
func (s *Server) Store() *store.Store { return s.store }

// Scheduler exposes the scheduler for advanced use (tests, graceful drains).
func (s *Server) Scheduler() *scheduler.Scheduler { return s.scheduler }

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/batches", s.optionsHandler("GET, POST"))
	r.Options("/batches/{batchID}", s.optionsHandler("GET, PATCH, DELETE"))
	r.Options("/batches/{batchID}/start", s.optionsHandler("POST"))
	r.Options("/audits/{auditID}", s.optionsHandler("GET"))
	r.Options("/audit/recalculate", s.optionsHandler("POST"))
	r.Options("/jobs", s.optionsHandler("GET"))
	r.Options("/jobs/{jobID}", s.optionsHandler("GET"))

	// Batches
	r.Post("/batches", s.handleCreateBatch)
	r.Get("/batches", s.handleListBatches)
	r.Get("/batches/{batchID}", s.handleGetBatch)
	r.Post("/batches/{batchID}/start", s.handleStartBatch)
	r.Patch("/batches/{batchID}", s.handleUpdateBatch)
	r.Delete("/batches/{batchID}", s.handleDeleteBatch)

	// Audits
	r.Get("/audits/{auditID}", s.handleGetAudit)
	r.Post("/audit/recalculate", s.handleRecalculateAudit)

	// Jobs (read-only polling)
	r.Get("/jobs", s.handleListJobs)
	r.Get("/jobs/{jobID}", s.handleGetJob)

	r.Get("/healthz", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the server's resources.
func (s *Server) Close() {
	if s.analyzer != nil {
		s.analyzer.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
