package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codewithboateng/riskrule/internal/analyzer"
	"github.com/codewithboateng/riskrule/internal/metrics"
	"github.com/codewithboateng/riskrule/internal/pipeline"
	"github.com/codewithboateng/riskrule/internal/storage"
)

const maxDocumentBytes = 1 << 20 // rule documents are small; cap uploads

// Store is the minimal run-persistence contract the API needs.
type Store interface {
	SaveRun(run *storage.Run) error
	LoadRun(id string) (storage.Run, error)
	LatestRun(modelID string) (storage.Run, error)
	ListRuns(limit int) ([]storage.Run, error)
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogAudit(username, action, resource string, meta map[string]any) error
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Logger          *slog.Logger
	Metrics         *metrics.Collector
	Analysis        analyzer.Config
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	// Health
	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", withCORS(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", withCORS(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", withCORS(withAuth(s, s.handleMe, "me")))

	// Document pipeline
	mux.HandleFunc("POST /api/v1/validate", withCORS(withAuth(s, s.handleValidate, "validate")))
	mux.HandleFunc("POST /api/v1/analyze", withCORS(withAuth(s, s.handleAnalyze, "analyze")))

	// Recorded runs
	mux.HandleFunc("GET /api/v1/runs", withCORS(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/latest", withCORS(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/runs/{id}", withCORS(s.handleGetRun))

	// Metrics
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	// Fallback 404
	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

// handleValidate runs the error-reporting stages on the posted document
// and records the outcome.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	res := pipeline.Validate(data)
	run := s.recordRun(res, "api:validate")
	s.countOutcome(res)

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"valid":  res.Valid(),
		"errors": errorStrings(res),
	})
}

// handleAnalyze runs the full pipeline and returns the report.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readDocument(w, r)
	if !ok {
		return
	}
	start := time.Now()
	res := pipeline.Run(data, s.Analysis)
	if s.Metrics != nil {
		s.Metrics.AnalyzeDuration.Observe(time.Since(start).Seconds())
		if res.Report != nil {
			s.Metrics.WarningsEmitted.Add(float64(len(res.Report.Warnings)))
		}
	}
	run := s.recordRun(res, "api:analyze")
	s.countOutcome(res)

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"valid":  res.Valid(),
		"errors": errorStrings(res),
		"report": res.Report,
	})
}

func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes+1))
	if err != nil {
		s.err(w, http.StatusBadRequest, "read error: "+err.Error())
		return nil, false
	}
	if len(data) > maxDocumentBytes {
		s.err(w, http.StatusRequestEntityTooLarge, "document too large")
		return nil, false
	}
	if len(data) == 0 {
		s.err(w, http.StatusBadRequest, "empty document")
		return nil, false
	}
	return data, true
}

func (s *Server) recordRun(res *pipeline.Result, source string) *storage.Run {
	run := &storage.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Source:    source,
		Valid:     res.Valid(),
		Errors:    errorStrings(res),
		Report:    res.Report,
	}
	if res.Model != nil {
		run.ModelID = res.Model.ModelID
		run.ModelName = res.Model.Name
	}
	if s.DB != nil {
		if err := s.DB.SaveRun(run); err != nil {
			s.Logger.Error("save run", "run_id", run.ID, "err", err)
		}
	}
	return run
}

func (s *Server) countOutcome(res *pipeline.Result) {
	if s.Metrics == nil {
		return
	}
	if res.Valid() {
		s.Metrics.DocumentsValidated.Inc()
	} else {
		s.Metrics.DocumentsFailed.Inc()
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := clamp(parseInt(r.URL.Query().Get("limit"), 20), 1, 200)
	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": runs, "limit": limit,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.DB.LoadRun(id)
	if err != nil {
		s.err(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetLatest returns the newest run, optionally scoped to a model.
func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	if modelID := strings.TrimSpace(r.URL.Query().Get("model_id")); modelID != "" {
		run, err := s.DB.LatestRun(modelID)
		if err != nil {
			s.err(w, http.StatusNotFound, "no runs for model")
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}
	runs, err := s.DB.ListRuns(1)
	if err != nil || len(runs) == 0 {
		s.err(w, http.StatusNotFound, "no runs")
		return
	}
	writeJSON(w, http.StatusOK, runs[0])
}

func errorStrings(res *pipeline.Result) []string {
	errs := res.Errors()
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
