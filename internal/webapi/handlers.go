// Package webapi implements the JSON API consumed by the dashboard.
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/evalview/traceview/internal/render"
	"github.com/evalview/traceview/internal/tasks"
	"github.com/evalview/traceview/internal/traces"
)

// Version is set at build time or defaults to dev.
var Version = "0.2.0"

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	traces TraceStore
	tasks  TaskStore
	judge  TraceJudge
}

// NewHandlers creates a new Handlers. judge may be nil when no API key is
// configured; the judge endpoint then returns an error.
func NewHandlers(traceStore TraceStore, taskStore TaskStore, judge TraceJudge) *Handlers {
	return &Handlers{traces: traceStore, tasks: taskStore, judge: judge}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleTraces returns one page of traces for a dataset. Dataset identifiers
// contain slashes, so the dataset rides in a query parameter rather than a
// path segment.
func (h *Handlers) HandleTraces(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	f := traces.Filter{
		RunID: r.URL.Query().Get("run_id"),
		Model: r.URL.Query().Get("model"),
		Task:  r.URL.Query().Get("task"),
		Trial: r.URL.Query().Get("trial"),
	}
	var err error
	f.Limit, err = intParam(r, "limit", traces.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Offset, err = intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.traces.List(r.Context(), dataset, f)
	if err != nil {
		if errors.Is(err, traces.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, TraceListResponse{
		Records:    page.Records,
		Total:      page.Total,
		NextOffset: page.NextOffset,
		Truncated:  page.Truncated,
	})
}

// HandleTraceDetail returns a single trace with its turns rendered to HTML.
func (h *Handlers) HandleTraceDetail(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	runID := r.URL.Query().Get("run_id")
	if dataset == "" || runID == "" {
		writeError(w, http.StatusBadRequest, "dataset and run_id are required")
		return
	}

	rec, ok := h.traces.Get(r.Context(), dataset, runID)
	if !ok {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	turnsHTML := make([]string, len(rec.Turns))
	for i, turn := range rec.Turns {
		html, err := render.Markdown(turn.Content)
		if err != nil {
			html = turn.Content // serve the raw text rather than fail the detail
		}
		turnsHTML[i] = html
	}

	writeJSON(w, http.StatusOK, TraceDetailResponse{
		Trace:     rec,
		TurnsHTML: turnsHTML,
	})
}

// HandleMetadata returns the facet lists for a dataset.
func (h *Handlers) HandleMetadata(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}
	writeJSON(w, http.StatusOK, h.traces.Metadata(r.Context(), dataset))
}

// HandleTasks returns one page of extracted tasks for a dataset.
func (h *Handlers) HandleTasks(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	f := tasks.Filter{Path: r.URL.Query().Get("path")}
	var err error
	f.Limit, err = intParam(r, "limit", traces.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.Offset, err = intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.tasks.List(r.Context(), dataset, f)
	if err != nil {
		if errors.Is(err, tasks.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, TaskListResponse{
		Tasks:      page.Tasks,
		Total:      page.Total,
		NextOffset: page.NextOffset,
		Truncated:  page.Truncated,
	})
}

// HandleTaskDetail returns a single extracted task by path.
func (h *Handlers) HandleTaskDetail(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	path := r.URL.Query().Get("path")
	if dataset == "" || path == "" {
		writeError(w, http.StatusBadRequest, "dataset and path are required")
		return
	}

	task, ok := h.tasks.Get(r.Context(), dataset, path)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleRefresh invalidates cached datasets so the next read refetches.
func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cleared := []string{req.Dataset}
	if req.Dataset == "" {
		cleared = h.traces.CachedDatasets()
	}
	h.traces.ClearCache(req.Dataset)
	h.tasks.ClearCache(req.Dataset)

	writeJSON(w, http.StatusOK, RefreshResponse{Cleared: cleared})
}

// HandleJudge runs the LLM judge against a single trace.
func (h *Handlers) HandleJudge(w http.ResponseWriter, r *http.Request) {
	if h.judge == nil {
		writeError(w, http.StatusServiceUnavailable, "judge is not configured; set OPENAI_API_KEY")
		return
	}

	var req JudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Dataset == "" || req.RunID == "" {
		writeError(w, http.StatusBadRequest, "dataset and run_id are required")
		return
	}

	rec, ok := h.traces.Get(r.Context(), req.Dataset, req.RunID)
	if !ok {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	switch req.Mode {
	case "", "summary":
		summary, err := h.judge.Summarize(r.Context(), rec)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, JudgeResponse{Summary: summary})
	case "verdict":
		verdict, err := h.judge.Verdict(r.Context(), rec)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, JudgeResponse{Verdict: verdict})
	default:
		writeError(w, http.StatusBadRequest, "mode must be \"summary\" or \"verdict\"")
	}
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, traceStore TraceStore, taskStore TaskStore, judge TraceJudge) {
	h := NewHandlers(traceStore, taskStore, judge)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/traces", h.HandleTraces)
	mux.HandleFunc("GET /api/trace", h.HandleTraceDetail)
	mux.HandleFunc("GET /api/metadata", h.HandleMetadata)
	mux.HandleFunc("GET /api/tasks", h.HandleTasks)
	mux.HandleFunc("GET /api/task", h.HandleTaskDetail)
	mux.HandleFunc("POST /api/refresh", h.HandleRefresh)
	mux.HandleFunc("POST /api/judge", h.HandleJudge)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if len(allowedOrigins) > 0 && origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// intParam parses an optional non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
