package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/judge"
	"github.com/evalview/traceview/internal/models"
	"github.com/evalview/traceview/internal/tasks"
	"github.com/evalview/traceview/internal/traces"
)

// fakeTraceStore implements TraceStore for testing.
type fakeTraceStore struct {
	page    *traces.Page
	listErr error

	rec   models.TraceRecord
	found bool

	facets *models.TraceFacets

	datasets []string
	cleared  []string

	lastDataset string
	lastFilter  traces.Filter
}

func (f *fakeTraceStore) List(_ context.Context, dataset string, filter traces.Filter) (*traces.Page, error) {
	f.lastDataset = dataset
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func (f *fakeTraceStore) Get(_ context.Context, dataset, runID string) (models.TraceRecord, bool) {
	f.lastDataset = dataset
	return f.rec, f.found
}

func (f *fakeTraceStore) Metadata(_ context.Context, dataset string) *models.TraceFacets {
	f.lastDataset = dataset
	return f.facets
}

func (f *fakeTraceStore) ClearCache(dataset string) {
	f.cleared = append(f.cleared, dataset)
}

func (f *fakeTraceStore) CachedDatasets() []string { return f.datasets }

func (f *fakeTraceStore) Prefetch(context.Context, string) fetch.Stats { return fetch.Stats{} }

// fakeTaskStore implements TaskStore for testing.
type fakeTaskStore struct {
	page    *tasks.Page
	listErr error

	task  models.TaskRecord
	found bool

	cleared []string
}

func (f *fakeTaskStore) List(_ context.Context, dataset string, filter tasks.Filter) (*tasks.Page, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.page, nil
}

func (f *fakeTaskStore) Get(_ context.Context, dataset, path string) (models.TaskRecord, bool) {
	return f.task, f.found
}

func (f *fakeTaskStore) ClearCache(dataset string) {
	f.cleared = append(f.cleared, dataset)
}

// fakeJudge implements TraceJudge for testing.
type fakeJudge struct {
	summary string
	verdict *judge.Verdict
	err     error
}

func (f *fakeJudge) Summarize(context.Context, models.TraceRecord) (string, error) {
	return f.summary, f.err
}

func (f *fakeJudge) Verdict(context.Context, models.TraceRecord) (*judge.Verdict, error) {
	return f.verdict, f.err
}

func sampleTrace() models.TraceRecord {
	return models.TraceRecord{
		RunID:    "run-1",
		Agent:    "agent-a",
		Model:    "gpt-4",
		Provider: "openai",
		Task:     "task-1",
		Episode:  "ep-1",
		Trial:    "trial-1",
		Date:     "2026-01-15",
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: "# Hello"},
			{Role: models.RoleAssistant, Content: "done"},
		},
	}
}

func doRequest(h http.HandlerFunc, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func TestHandleHealth(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleHealth, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeBody[HealthResponse](t, w)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Version == "" {
		t.Error("version should not be empty")
	}
}

func TestHandleTraces(t *testing.T) {
	next := 20
	store := &fakeTraceStore{
		page: &traces.Page{
			Records:    []models.TraceRecord{sampleTrace()},
			Total:      120,
			NextOffset: &next,
			Truncated:  true,
		},
	}
	h := NewHandlers(store, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraces, http.MethodGet,
		"/api/traces?dataset=acme/evalset&model=gpt-4&limit=10&offset=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	if store.lastDataset != "acme/evalset" {
		t.Errorf("dataset = %q, want acme/evalset", store.lastDataset)
	}
	want := traces.Filter{Model: "gpt-4", Limit: 10, Offset: 10}
	if store.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", store.lastFilter, want)
	}

	resp := decodeBody[TraceListResponse](t, w)
	if len(resp.Records) != 1 || resp.Total != 120 {
		t.Errorf("records = %d total = %d, want 1/120", len(resp.Records), resp.Total)
	}
	if resp.NextOffset == nil || *resp.NextOffset != 20 {
		t.Errorf("next_offset = %v, want 20", resp.NextOffset)
	}
	if !resp.Truncated {
		t.Error("truncated should be true")
	}
}

func TestHandleTraces_DefaultLimit(t *testing.T) {
	store := &fakeTraceStore{page: &traces.Page{}}
	h := NewHandlers(store, &fakeTaskStore{}, nil)

	doRequest(h.HandleTraces, http.MethodGet, "/api/traces?dataset=d", "")
	if store.lastFilter.Limit != traces.DefaultLimit {
		t.Errorf("limit = %d, want %d", store.lastFilter.Limit, traces.DefaultLimit)
	}
}

func TestHandleTraces_MissingDataset(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraces, http.MethodGet, "/api/traces", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleTraces_BadLimit(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraces, http.MethodGet, "/api/traces?dataset=d&limit=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleTraces_InvalidFilter(t *testing.T) {
	store := &fakeTraceStore{listErr: traces.ErrInvalidFilter}
	h := NewHandlers(store, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraces, http.MethodGet, "/api/traces?dataset=d&limit=-5", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleTraceDetail(t *testing.T) {
	store := &fakeTraceStore{rec: sampleTrace(), found: true}
	h := NewHandlers(store, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraceDetail, http.MethodGet,
		"/api/trace?dataset=d&run_id=run-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[TraceDetailResponse](t, w)
	if resp.Trace.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", resp.Trace.RunID)
	}
	if len(resp.TurnsHTML) != 2 {
		t.Fatalf("turns_html length = %d, want 2", len(resp.TurnsHTML))
	}
	if !strings.Contains(resp.TurnsHTML[0], "<h1") {
		t.Errorf("first turn should render markdown heading, got %q", resp.TurnsHTML[0])
	}
}

func TestHandleTraceDetail_NotFound(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraceDetail, http.MethodGet,
		"/api/trace?dataset=d&run_id=missing", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleTraceDetail_MissingParams(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTraceDetail, http.MethodGet, "/api/trace?dataset=d", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleMetadata(t *testing.T) {
	store := &fakeTraceStore{
		facets: &models.TraceFacets{
			Models: []string{"gpt-4"},
			Tasks:  []string{"task-1"},
		},
	}
	h := NewHandlers(store, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleMetadata, http.MethodGet, "/api/metadata?dataset=d", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[models.TraceFacets](t, w)
	if len(resp.Models) != 1 || resp.Models[0] != "gpt-4" {
		t.Errorf("models = %v, want [gpt-4]", resp.Models)
	}
}

func TestHandleTasks(t *testing.T) {
	store := &fakeTaskStore{
		page: &tasks.Page{
			Tasks: []models.TaskRecord{{Path: "suite/t1.tar.gz"}},
			Total: 1,
		},
	}
	h := NewHandlers(&fakeTraceStore{}, store, nil)

	w := doRequest(h.HandleTasks, http.MethodGet, "/api/tasks?dataset=d", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[TaskListResponse](t, w)
	if len(resp.Tasks) != 1 || resp.Tasks[0].Path != "suite/t1.tar.gz" {
		t.Errorf("tasks = %+v", resp.Tasks)
	}
}

func TestHandleTaskDetail_NotFound(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleTaskDetail, http.MethodGet,
		"/api/task?dataset=d&path=missing.tar.gz", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestHandleRefresh_SingleDataset(t *testing.T) {
	traceStore := &fakeTraceStore{}
	taskStore := &fakeTaskStore{}
	h := NewHandlers(traceStore, taskStore, nil)

	w := doRequest(h.HandleRefresh, http.MethodPost, "/api/refresh",
		`{"dataset":"acme/evalset"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if len(traceStore.cleared) != 1 || traceStore.cleared[0] != "acme/evalset" {
		t.Errorf("trace cleared = %v", traceStore.cleared)
	}
	if len(taskStore.cleared) != 1 || taskStore.cleared[0] != "acme/evalset" {
		t.Errorf("task cleared = %v", taskStore.cleared)
	}

	resp := decodeBody[RefreshResponse](t, w)
	if len(resp.Cleared) != 1 || resp.Cleared[0] != "acme/evalset" {
		t.Errorf("cleared = %v", resp.Cleared)
	}
}

func TestHandleRefresh_AllDatasets(t *testing.T) {
	traceStore := &fakeTraceStore{datasets: []string{"a/x", "b/y"}}
	h := NewHandlers(traceStore, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleRefresh, http.MethodPost, "/api/refresh", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[RefreshResponse](t, w)
	if len(resp.Cleared) != 2 {
		t.Errorf("cleared = %v, want both datasets", resp.Cleared)
	}
}

func TestHandleJudge_Summary(t *testing.T) {
	traceStore := &fakeTraceStore{rec: sampleTrace(), found: true}
	j := &fakeJudge{summary: "the agent completed the task"}
	h := NewHandlers(traceStore, &fakeTaskStore{}, j)

	w := doRequest(h.HandleJudge, http.MethodPost, "/api/judge",
		`{"dataset":"d","run_id":"run-1","mode":"summary"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	resp := decodeBody[JudgeResponse](t, w)
	if resp.Summary != "the agent completed the task" {
		t.Errorf("summary = %q", resp.Summary)
	}
}

func TestHandleJudge_Verdict(t *testing.T) {
	traceStore := &fakeTraceStore{rec: sampleTrace(), found: true}
	j := &fakeJudge{verdict: &judge.Verdict{Passed: true, Score: 0.9, Reasoning: "solid"}}
	h := NewHandlers(traceStore, &fakeTaskStore{}, j)

	w := doRequest(h.HandleJudge, http.MethodPost, "/api/judge",
		`{"dataset":"d","run_id":"run-1","mode":"verdict"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	resp := decodeBody[JudgeResponse](t, w)
	if resp.Verdict == nil || !resp.Verdict.Passed {
		t.Errorf("verdict = %+v", resp.Verdict)
	}
}

func TestHandleJudge_NotConfigured(t *testing.T) {
	h := NewHandlers(&fakeTraceStore{}, &fakeTaskStore{}, nil)

	w := doRequest(h.HandleJudge, http.MethodPost, "/api/judge",
		`{"dataset":"d","run_id":"run-1"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHandleJudge_UpstreamError(t *testing.T) {
	traceStore := &fakeTraceStore{rec: sampleTrace(), found: true}
	j := &fakeJudge{err: errors.New("model overloaded")}
	h := NewHandlers(traceStore, &fakeTaskStore{}, j)

	w := doRequest(h.HandleJudge, http.MethodPost, "/api/judge",
		`{"dataset":"d","run_id":"run-1"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestHandleJudge_UnknownMode(t *testing.T) {
	traceStore := &fakeTraceStore{rec: sampleTrace(), found: true}
	h := NewHandlers(traceStore, &fakeTaskStore{}, &fakeJudge{})

	w := doRequest(h.HandleJudge, http.MethodPost, "/api/judge",
		`{"dataset":"d","run_id":"run-1","mode":"vibe"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin gets headers", func(t *testing.T) {
		h := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
			t.Errorf("Allow-Origin = %q", got)
		}
	})

	t.Run("disallowed origin gets no headers", func(t *testing.T) {
		h := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Allow-Origin = %q, want empty", got)
		}
	})

	t.Run("preflight returns 204", func(t *testing.T) {
		h := CORSMiddleware(inner, "http://localhost:5173")
		req := httptest.NewRequest(http.MethodOptions, "/api/traces", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
	})
}
