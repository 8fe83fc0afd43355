package webapi

import (
	"github.com/evalview/traceview/internal/judge"
	"github.com/evalview/traceview/internal/models"
)

// TraceListResponse is the API response for a filtered trace page.
type TraceListResponse struct {
	Records    []models.TraceRecord `json:"records"`
	Total      int                  `json:"total"`
	NextOffset *int                 `json:"next_offset"`
	Truncated  bool                 `json:"truncated"`
}

// TraceDetailResponse is a single trace plus its turns rendered to HTML.
type TraceDetailResponse struct {
	Trace     models.TraceRecord `json:"trace"`
	TurnsHTML []string           `json:"turns_html"`
}

// TaskListResponse is the API response for a filtered task page.
type TaskListResponse struct {
	Tasks      []models.TaskRecord `json:"tasks"`
	Total      int                 `json:"total"`
	NextOffset *int                `json:"next_offset"`
	Truncated  bool                `json:"truncated"`
}

// RefreshRequest names the dataset to invalidate. An empty dataset clears
// every cached dataset.
type RefreshRequest struct {
	Dataset string `json:"dataset"`
}

// RefreshResponse reports which datasets were invalidated.
type RefreshResponse struct {
	Cleared []string `json:"cleared"`
}

// JudgeRequest asks the LLM judge for a summary or verdict on one trace.
// Mode is "summary" or "verdict".
type JudgeRequest struct {
	Dataset string `json:"dataset"`
	RunID   string `json:"run_id"`
	Mode    string `json:"mode"`
}

// JudgeResponse carries the judge output. Exactly one of Summary or Verdict
// is set, depending on the requested mode.
type JudgeResponse struct {
	Summary string         `json:"summary,omitempty"`
	Verdict *judge.Verdict `json:"verdict,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
