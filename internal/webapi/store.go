package webapi

import (
	"context"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/judge"
	"github.com/evalview/traceview/internal/models"
	"github.com/evalview/traceview/internal/tasks"
	"github.com/evalview/traceview/internal/traces"
)

// TraceStore provides access to materialized trace data.
type TraceStore interface {
	// List returns one page of traces matching the filter.
	List(ctx context.Context, dataset string, f traces.Filter) (*traces.Page, error)
	// Get returns a single trace by run identifier.
	Get(ctx context.Context, dataset, runID string) (models.TraceRecord, bool)
	// Metadata returns the facet lists for a dataset.
	Metadata(ctx context.Context, dataset string) *models.TraceFacets
	// ClearCache drops a dataset's cache, or all caches when dataset is empty.
	ClearCache(dataset string)
	// CachedDatasets lists datasets currently held in the cache.
	CachedDatasets() []string
	// Prefetch warms the cache for a dataset.
	Prefetch(ctx context.Context, dataset string) fetch.Stats
}

// TaskStore provides access to extracted task archives.
type TaskStore interface {
	List(ctx context.Context, dataset string, f tasks.Filter) (*tasks.Page, error)
	Get(ctx context.Context, dataset, path string) (models.TaskRecord, bool)
	ClearCache(dataset string)
}

// TraceJudge produces LLM assessments of a trace.
type TraceJudge interface {
	Summarize(ctx context.Context, rec models.TraceRecord) (string, error)
	Verdict(ctx context.Context, rec models.TraceRecord) (*judge.Verdict, error)
}
