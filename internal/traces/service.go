// Package traces implements the trace retrieval-and-cache service: it
// materializes a dataset's trace rows through the remote gateway, caches the
// normalized collection per dataset, and answers filtered, paginated list
// and metadata queries from the cache.
package traces

import (
	"context"
	"log/slog"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/hub"
	"github.com/evalview/traceview/internal/models"
	"github.com/evalview/traceview/internal/store"
)

// Gateway performs a single paged fetch of raw dataset rows.
type Gateway interface {
	FetchPage(ctx context.Context, dataset, config, split string, offset, length int) (*hub.Page, error)
}

// Config holds the service configuration.
type Config struct {
	Gateway       Gateway
	DatasetConfig string // datasets-server config name, default "default"
	Split         string // default "train"
	TraceSource   string // provenance filter; empty disables
	Fetch         fetch.Config
	Logger        *slog.Logger
}

// snapshot is one cached materialization pass for a dataset.
type snapshot struct {
	records []models.TraceRecord
	stats   fetch.Stats
}

// Service is the trace retrieval-and-cache layer. Construct one per process
// and share it; all state lives on the instance, never in package globals.
type Service struct {
	gw       Gateway
	dsConfig string
	split    string
	source   string
	fetchCfg fetch.Config
	logger   *slog.Logger

	records *store.Store[snapshot]
	facets  *store.Store[*models.TraceFacets]
}

// NewService creates a trace service with its own isolated caches.
func NewService(cfg Config) *Service {
	if cfg.DatasetConfig == "" {
		cfg.DatasetConfig = "default"
	}
	if cfg.Split == "" {
		cfg.Split = "train"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Fetch.Logger = cfg.Logger
	return &Service{
		gw:       cfg.Gateway,
		dsConfig: cfg.DatasetConfig,
		split:    cfg.Split,
		source:   cfg.TraceSource,
		fetchCfg: cfg.Fetch,
		logger:   cfg.Logger,
		records:  store.New[snapshot](),
		facets:   store.New[*models.TraceFacets](),
	}
}

// Page is one page of a filtered listing.
type Page struct {
	Records    []models.TraceRecord
	Total      int // size of the filtered set, not the whole dataset
	NextOffset *int
	Truncated  bool // the cached snapshot was cut short by the safety cap
}

// List returns page records for dataset matching f. The first call for a
// dataset materializes it; subsequent calls are served from cache. Transient
// upstream failures never surface here, only filter validation errors do.
func (s *Service) List(ctx context.Context, dataset string, f Filter) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	snap := s.materialized(ctx, dataset)
	matched := applyFilter(snap.records, f)
	page, next := paginate(matched, f.Limit, f.Offset)

	return &Page{
		Records:    page,
		Total:      len(matched),
		NextOffset: next,
		Truncated:  snap.stats.Truncated,
	}, nil
}

// Get returns a single trace by run identifier.
func (s *Service) Get(ctx context.Context, dataset, runID string) (models.TraceRecord, bool) {
	snap := s.materialized(ctx, dataset)
	for _, rec := range snap.records {
		if rec.RunID == runID {
			return rec, true
		}
	}
	return models.TraceRecord{}, false
}

// Metadata returns the facet object for dataset, deriving and caching it on
// first request after a materialization or invalidation.
func (s *Service) Metadata(ctx context.Context, dataset string) *models.TraceFacets {
	if f, ok := s.facets.Get(dataset); ok {
		return f
	}
	snap := s.materialized(ctx, dataset)
	f := deriveFacets(snap.records)
	s.facets.Put(dataset, f)
	return f
}

// ClearCache removes the cached records and facets for dataset, or for all
// datasets when dataset is empty. The next access refetches.
func (s *Service) ClearCache(dataset string) {
	if dataset == "" {
		s.records.Clear()
		s.facets.Clear()
		return
	}
	s.records.Invalidate(dataset)
	s.facets.Invalidate(dataset)
}

// CachedDatasets lists the dataset identifiers currently materialized.
func (s *Service) CachedDatasets() []string {
	return s.records.Keys()
}

// Prefetch materializes dataset into the cache and reports the pass stats.
func (s *Service) Prefetch(ctx context.Context, dataset string) fetch.Stats {
	return s.materialized(ctx, dataset).stats
}

// materialized returns the cached snapshot for dataset, materializing on
// miss. Two concurrent first-requests for the same cold dataset may both
// fetch; that race is accepted — each produces a valid snapshot and the
// last Put wins wholesale.
func (s *Service) materialized(ctx context.Context, dataset string) snapshot {
	if snap, ok := s.records.Get(dataset); ok {
		return snap
	}

	s.logger.Info("materializing dataset", "dataset", dataset)
	records, stats := fetch.Materialize(ctx, s.fetchCfg, s.pageFunc(dataset),
		func(row map[string]any) (models.TraceRecord, error) {
			return normalizeTraceRow(row, s.source)
		})
	s.logger.Info("dataset materialized",
		"dataset", dataset, "records", len(records), "dropped", stats.Dropped,
		"truncated", stats.Truncated, "exhausted", stats.Exhausted)

	snap := snapshot{records: records, stats: stats}
	s.records.Put(dataset, snap)
	s.facets.Invalidate(dataset)
	return snap
}

func (s *Service) pageFunc(dataset string) fetch.PageFunc {
	return func(ctx context.Context, offset, length int) ([]map[string]any, int, error) {
		page, err := s.gw.FetchPage(ctx, dataset, s.dsConfig, s.split, offset, length)
		if err != nil {
			return nil, 0, err
		}
		rows := make([]map[string]any, 0, len(page.Rows))
		for _, r := range page.Rows {
			rows = append(rows, r.Fields)
		}
		return rows, page.TotalRows, nil
	}
}
