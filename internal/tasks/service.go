// Package tasks implements the task retrieval-and-cache service. A task row
// is a path plus an embedded archive; the service materializes all tasks for
// a dataset through a Source, extracts the archives, and serves filtered,
// paginated listings from cache.
package tasks

import (
	"context"
	"log/slog"

	"github.com/evalview/traceview/internal/archive"
	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/models"
	"github.com/evalview/traceview/internal/store"
)

// RawTask is one unextracted task as produced by a Source.
type RawTask struct {
	Path    string
	Archive []byte // gzip-compressed tar
}

// Source produces the raw tasks of a dataset. Implementations absorb their
// own transient failures and return whatever they could fetch; a partial
// list with an error is still cached and served.
type Source interface {
	Tasks(ctx context.Context, dataset string) ([]RawTask, fetch.Stats, error)
}

// Config holds the service configuration.
type Config struct {
	Source Source
	Logger *slog.Logger
}

type snapshot struct {
	tasks []models.TaskRecord
	stats fetch.Stats
}

// Service is the task retrieval-and-cache layer.
type Service struct {
	source Source
	logger *slog.Logger
	cache  *store.Store[snapshot]
}

// NewService creates a task service with an isolated cache.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		source: cfg.Source,
		logger: cfg.Logger,
		cache:  store.New[snapshot](),
	}
}

// Page is one page of a filtered task listing.
type Page struct {
	Tasks      []models.TaskRecord
	Total      int
	NextOffset *int
	Truncated  bool
}

// List returns the page of tasks matching f, materializing the dataset on
// first access.
func (s *Service) List(ctx context.Context, dataset string, f Filter) (*Page, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	snap := s.materialized(ctx, dataset)
	matched := applyFilter(snap.tasks, f)
	page, next := paginate(matched, f.Limit, f.Offset)

	return &Page{
		Tasks:      page,
		Total:      len(matched),
		NextOffset: next,
		Truncated:  snap.stats.Truncated,
	}, nil
}

// Get returns a single task by path.
func (s *Service) Get(ctx context.Context, dataset, path string) (models.TaskRecord, bool) {
	snap := s.materialized(ctx, dataset)
	for _, task := range snap.tasks {
		if task.Path == path {
			return task, true
		}
	}
	return models.TaskRecord{}, false
}

// ClearCache drops the cached tasks for dataset, or everything when dataset
// is empty.
func (s *Service) ClearCache(dataset string) {
	if dataset == "" {
		s.cache.Clear()
		return
	}
	s.cache.Invalidate(dataset)
}

// Prefetch materializes dataset and reports the pass stats.
func (s *Service) Prefetch(ctx context.Context, dataset string) fetch.Stats {
	return s.materialized(ctx, dataset).stats
}

func (s *Service) materialized(ctx context.Context, dataset string) snapshot {
	if snap, ok := s.cache.Get(dataset); ok {
		return snap
	}

	s.logger.Info("materializing tasks", "dataset", dataset)
	raw, stats, err := s.source.Tasks(ctx, dataset)
	if err != nil {
		// Soft failure: serve whatever the source managed to fetch.
		s.logger.Warn("task source ended early", "dataset", dataset, "error", err)
	}

	tasks := make([]models.TaskRecord, 0, len(raw))
	for _, rt := range raw {
		rec, err := normalizeTask(rt)
		if err != nil {
			stats.Dropped++
			s.logger.Debug("dropping task", "path", rt.Path, "error", err)
			continue
		}
		tasks = append(tasks, rec)
	}
	s.logger.Info("tasks materialized",
		"dataset", dataset, "tasks", len(tasks), "dropped", stats.Dropped)

	snap := snapshot{tasks: tasks, stats: stats}
	s.cache.Put(dataset, snap)
	return snap
}

// normalizeTask extracts a raw task's archive into a TaskRecord. A task with
// no path is unusable; a partially extracted archive keeps what it got.
func normalizeTask(rt RawTask) (models.TaskRecord, error) {
	if rt.Path == "" {
		return models.TaskRecord{}, errEmptyPath
	}

	files, err := archive.Extract(rt.Archive)
	if err != nil && len(files) == 0 {
		return models.TaskRecord{}, err
	}
	return models.TaskRecord{Path: rt.Path, Files: files}, nil
}
