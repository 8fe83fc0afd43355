package tasks

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/hub"
)

// Gateway is the paged row fetch the hub source drives.
type Gateway interface {
	FetchPage(ctx context.Context, dataset, config, split string, offset, length int) (*hub.Page, error)
}

// HubSource reads task rows from the datasets rows API. Each row carries the
// task path and its archive as a base64 string.
type HubSource struct {
	gw       Gateway
	dsConfig string
	split    string
	fetchCfg fetch.Config
}

// HubSourceConfig holds the hub task source configuration.
type HubSourceConfig struct {
	Gateway       Gateway
	DatasetConfig string // default "default"
	Split         string // default "train"
	Fetch         fetch.Config
	Logger        *slog.Logger
}

// NewHubSource creates a task source backed by the rows API.
func NewHubSource(cfg HubSourceConfig) *HubSource {
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
	return &HubSource{
		gw:       cfg.Gateway,
		dsConfig: cfg.DatasetConfig,
		split:    cfg.Split,
		fetchCfg: cfg.Fetch,
	}
}

// Tasks materializes all task rows for dataset. Transient page failures are
// retried and absorbed by the underlying orchestrator; the error return is
// always nil here and exists for other Source implementations.
func (s *HubSource) Tasks(ctx context.Context, dataset string) ([]RawTask, fetch.Stats, error) {
	raw, stats := fetch.Materialize(ctx, s.fetchCfg, s.pageFunc(dataset), normalizeTaskRow)
	return raw, stats, nil
}

func (s *HubSource) pageFunc(dataset string) fetch.PageFunc {
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

// normalizeTaskRow pulls the path and decodes the base64 archive out of one
// raw task row.
func normalizeTaskRow(row map[string]any) (RawTask, error) {
	var zero RawTask

	path, ok := row["path"].(string)
	if !ok || path == "" {
		return zero, errors.New("row has no path")
	}
	encoded, ok := row["archive"].(string)
	if !ok || encoded == "" {
		return zero, fmt.Errorf("task %s has no archive", path)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return zero, fmt.Errorf("task %s: decoding archive: %w", path, err)
	}

	return RawTask{Path: path, Archive: data}, nil
}
