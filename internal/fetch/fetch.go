// Package fetch implements the paginated materialization loop shared by the
// trace and task services: page through a remote dataset at increasing
// offsets, normalize each row, and accumulate the survivors. Transient page
// failures are retried with a constant backoff; exhausting the retry budget
// is a soft failure that keeps whatever was accumulated so far.
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultPageSize is the fixed page length requested from the gateway.
	DefaultPageSize = 100

	// DefaultMaxRecords caps a single materialization so a misbehaving or
	// enormous upstream dataset cannot grow memory without bound.
	DefaultMaxRecords = 10_000

	// DefaultMaxRetries is the per-page retry budget. The budget resets
	// after every successful page because each page runs its own retry loop.
	DefaultMaxRetries = 5

	// DefaultBackoff is the fixed wait between retries of the same offset.
	DefaultBackoff = 2 * time.Second
)

// PageFunc fetches one page of raw rows at the given offset, returning the
// rows plus the upstream-reported total row count.
type PageFunc func(ctx context.Context, offset, length int) (rows []map[string]any, total int, err error)

// NormalizeFunc converts one raw row into a typed record. A non-nil error
// drops the row; it is counted, logged at debug, and never fatal.
type NormalizeFunc[T any] func(row map[string]any) (T, error)

// Config tunes a materialization pass. Zero values mean the defaults above.
type Config struct {
	PageSize   int
	MaxRecords int
	MaxRetries uint64
	Backoff    time.Duration
	Logger     *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = DefaultMaxRecords
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Stats describes how a materialization pass ended.
type Stats struct {
	// Pages is the number of successfully fetched pages.
	Pages int
	// Rows is the number of raw rows seen.
	Rows int
	// Dropped is the number of rows rejected by normalization.
	Dropped int
	// Truncated is set when the safety cap stopped the pass early.
	Truncated bool
	// Exhausted is set when the retry budget ran out on a page; the
	// accumulated records up to that page are still returned.
	Exhausted bool
}

// Materialize pages through a dataset until the gateway returns an empty
// page, the reported total is reached, the safety cap is hit, or a page
// exhausts its retry budget. It always terminates and always returns a
// usable (possibly empty, possibly partial) record list.
func Materialize[T any](ctx context.Context, cfg Config, page PageFunc, normalize NormalizeFunc[T]) ([]T, Stats) {
	cfg = cfg.withDefaults()

	records := make([]T, 0, cfg.PageSize)
	var stats Stats

	for offset := 0; ; {
		if len(records) >= cfg.MaxRecords {
			stats.Truncated = true
			cfg.Logger.Warn("materialization hit the record cap",
				"cap", cfg.MaxRecords, "offset", offset)
			break
		}

		var rows []map[string]any
		var total int
		backoff := retry.WithMaxRetries(cfg.MaxRetries, retry.NewConstant(cfg.Backoff))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			r, t, err := page(ctx, offset, cfg.PageSize)
			if err != nil {
				cfg.Logger.Warn("page fetch failed, retrying",
					"offset", offset, "error", err)
				return retry.RetryableError(err)
			}
			rows, total = r, t
			return nil
		})
		if err != nil {
			// Soft failure: keep the partial accumulation.
			stats.Exhausted = true
			cfg.Logger.Warn("retry budget exhausted, keeping partial result",
				"offset", offset, "records", len(records), "error", err)
			break
		}

		stats.Pages++
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			if len(records) >= cfg.MaxRecords {
				// More rows remain in this page past the cap.
				stats.Truncated = true
				break
			}
			stats.Rows++
			rec, err := normalize(row)
			if err != nil {
				stats.Dropped++
				cfg.Logger.Debug("dropping row", "offset", offset, "error", err)
				continue
			}
			records = append(records, rec)
		}
		if stats.Truncated {
			cfg.Logger.Warn("materialization hit the record cap",
				"cap", cfg.MaxRecords, "offset", offset)
			break
		}

		offset += len(rows)
		if total > 0 && offset >= total {
			break
		}
	}

	return records, stats
}
