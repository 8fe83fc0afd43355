package traces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evalview/traceview/internal/models"
)

// ErrInvalidFilter is returned for filter specifications that fail eager
// validation, before any cache or network interaction.
var ErrInvalidFilter = errors.New("invalid filter")

// DefaultLimit is the page size used when a caller does not set one.
const DefaultLimit = 50

// Filter selects a subset of a dataset's traces and a page within it. Absent
// predicates match everything; matching is case-sensitive substring
// containment against the source fields exactly.
type Filter struct {
	RunID string
	Model string
	Task  string
	Trial string

	Limit  int
	Offset int
}

// Validate rejects contract violations eagerly.
func (f Filter) Validate() error {
	if f.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidFilter, f.Limit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidFilter, f.Offset)
	}
	return nil
}

// matches applies all present predicates as a logical AND.
func (f Filter) matches(rec models.TraceRecord) bool {
	if f.RunID != "" && !strings.Contains(rec.RunID, f.RunID) {
		return false
	}
	if f.Model != "" && !strings.Contains(rec.Model, f.Model) {
		return false
	}
	if f.Task != "" && !strings.Contains(rec.Task, f.Task) {
		return false
	}
	if f.Trial != "" && !strings.Contains(rec.Trial, f.Trial) {
		return false
	}
	return true
}

// applyFilter returns the matching subset in insertion order, without
// mutating the input.
func applyFilter(records []models.TraceRecord, f Filter) []models.TraceRecord {
	matched := make([]models.TraceRecord, 0, len(records))
	for _, rec := range records {
		if f.matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// paginate takes the [offset, offset+limit) slice of matched and reports the
// next offset when more results remain. An offset past the end yields an
// empty page.
func paginate(matched []models.TraceRecord, limit, offset int) ([]models.TraceRecord, *int) {
	if offset >= len(matched) {
		return []models.TraceRecord{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]
	if end < len(matched) {
		next := offset + limit
		return page, &next
	}
	return page, nil
}
