package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evalview/traceview/internal/models"
)

// ErrInvalidFilter is returned for filter specifications rejected before any
// cache or network interaction.
var ErrInvalidFilter = errors.New("invalid filter")

// Filter selects tasks by path substring plus pagination. An empty Path
// matches everything.
type Filter struct {
	Path   string
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

func applyFilter(tasks []models.TaskRecord, f Filter) []models.TaskRecord {
	matched := make([]models.TaskRecord, 0, len(tasks))
	for _, task := range tasks {
		if f.Path == "" || strings.Contains(task.Path, f.Path) {
			matched = append(matched, task)
		}
	}
	return matched
}

func paginate(matched []models.TaskRecord, limit, offset int) ([]models.TaskRecord, *int) {
	if offset >= len(matched) {
		return []models.TaskRecord{}, nil
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

var errEmptyPath = errors.New("task has no path")
