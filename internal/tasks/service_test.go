package tasks

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/hub"
)

func tinyArchive(t *testing.T, name, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Size:     int64(len(content)),
		Mode:     0644,
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fakeSource serves raw tasks from memory and counts calls.
type fakeSource struct {
	tasks []RawTask
	calls int
	err   error
}

func (f *fakeSource) Tasks(ctx context.Context, dataset string) ([]RawTask, fetch.Stats, error) {
	f.calls++
	return f.tasks, fetch.Stats{Rows: len(f.tasks)}, f.err
}

func sourceWith(t *testing.T, n int) *fakeSource {
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.tasks = append(src.tasks, RawTask{
			Path:    fmt.Sprintf("suite/task-%02d", i),
			Archive: tinyArchive(t, "prompt.md", fmt.Sprintf("task %d", i)),
		})
	}
	return src
}

func TestListExtractsArchives(t *testing.T) {
	src := sourceWith(t, 3)
	svc := NewService(Config{Source: src})

	page, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Tasks, 3)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Tasks[0].Files, 1)
	assert.Equal(t, "prompt.md", page.Tasks[0].Files[0].Path)
	assert.Equal(t, "task 0", page.Tasks[0].Files[0].Content)
}

func TestListCachesSource(t *testing.T) {
	src := sourceWith(t, 2)
	svc := NewService(Config{Source: src})

	_, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)

	svc.ClearCache("acme/tasks")
	_, err = svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestListFiltersByPath(t *testing.T) {
	src := sourceWith(t, 12)
	svc := NewService(Config{Source: src})

	page, err := svc.List(context.Background(), "acme/tasks", Filter{Path: "task-1", Limit: 10})
	require.NoError(t, err)

	// task-10 and task-11 match the substring.
	assert.Equal(t, 3, page.Total)
}

func TestListPagination(t *testing.T) {
	src := sourceWith(t, 25)
	svc := NewService(Config{Source: src})

	page, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: 10, Offset: 20})
	require.NoError(t, err)

	assert.Len(t, page.Tasks, 5)
	assert.Equal(t, 25, page.Total)
	assert.Nil(t, page.NextOffset)
}

func TestBadArchivesDropped(t *testing.T) {
	src := sourceWith(t, 2)
	src.tasks = append(src.tasks, RawTask{Path: "suite/corrupt", Archive: []byte("junk")})
	src.tasks = append(src.tasks, RawTask{Path: "", Archive: nil})
	svc := NewService(Config{Source: src})

	page, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	stats := svc.Prefetch(context.Background(), "acme/tasks")
	assert.Equal(t, 2, stats.Dropped)
}

func TestSourceErrorServesPartial(t *testing.T) {
	src := sourceWith(t, 1)
	src.err = errors.New("listing blew up halfway")
	svc := NewService(Config{Source: src})

	page, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: 10})
	require.NoError(t, err, "source failures are absorbed")
	assert.Equal(t, 1, page.Total)
}

func TestGetByPath(t *testing.T) {
	src := sourceWith(t, 5)
	svc := NewService(Config{Source: src})

	task, ok := svc.Get(context.Background(), "acme/tasks", "suite/task-03")
	require.True(t, ok)
	assert.Equal(t, "suite/task-03", task.Path)

	_, ok = svc.Get(context.Background(), "acme/tasks", "suite/nope")
	assert.False(t, ok)
}

func TestInvalidFilterRejected(t *testing.T) {
	src := sourceWith(t, 1)
	svc := NewService(Config{Source: src})

	_, err := svc.List(context.Background(), "acme/tasks", Filter{Limit: -1})
	require.ErrorIs(t, err, ErrInvalidFilter)
	assert.Zero(t, src.calls)
}

// hubGateway fakes the rows API for the hub task source.
type hubGateway struct {
	rows []map[string]any
}

func (g *hubGateway) FetchPage(ctx context.Context, dataset, config, split string, offset, length int) (*hub.Page, error) {
	page := &hub.Page{TotalRows: len(g.rows)}
	if offset >= len(g.rows) {
		return page, nil
	}
	end := offset + length
	if end > len(g.rows) {
		end = len(g.rows)
	}
	for i, fields := range g.rows[offset:end] {
		page.Rows = append(page.Rows, hub.Row{Index: offset + i, Fields: fields})
	}
	return page, nil
}

func TestHubSource(t *testing.T) {
	data := tinyArchive(t, "config.yaml", "answer: 42\n")
	gw := &hubGateway{rows: []map[string]any{
		{"path": "suite/alpha", "archive": base64.StdEncoding.EncodeToString(data)},
		{"path": "suite/beta"}, // no archive, dropped
		{"archive": "aaaa"},    // no path, dropped
	}}

	src := NewHubSource(HubSourceConfig{
		Gateway: gw,
		Fetch:   fetch.Config{Backoff: time.Millisecond},
	})

	raw, stats, err := src.Tasks(context.Background(), "acme/tasks")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "suite/alpha", raw[0].Path)
	assert.Equal(t, data, raw[0].Archive)
	assert.Equal(t, 2, stats.Dropped)
}
