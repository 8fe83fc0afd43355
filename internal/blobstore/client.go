// Package blobstore is a task source backed by a blob container: every
// object under <dataset>/ ending in .tar.gz is one task archive. It fills
// the same Source seam as the rows-API source, for datasets published to
// object storage instead of the hub.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/tasks"
)

const archiveSuffix = ".tar.gz"

// Config holds the blob source configuration.
type Config struct {
	// AccountURL is the storage account endpoint, e.g.
	// https://myaccount.blob.core.windows.net
	AccountURL string
	Container  string
	Logger     *slog.Logger
}

// Client lists and downloads task archives from one container.
type Client struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
}

// New creates a blob task source using the default credential chain.
func New(cfg Config) (*Client, error) {
	if cfg.AccountURL == "" {
		return nil, fmt.Errorf("blobstore: account URL is required")
	}
	if cfg.Container == "" {
		return nil, fmt.Errorf("blobstore: container is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: building credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: building client: %w", err)
	}

	return &Client{
		client:    client,
		container: cfg.Container,
		logger:    cfg.Logger,
	}, nil
}

// Tasks lists every archive under the dataset prefix and downloads each one.
// A blob that fails to download is dropped and counted; a listing failure
// ends the pass early with whatever was collected.
func (c *Client) Tasks(ctx context.Context, dataset string) ([]tasks.RawTask, fetch.Stats, error) {
	prefix := strings.TrimSuffix(dataset, "/") + "/"

	var collected []tasks.RawTask
	var stats fetch.Stats

	pager := c.client.NewListBlobsFlatPager(c.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(prefix),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return collected, stats, fmt.Errorf("blobstore: listing %s: %w", prefix, err)
		}
		stats.Pages++

		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			name := *item.Name
			if !strings.HasSuffix(name, archiveSuffix) {
				continue
			}
			stats.Rows++

			data, err := c.download(ctx, name)
			if err != nil {
				stats.Dropped++
				c.logger.Warn("skipping blob", "blob", name, "error", err)
				continue
			}

			path := strings.TrimSuffix(strings.TrimPrefix(name, prefix), archiveSuffix)
			collected = append(collected, tasks.RawTask{Path: path, Archive: data})
		}
	}

	return collected, stats, nil
}

func (c *Client) download(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.client.DownloadStream(ctx, c.container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

// Ensure Client satisfies the task source seam.
var _ tasks.Source = (*Client)(nil)
