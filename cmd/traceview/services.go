package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/evalview/traceview/internal/blobstore"
	"github.com/evalview/traceview/internal/fetch"
	"github.com/evalview/traceview/internal/hub"
	"github.com/evalview/traceview/internal/judge"
	"github.com/evalview/traceview/internal/projectconfig"
	"github.com/evalview/traceview/internal/tasks"
	"github.com/evalview/traceview/internal/traces"
)

// services bundles the wired-up application layer for the CLI commands.
type services struct {
	traces *traces.Service
	tasks  *tasks.Service
	judge  *judge.Judge // nil when no API key is available
}

// buildServices constructs the hub gateway, trace and task services, and the
// optional LLM judge from project configuration plus environment secrets
// (HF_TOKEN, OPENAI_API_KEY).
func buildServices(cfg *projectconfig.ProjectConfig, logger *slog.Logger) (*services, error) {
	gw := hub.New(hub.Config{
		BaseURL: cfg.Hub.BaseURL,
		Token:   os.Getenv("HF_TOKEN"),
		Logger:  logger,
	})

	fetchCfg := fetch.Config{
		PageSize:   cfg.Fetch.PageSize,
		MaxRecords: cfg.Fetch.MaxRecords,
		MaxRetries: uint64(cfg.Fetch.MaxRetries),
		Backoff:    time.Duration(cfg.Fetch.BackoffSec) * time.Second,
		Logger:     logger,
	}

	traceSvc := traces.NewService(traces.Config{
		Gateway:       gw,
		DatasetConfig: cfg.Hub.Config,
		Split:         cfg.Hub.Split,
		TraceSource:   cfg.Fetch.TraceSource,
		Fetch:         fetchCfg,
		Logger:        logger,
	})

	// Task archives come from a blob container when one is configured,
	// otherwise from the same rows API as the traces.
	var taskSource tasks.Source
	if cfg.Blob.AccountURL != "" {
		bs, err := blobstore.New(blobstore.Config{
			AccountURL: cfg.Blob.AccountURL,
			Container:  cfg.Blob.Container,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring blob task source: %w", err)
		}
		taskSource = bs
	} else {
		taskSource = tasks.NewHubSource(tasks.HubSourceConfig{
			Gateway:       gw,
			DatasetConfig: cfg.Hub.Config,
			Split:         cfg.Hub.Split,
			Fetch:         fetchCfg,
			Logger:        logger,
		})
	}

	taskSvc := tasks.NewService(tasks.Config{
		Source: taskSource,
		Logger: logger,
	})

	svcs := &services{traces: traceSvc, tasks: taskSvc}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		svcs.judge = judge.New(judge.Config{
			APIKey:  apiKey,
			BaseURL: cfg.Judge.BaseURL,
			Model:   cfg.Judge.Model,
			Logger:  logger,
		})
	}

	return svcs, nil
}
