// Package projectconfig provides the ProjectConfig struct and loader for
// .traceview.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultHubBaseURL    = "https://datasets-server.huggingface.co"
	DefaultDatasetConfig = "default"
	DefaultSplit         = "train"
	DefaultTraceSource   = "primary"

	DefaultPageSize   = 100
	DefaultMaxRecords = 10000
	DefaultMaxRetries = 5
	DefaultBackoffSec = 2

	DefaultServerPort = 3000

	DefaultJudgeModel = "gpt-4o-mini"
)

// HubConfig holds the datasets-server gateway settings. The access token is
// deliberately not a config-file field; it comes from the HF_TOKEN
// environment variable.
type HubConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	Config  string `yaml:"config,omitempty"`
	Split   string `yaml:"split,omitempty"`
}

// FetchConfig holds materialization tuning.
type FetchConfig struct {
	PageSize    int    `yaml:"page_size,omitempty"`
	MaxRecords  int    `yaml:"max_records,omitempty"`
	MaxRetries  int    `yaml:"max_retries,omitempty"`
	BackoffSec  int    `yaml:"backoff_seconds,omitempty"`
	TraceSource string `yaml:"trace_source,omitempty"`
}

// ServerConfig holds dashboard server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// JudgeConfig holds LLM judge settings. The API key comes from
// OPENAI_API_KEY, never from the config file.
type JudgeConfig struct {
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// BlobConfig holds the optional blob-container task source.
type BlobConfig struct {
	AccountURL string `yaml:"account_url,omitempty"`
	Container  string `yaml:"container,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .traceview.yaml.
type ProjectConfig struct {
	// Dataset is the default dataset identifier opened by the dashboard.
	Dataset string       `yaml:"dataset,omitempty"`
	Hub     HubConfig    `yaml:"hub,omitempty"`
	Fetch   FetchConfig  `yaml:"fetch,omitempty"`
	Server  ServerConfig `yaml:"server,omitempty"`
	Judge   JudgeConfig  `yaml:"judge,omitempty"`
	Blob    BlobConfig   `yaml:"blob,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Hub: HubConfig{
			BaseURL: DefaultHubBaseURL,
			Config:  DefaultDatasetConfig,
			Split:   DefaultSplit,
		},
		Fetch: FetchConfig{
			PageSize:    DefaultPageSize,
			MaxRecords:  DefaultMaxRecords,
			MaxRetries:  DefaultMaxRetries,
			BackoffSec:  DefaultBackoffSec,
			TraceSource: DefaultTraceSource,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Judge: JudgeConfig{
			Model: DefaultJudgeModel,
		},
	}
}

// Load finds .traceview.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .traceview.yaml: %w", err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .traceview.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .traceview.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".traceview.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Dataset != "" {
		dst.Dataset = src.Dataset
	}

	if src.Hub.BaseURL != "" {
		dst.Hub.BaseURL = src.Hub.BaseURL
	}
	if src.Hub.Config != "" {
		dst.Hub.Config = src.Hub.Config
	}
	if src.Hub.Split != "" {
		dst.Hub.Split = src.Hub.Split
	}

	if src.Fetch.PageSize != 0 {
		dst.Fetch.PageSize = src.Fetch.PageSize
	}
	if src.Fetch.MaxRecords != 0 {
		dst.Fetch.MaxRecords = src.Fetch.MaxRecords
	}
	if src.Fetch.MaxRetries != 0 {
		dst.Fetch.MaxRetries = src.Fetch.MaxRetries
	}
	if src.Fetch.BackoffSec != 0 {
		dst.Fetch.BackoffSec = src.Fetch.BackoffSec
	}
	if src.Fetch.TraceSource != "" {
		dst.Fetch.TraceSource = src.Fetch.TraceSource
	}

	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}

	if src.Judge.Model != "" {
		dst.Judge.Model = src.Judge.Model
	}
	if src.Judge.BaseURL != "" {
		dst.Judge.BaseURL = src.Judge.BaseURL
	}

	if src.Blob.AccountURL != "" {
		dst.Blob.AccountURL = src.Blob.AccountURL
	}
	if src.Blob.Container != "" {
		dst.Blob.Container = src.Blob.Container
	}
}
