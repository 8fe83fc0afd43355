// Package judge calls an LLM to summarize or grade a single trace. It sits
// outside the retrieval core: nothing here touches the dataset cache, and
// all prompt construction and response parsing are pure functions.
package judge

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/evalview/traceview/internal/models"
)

// DefaultModel is used when no judge model is configured.
const DefaultModel = "gpt-4o-mini"

// Verdict is the judge's structured grade for one trace.
type Verdict struct {
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Config holds the judge configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible endpoints
	Model   string
	Logger  *slog.Logger
}

// Judge wraps one chat-completion client.
type Judge struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// New creates a judge. The API key may come from the environment via the
// SDK's own defaulting when left empty.
func New(cfg Config) *Judge {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Judge{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Summarize asks the model for a failure summary of one trace.
func (j *Judge) Summarize(ctx context.Context, rec models.TraceRecord) (string, error) {
	j.logger.Debug("judging trace", "run_id", rec.RunID, "mode", "summary")

	return j.complete(ctx, summarySystemPrompt, BuildTracePrompt(rec))
}

// Verdict asks the model for a structured pass/fail grade of one trace.
func (j *Judge) Verdict(ctx context.Context, rec models.TraceRecord) (*Verdict, error) {
	j.logger.Debug("judging trace", "run_id", rec.RunID, "mode", "verdict")

	raw, err := j.complete(ctx, verdictSystemPrompt, BuildTracePrompt(rec))
	if err != nil {
		return nil, err
	}
	return ParseVerdict(raw)
}

func (j *Judge) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := j.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(j.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("judge: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("judge: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
