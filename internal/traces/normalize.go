package traces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/evalview/traceview/internal/models"
	"github.com/evalview/traceview/internal/validation"
)

// DefaultTraceSource is the provenance tag marking primary traces. Rows
// carrying a different tag were produced by replay or backfill tooling and
// are treated as not-found, not as errors.
const DefaultTraceSource = "primary"

// errNonPrimary marks rows filtered out by provenance, for callers that want
// to count them apart from malformed rows.
var errNonPrimary = errors.New("non-primary trace source")

// rawTraceRow is the wire shape of one trace row after schema validation.
type rawTraceRow struct {
	RunID         string    `mapstructure:"run_id"`
	AgentName     string    `mapstructure:"agent_name"`
	ModelName     string    `mapstructure:"model_name"`
	ModelProvider string    `mapstructure:"model_provider"`
	TaskName      string    `mapstructure:"task_name"`
	EpisodeID     string    `mapstructure:"episode_id"`
	TrialName     string    `mapstructure:"trial_name"`
	Date          string    `mapstructure:"date"`
	Turns         []rawTurn `mapstructure:"turns"`
	Result        any       `mapstructure:"result"`
	TraceSource   string    `mapstructure:"trace_source"`
}

type rawTurn struct {
	Role    string `mapstructure:"role"`
	Content string `mapstructure:"content"`
}

// normalizeTraceRow validates and coerces one raw row into a TraceRecord.
// The record nests under a "trace" wrapper key on some datasets; one level
// of unwrapping is applied when present. source filters by provenance tag;
// an empty source disables the filter. Pure function of its inputs.
func normalizeTraceRow(fields map[string]any, source string) (models.TraceRecord, error) {
	var zero models.TraceRecord

	raw := fields
	if inner, ok := fields["trace"].(map[string]any); ok {
		raw = inner
	}

	if tag, ok := raw["trace_source"].(string); ok && source != "" && tag != source {
		return zero, fmt.Errorf("%w: %q", errNonPrimary, tag)
	}

	if errs := validation.ValidateTraceRow(raw); len(errs) > 0 {
		return zero, fmt.Errorf("row failed validation: %s", strings.Join(errs, "; "))
	}

	var row rawTraceRow
	if err := mapstructure.Decode(raw, &row); err != nil {
		return zero, fmt.Errorf("decoding row: %w", err)
	}

	turns := make([]models.Turn, 0, len(row.Turns))
	for _, t := range row.Turns {
		turns = append(turns, models.Turn{
			Role:    models.NormalizeRole(t.Role),
			Content: t.Content,
		})
	}

	rec := models.TraceRecord{
		RunID:    row.RunID,
		Agent:    row.AgentName,
		Model:    row.ModelName,
		Provider: row.ModelProvider,
		Task:     row.TaskName,
		Episode:  row.EpisodeID,
		Trial:    row.TrialName,
		Date:     row.Date,
		Turns:    turns,
	}

	switch v := row.Result.(type) {
	case nil:
		// Result is optional.
	case float64:
		rec.Result = &models.Result{Number: &v}
	case int:
		f := float64(v)
		rec.Result = &models.Result{Number: &f}
	case string:
		rec.Result = &models.Result{Text: v}
	default:
		// The schema constrains result to number-or-string; anything else
		// means the schema and this switch disagree.
		return zero, fmt.Errorf("unsupported result type %T", row.Result)
	}

	return rec, nil
}
