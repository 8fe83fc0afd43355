package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/evalview/traceview/internal/models"
)

const summarySystemPrompt = `You are reviewing transcripts from automated agent evaluations.
Summarize what the agent attempted, where it went wrong, and the most likely
root cause of the failure. Be concise and concrete; quote the transcript only
when it pins down the failure.`

const verdictSystemPrompt = `You are grading a transcript from an automated agent evaluation.
Decide whether the agent completed the task. Respond with a JSON object and
nothing else: {"passed": bool, "score": number between 0 and 1, "reasoning": string}.`

// maxTurnChars bounds how much of a single turn goes into the prompt.
const maxTurnChars = 4000

// BuildTracePrompt renders a trace into the transcript block shared by both
// prompts. Pure function.
func BuildTracePrompt(rec models.TraceRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", rec.Task)
	fmt.Fprintf(&b, "Agent: %s (model %s, provider %s)\n", rec.Agent, rec.Model, rec.Provider)
	fmt.Fprintf(&b, "Run: %s, trial %s, %s\n", rec.RunID, rec.Trial, rec.Date)
	if rec.Result != nil {
		fmt.Fprintf(&b, "Reported result: %s\n", rec.Result.String())
	}
	b.WriteString("\nTranscript:\n")
	for i, turn := range rec.Turns {
		content := turn.Content
		if len(content) > maxTurnChars {
			content = content[:maxTurnChars] + "\n[... truncated ...]"
		}
		fmt.Fprintf(&b, "--- turn %d (%s) ---\n%s\n", i+1, turn.Role, content)
	}
	return b.String()
}

// ParseVerdict extracts a Verdict from a model response, tolerating fenced
// code blocks and surrounding prose. Pure function.
func ParseVerdict(s string) (*Verdict, error) {
	body := s
	if i := strings.Index(body, "```"); i >= 0 {
		body = body[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			body = body[:j]
		}
	}

	// Fall back to the outermost braces when the model added prose.
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("judge: no JSON object in response")
	}

	var v Verdict
	if err := json.Unmarshal([]byte(body[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("judge: parsing verdict: %w", err)
	}
	if v.Score < 0 || v.Score > 1 {
		return nil, fmt.Errorf("judge: score %v out of range", v.Score)
	}
	return &v, nil
}
