// Package models defines the normalized domain records served by the
// trace/task services. Everything here is a plain value type with JSON tags;
// validation and coercion live in the services that produce them.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Role is the speaker tag on a conversation turn. The set is closed: anything
// the upstream dataset reports outside of user/assistant/system is coerced to
// RoleOther during normalization.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleOther     Role = "other"
)

// NormalizeRole maps an upstream role string onto the closed Role set.
func NormalizeRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(s)
	default:
		return RoleOther
	}
}

// Turn is one conversation turn inside a trace.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TraceRecord is a fully normalized trace row. Every field except Result is
// non-empty; rows that cannot satisfy that are dropped, never stored partial.
type TraceRecord struct {
	RunID    string  `json:"run_id"`
	Agent    string  `json:"agent_name"`
	Model    string  `json:"model_name"`
	Provider string  `json:"model_provider"`
	Task     string  `json:"task_name"`
	Episode  string  `json:"episode_id"`
	Trial    string  `json:"trial_name"`
	Date     string  `json:"date"`
	Turns    []Turn  `json:"turns"`
	Result   *Result `json:"result,omitempty"`
}

// Result holds the optional reward/result value of a trace. Upstream datasets
// report it either as a number or as a free-form string; both round-trip
// through JSON unchanged.
type Result struct {
	Number *float64
	Text   string
}

// UnmarshalJSON accepts a JSON number or string.
func (r *Result) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		r.Number = &num
		r.Text = ""
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		r.Number = nil
		r.Text = text
		return nil
	}
	return fmt.Errorf("result must be a number or a string, got %s", data)
}

// MarshalJSON writes the value back in its original shape.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Number != nil {
		return json.Marshal(*r.Number)
	}
	return json.Marshal(r.Text)
}

// String renders the result for facet lists and display.
func (r Result) String() string {
	if r.Number != nil {
		return strconv.FormatFloat(*r.Number, 'f', -1, 64)
	}
	return r.Text
}

// TraceFacets is the distinct-value summary over a cached trace collection,
// in first-seen order. Slices are always non-nil so the JSON stays an array.
type TraceFacets struct {
	Models  []string `json:"models"`
	Tasks   []string `json:"tasks"`
	Agents  []string `json:"agents"`
	Trials  []string `json:"trials"`
	Results []string `json:"results"`
}
