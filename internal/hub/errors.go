package hub

import "fmt"

// StatusError is an upstream HTTP error with its status code. The
// orchestrator treats every gateway failure as retryable, but the category
// stays distinguishable for logs and for callers that care.
type StatusError struct {
	StatusCode int
	Dataset    string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub: %s returned HTTP %d", e.Dataset, e.StatusCode)
}
