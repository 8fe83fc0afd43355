package traces

import "github.com/evalview/traceview/internal/models"

// deriveFacets computes the distinct-value facets over a cached collection,
// preserving first-seen order. It is recomputed lazily on the first metadata
// request after a (re)materialization, not eagerly on every pass.
func deriveFacets(records []models.TraceRecord) *models.TraceFacets {
	facets := &models.TraceFacets{
		Models:  []string{},
		Tasks:   []string{},
		Agents:  []string{},
		Trials:  []string{},
		Results: []string{},
	}

	seenModel := map[string]struct{}{}
	seenTask := map[string]struct{}{}
	seenAgent := map[string]struct{}{}
	seenTrial := map[string]struct{}{}
	seenResult := map[string]struct{}{}

	appendOnce := func(dst *[]string, seen map[string]struct{}, v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		*dst = append(*dst, v)
	}

	for _, rec := range records {
		appendOnce(&facets.Models, seenModel, rec.Model)
		appendOnce(&facets.Tasks, seenTask, rec.Task)
		appendOnce(&facets.Agents, seenAgent, rec.Agent)
		appendOnce(&facets.Trials, seenTrial, rec.Trial)
		if rec.Result != nil {
			appendOnce(&facets.Results, seenResult, rec.Result.String())
		}
	}

	return facets
}
