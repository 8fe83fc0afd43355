// Package schemas holds the embedded JSON Schemas used to validate raw
// dataset rows before normalization.
package schemas

import _ "embed"

// TraceRowSchemaJSON is the schema for one raw trace row as served by the
// datasets rows API (after unwrapping any "trace" nesting).
//
//go:embed trace_row.schema.json
var TraceRowSchemaJSON string
