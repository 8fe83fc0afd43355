package models

// ExtractedFile is one entry pulled out of a task archive. Content is only
// retained for text files under the extraction size ceiling; binary or
// oversized files keep their path and size with empty content.
type ExtractedFile struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Binary  bool   `json:"binary"`
	Content string `json:"content,omitempty"`
}

// TaskRecord is a normalized task row: the task's path (unique within its
// dataset) plus the files extracted from its embedded archive.
type TaskRecord struct {
	Path  string          `json:"path"`
	Files []ExtractedFile `json:"files"`
}
