// internal/project/models.go
package project

import (
	"time"

	"pixcode/internal/commits"
	"pixcode/internal/conversation"
	"pixcode/internal/extraction"
)

// Snapshot is the metadata of one saved project state
type Snapshot struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	HeadHash    string    `json:"head_hash"`
	CommitCount int       `json:"commit_count"`
}

// State is the full serializable project: the commit graph, head pointer,
// conversation and per-commit extraction results.
type State struct {
	Commits           map[string]*commits.Commit    `json:"commits"`
	Head              string                        `json:"head"`
	Messages          []conversation.Message        `json:"messages"`
	ExtractionResults map[string]*extraction.Result `json:"extraction_results,omitempty"`
	// CodeRefs maps commitHash -> variantIndex -> content hash. Variant code
	// is stored in the content pool and stripped from Commits on disk.
	CodeRefs map[string]map[int]string `json:"code_refs,omitempty"`
}
