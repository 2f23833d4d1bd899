// internal/database/models.go
package database

import "time"

// Project is one indexed project: the durable handle a UI lists and opens.
// The heavy state lives in snapshot storage; the index only keeps enough to
// render a project list.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Stack          string    `json:"stack"`
	Model          string    `json:"model"`
	HeadHash       string    `json:"head_hash"`
	LastSnapshotID string    `json:"last_snapshot_id"`
	CommitCount    int       `json:"commit_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// GenerationRecord is one finished generation attempt, kept for usage review
type GenerationRecord struct {
	ID           int64     `json:"id"`
	ProjectID    string    `json:"project_id"`
	CommitHash   string    `json:"commit_hash"`
	CommitType   string    `json:"commit_type"`
	Model        string    `json:"model"`
	Stack        string    `json:"stack"`
	VariantCount int       `json:"variant_count"`
	Outcome      string    `json:"outcome"` // complete, error or cancelled
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
