// internal/commits/models.go
package commits

import (
	"time"

	"github.com/google/uuid"
)

// CommitType identifies how a commit was produced
type CommitType string

const (
	// CommitTypeAICreate is the first generation from an image/video
	CommitTypeAICreate CommitType = "ai_create"
	// CommitTypeAIEdit is a follow-up instruction against an existing version
	CommitTypeAIEdit CommitType = "ai_edit"
	// CommitTypeCodeCreate is a manual code import (not used by the AI flow)
	CommitTypeCodeCreate CommitType = "code_create"
)

// VariantStatus is the per-variant generation state machine
type VariantStatus string

const (
	VariantPending    VariantStatus = "pending"
	VariantGenerating VariantStatus = "generating"
	VariantComplete   VariantStatus = "complete"
	VariantError      VariantStatus = "error"
)

// Variant is one candidate code output within a commit. The backend may run
// several models/attempts in parallel, each streaming into its own slot.
type Variant struct {
	Code         string        `json:"code"`
	Status       VariantStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// SerializedFile is an additional categorized input file (CSS, assets, etc.)
type SerializedFile struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	DataURL  string `json:"dataUrl,omitempty"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// PromptContent is the prompt payload that produced a commit
type PromptContent struct {
	Text            string           `json:"text"`
	Images          []string         `json:"images"` // data URLs
	AdditionalFiles []SerializedFile `json:"additionalFiles,omitempty"`
}

// Commit is one versioned generation attempt in the project's history tree
type Commit struct {
	Hash                 string        `json:"hash"`
	Type                 CommitType    `json:"type"`
	ParentHash           string        `json:"parent_hash,omitempty"` // empty only for the root
	Inputs               PromptContent `json:"inputs"`
	Variants             []Variant     `json:"variants"`
	SelectedVariantIndex int           `json:"selected_variant_index"`
	CreatedAt            time.Time     `json:"created_at"`
}

// NewCommit creates a commit with a fresh hash and the given number of
// empty pending variant slots.
func NewCommit(commitType CommitType, parentHash string, inputs PromptContent, variantCount int) *Commit {
	variants := make([]Variant, variantCount)
	for i := range variants {
		variants[i] = Variant{Status: VariantPending}
	}

	return &Commit{
		Hash:       uuid.New().String(),
		Type:       commitType,
		ParentHash: parentHash,
		Inputs:     inputs,
		Variants:   variants,
		CreatedAt:  time.Now(),
	}
}

// SelectedVariant returns the currently checked-out variant, or nil when the
// index is out of range.
func (c *Commit) SelectedVariant() *Variant {
	if c.SelectedVariantIndex < 0 || c.SelectedVariantIndex >= len(c.Variants) {
		return nil
	}
	return &c.Variants[c.SelectedVariantIndex]
}
