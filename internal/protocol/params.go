// internal/protocol/params.go
package protocol

import (
	"encoding/json"

	"pixcode/internal/commits"
	"pixcode/internal/extraction"
)

// GenerationType distinguishes a first creation from a follow-up edit
type GenerationType string

const (
	GenerationCreate GenerationType = "create"
	GenerationUpdate GenerationType = "update"
)

// InputMode is the kind of reference input driving the generation
type InputMode string

const (
	InputImage InputMode = "image"
	InputVideo InputMode = "video"
	InputText  InputMode = "text"
)

// GenerationParams is the outbound open payload for one generation attempt.
// Persisted settings fields are merged in by the caller before sending.
type GenerationParams struct {
	IsExtractionMode   bool                     `json:"isExtractionMode,omitempty"`
	GenerationType     GenerationType           `json:"generationType"`
	InputMode          InputMode                `json:"inputMode"`
	Prompt             commits.PromptContent    `json:"prompt"`
	History            []commits.PromptContent  `json:"history,omitempty"`
	IsImportedFromCode bool                     `json:"isImportedFromCode,omitempty"`
	AdditionalFiles    []commits.SerializedFile `json:"additionalFiles,omitempty"`
	ExtractionResult   *extraction.Result       `json:"extractionResult,omitempty"`
	Temperature        float64                  `json:"temperature,omitempty"`

	// Persisted settings, flattened into the payload
	Settings map[string]interface{} `json:"-"`
}

// MarshalJSON flattens the persisted settings into the top-level payload.
// Explicit generation fields win over settings keys of the same name.
func (p GenerationParams) MarshalJSON() ([]byte, error) {
	type plain GenerationParams
	base, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}

	if len(p.Settings) == 0 {
		return base, nil
	}

	merged := make(map[string]interface{}, len(p.Settings))
	for key, value := range p.Settings {
		merged[key] = value
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	for key, value := range fields {
		merged[key] = value
	}

	return json.Marshal(merged)
}
