// internal/extraction/session/session.go

// Package session drives a single extraction stream against the backend and
// turns it into a structured extraction.Result.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"pixcode/internal/commits"
	"pixcode/internal/extraction"
	"pixcode/internal/protocol"
)

// PromptTemplate is the fixed structured-output instruction sent on every
// extraction stream.
const PromptTemplate = `Analyze this UI screenshot and extract key structural information as JSON:

{
  "metadata": {
    "platform": "web|mobile|desktop",
    "theme": "light|dark|auto"
  },
  "layout": {
    "type": "grid|flex|flow",
    "components": [
      {
        "id": "unique_id",
        "type": "button|input|text|image|nav|container|form|list|header|footer",
        "text": "visible text content",
        "placeholder": "input placeholder if any",
        "interactions": ["click", "hover", "focus", "submit"],
        "hierarchy_level": 1,
        "parent_id": "parent_id|null"
      }
    ]
  },
  "navigation": {
    "primary_nav": ["item1", "item2"],
    "secondary_nav": ["sub_item1"]
  },
  "forms": [
    {
      "id": "form_id",
      "fields": [
        {
          "type": "text|email|password|select|checkbox|radio",
          "name": "field_name",
          "required": boolean
        }
      ]
    }
  ],
  "interactive_elements": [
    {
      "type": "button|link|input",
      "text": "label or content",
      "action": "click|submit|navigate"
    }
  ]
}

Focus on:
- Component hierarchy and relationships
- Interactive elements (clickable, hoverable)
- Navigation structure
- Form fields and inputs
- Visible text content

Return only valid JSON.`

// Low temperature keeps the structured output consistent
const extractionTemperature = 0.1

// Callbacks receive live extraction progress. OnJSONStream carries the raw
// accumulated fragment for display only; it is never parsed incrementally as
// structured data beyond the whole-buffer parse attempt after each fragment.
type Callbacks struct {
	OnProgress   func(message string)
	OnJSONStream func(partialJSON string)
}

func (c Callbacks) progress(message string) {
	if c.OnProgress != nil {
		c.OnProgress(message)
	}
}

// Run opens an extraction stream for the given image and blocks until it
// resolves or fails. It resolves exactly once: the first fragment that parses
// as complete JSON wins, events after that are ignored.
func Run(ctx context.Context, opener protocol.Opener, imageData string, additionalFiles []commits.SerializedFile, settings map[string]interface{}, callbacks Callbacks) (*extraction.Result, error) {
	params := protocol.GenerationParams{
		IsExtractionMode: true,
		GenerationType:   protocol.GenerationCreate,
		InputMode:        protocol.InputImage,
		Prompt: commits.PromptContent{
			Text:   PromptTemplate,
			Images: []string{imageData},
		},
		AdditionalFiles: additionalFiles,
		Settings:        settings,
		Temperature:     extractionTemperature,
	}

	stream, err := opener.Open(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("open extraction stream: %w", err)
	}
	defer stream.Close(protocol.CloseCodeUserCancel)

	callbacks.progress("Processing image...")

	var accumulated strings.Builder
	shownFirstProgress := false
	shownComponents := false
	shownInteractive := false

	for {
		event, err := stream.Recv()
		if err != nil {
			return nil, fmt.Errorf("extraction service disconnected unexpectedly: %w", err)
		}

		switch ev := event.(type) {
		case protocol.ChunkEvent:
			accumulated.WriteString(ev.Value)
			buffer := accumulated.String()

			if callbacks.OnJSONStream != nil {
				callbacks.OnJSONStream(buffer)
			}

			if !shownFirstProgress && len(buffer) > 10 {
				callbacks.progress("Extracting structured image information...")
				shownFirstProgress = true
			}
			if !shownComponents && strings.Contains(buffer, `"components"`) {
				callbacks.progress("Identifying UI components...")
				shownComponents = true
			}
			if !shownInteractive && strings.Contains(buffer, `"interactive_elements"`) {
				callbacks.progress("Detecting interactive elements...")
				shownInteractive = true
			}

			// Best-effort completeness check: does the buffer parse yet?
			var result extraction.Result
			if json.Unmarshal([]byte(buffer), &result) == nil {
				return &result, nil
			}

		case protocol.SetCodeEvent:
			var result extraction.Result
			if err := json.Unmarshal([]byte(ev.Value), &result); err != nil {
				return nil, fmt.Errorf("parse extraction result: %w", err)
			}
			return &result, nil

		case protocol.ErrorEvent:
			return nil, fmt.Errorf("extraction failed: %s", ev.Message)

		case protocol.VariantErrorEvent:
			return nil, fmt.Errorf("extraction error: %s", ev.Message)

		case protocol.CancelEvent:
			return nil, fmt.Errorf("extraction cancelled")

		case protocol.CompleteEvent:
			// Stream ended cleanly but nothing ever parsed
			return nil, fmt.Errorf("extraction stream ended without a valid result")

		default:
			// Phase/thinking chatter on the extraction stream is display-only
			log.Printf("[Extraction] Ignoring event %T", event)
		}
	}
}
