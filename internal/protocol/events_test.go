// internal/protocol/events_test.go
package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"pixcode/internal/commits"
)

func TestParseEventKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{"chunk", `{"type":"chunk","value":"<div>","variantIndex":1}`, ChunkEvent{VariantIndex: 1, Value: "<div>"}},
		{"setCode", `{"type":"setCode","value":"<main/>","variantIndex":0}`, SetCodeEvent{Value: "<main/>"}},
		{"console", `{"type":"status","value":"Generating code...","variantIndex":2}`, ConsoleEvent{VariantIndex: 2, Value: "Generating code..."}},
		{"error", `{"type":"error","value":"rate limited"}`, ErrorEvent{Message: "rate limited"}},
		{"variantComplete", `{"type":"variantComplete","variantIndex":2}`, VariantCompleteEvent{VariantIndex: 2}},
		{"variantError", `{"type":"variantError","value":"model refused","variantIndex":1}`, VariantErrorEvent{VariantIndex: 1, Message: "model refused"}},
		{"variantCount", `{"type":"variantCount","variantCount":3}`, VariantCountEvent{Count: 3}},
		{"variantCountInValue", `{"type":"variantCount","value":"3"}`, VariantCountEvent{Count: 3}},
		{"thinking", `{"type":"thinking","value":"the layout is a grid","variantIndex":0}`, ThinkingEvent{Content: "the layout is a grid"}},
		{"reasoning", `{"type":"reasoning","value":"use flexbox","variantIndex":0}`, ReasoningEvent{Content: "use flexbox"}},
		{"phase", `{"type":"phase","phase":"analyzing","status":"Analyzing the screenshot"}`, PhaseEvent{Phase: "analyzing", Status: "Analyzing the screenshot"}},
		{"cancel", `{"type":"cancel"}`, CancelEvent{}},
		{"done", `{"type":"done"}`, CompleteEvent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("ParseEvent failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseEventUnknownType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"type":"nonsense"}`)); err == nil {
		t.Error("Expected error for unknown event type")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Error("Expected error for malformed frame")
	}
}

func TestStatusTypeForPhase(t *testing.T) {
	cases := map[string]string{
		"analyzing":  "analyzing",
		"analysis":   "analyzing",
		"generating": "generating",
		"generation": "generating",
		"thinking":   "thinking",
		"reasoning":  "reasoning",
		"polishing":  "processing",
		"":           "processing",
	}
	for phase, want := range cases {
		if got := StatusTypeForPhase(phase); got != want {
			t.Errorf("StatusTypeForPhase(%q) = %q, want %q", phase, got, want)
		}
	}
}

func TestGenerationParamsMergesSettings(t *testing.T) {
	params := GenerationParams{
		GenerationType: GenerationCreate,
		InputMode:      InputImage,
		Prompt:         commits.PromptContent{Text: "", Images: []string{"data:image/png;base64,xyz"}},
		Temperature:    0.1,
		Settings: map[string]interface{}{
			"generatedCodeConfig": "html_tailwind",
			"generationType":      "should-not-win",
		},
	}

	data, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if payload["generatedCodeConfig"] != "html_tailwind" {
		t.Error("Expected settings key merged into payload")
	}
	if payload["generationType"] != "create" {
		t.Errorf("Expected explicit field to win over settings, got %v", payload["generationType"])
	}
	if strings.Contains(string(data), "Settings") {
		t.Error("Settings map itself must not leak into the payload")
	}
}
