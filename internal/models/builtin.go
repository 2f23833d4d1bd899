// internal/models/builtin.go
package models

// Stack is an output technology stack the generated code targets
type Stack struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsDefault   bool   `json:"is_default"`
}

// Model is a code generation model the backend can run
type Model struct {
	ModelID     string `json:"model_id"`
	ProviderID  string `json:"provider_id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
	// SupportsThinking marks models that stream thinking/reasoning tokens
	SupportsThinking bool `json:"supports_thinking"`
}

// BuiltinStacks returns the supported output stacks
func BuiltinStacks() []Stack {
	return []Stack{
		{ID: "html_tailwind", DisplayName: "HTML + Tailwind", IsDefault: true},
		{ID: "html_css", DisplayName: "HTML + CSS"},
		{ID: "react_tailwind", DisplayName: "React + Tailwind"},
		{ID: "vue_tailwind", DisplayName: "Vue + Tailwind"},
		{ID: "bootstrap", DisplayName: "Bootstrap"},
		{ID: "ionic_tailwind", DisplayName: "Ionic + Tailwind"},
		{ID: "svg", DisplayName: "SVG"},
	}
}

// BuiltinModels returns the list of built-in code generation models
func BuiltinModels() []Model {
	return []Model{
		{
			ModelID:          "claude-3-5-sonnet-20240620",
			ProviderID:       "anthropic",
			DisplayName:      "Claude 3.5 Sonnet",
			Description:      "Best quality for screenshot-to-code, recommended",
			IsDefault:        true,
			SupportsThinking: true,
		},
		{
			ModelID:     "gpt-4o-2024-05-13",
			ProviderID:  "openai",
			DisplayName: "GPT-4o",
			Description: "Fast with strong visual grounding",
		},
		{
			ModelID:     "gpt-4-vision-preview",
			ProviderID:  "openai",
			DisplayName: "GPT-4 Vision",
			Description: "Legacy vision model",
		},
	}
}

// DefaultStack returns the default output stack id
func DefaultStack() string {
	for _, stack := range BuiltinStacks() {
		if stack.IsDefault {
			return stack.ID
		}
	}
	return "html_tailwind"
}

// DefaultModel returns the default model id
func DefaultModel() string {
	for _, model := range BuiltinModels() {
		if model.IsDefault {
			return model.ModelID
		}
	}
	return "claude-3-5-sonnet-20240620"
}

// FindModel looks up a model by id
func FindModel(modelID string) (Model, bool) {
	for _, model := range BuiltinModels() {
		if model.ModelID == modelID {
			return model, true
		}
	}
	return Model{}, false
}

// FindStack looks up a stack by id
func FindStack(stackID string) (Stack, bool) {
	for _, stack := range BuiltinStacks() {
		if stack.ID == stackID {
			return stack, true
		}
	}
	return Stack{}, false
}
