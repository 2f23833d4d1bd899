// internal/settings/settings.go
package settings

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"pixcode/internal/models"
	"pixcode/internal/watcher"
)

// Settings is the persisted user configuration. Zero values fall back to the
// built-in defaults at read time, so an empty file is a valid file.
type Settings struct {
	OpenAIAPIKey             string `yaml:"openai_api_key,omitempty"`
	OpenAIBaseURL            string `yaml:"openai_base_url,omitempty"`
	AnthropicAPIKey          string `yaml:"anthropic_api_key,omitempty"`
	ScreenshotOneAPIKey      string `yaml:"screenshotone_api_key,omitempty"`
	GeneratedCodeConfig      string `yaml:"generated_code_config,omitempty"`
	CodeGenerationModel      string `yaml:"code_generation_model,omitempty"`
	EditorTheme              string `yaml:"editor_theme,omitempty"`
	IsImageGenerationEnabled bool   `yaml:"is_image_generation_enabled"`
	IsTermOfServiceAccepted  bool   `yaml:"is_term_of_service_accepted"`
}

// defaults fills unset fields from the built-in registry
func (s Settings) defaults() Settings {
	if s.GeneratedCodeConfig == "" {
		s.GeneratedCodeConfig = models.DefaultStack()
	}
	if s.CodeGenerationModel == "" {
		s.CodeGenerationModel = models.DefaultModel()
	}
	if s.EditorTheme == "" {
		s.EditorTheme = "cobalt"
	}
	return s
}

// Manager loads, persists and hot-reloads the settings file
type Manager struct {
	path string

	mu       sync.RWMutex
	current  Settings
	watcher  *watcher.Watcher
	onChange func(Settings)
}

// NewManager reads the settings file at path, creating it with defaults when
// missing.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}

	if err := m.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		m.current = Settings{}.defaults()
		if err := m.persist(m.current); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Get returns the current settings with defaults applied
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.defaults()
}

// Update applies fn to a copy of the settings and persists the result
func (m *Manager) Update(fn func(*Settings)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	fn(&next)
	if err := m.persist(next); err != nil {
		return err
	}
	m.current = next
	return nil
}

func (m *Manager) persist(s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	m.mu.Lock()
	m.current = s
	callback := m.onChange
	m.mu.Unlock()

	if callback != nil {
		callback(s.defaults())
	}
	return nil
}

// Watch reloads the settings whenever the file changes on disk. The callback
// may be nil.
func (m *Manager) Watch(onChange func(Settings)) error {
	m.mu.Lock()
	m.onChange = onChange
	m.mu.Unlock()

	w, err := watcher.New(m.path, 200*time.Millisecond, func(e watcher.Event) {
		if e.Type == watcher.EventDelete {
			return
		}
		if err := m.reload(); err != nil {
			log.Printf("[Settings] Reload after %s failed: %v", e.Type, err)
		}
	})
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Close()
		return err
	}

	m.mu.Lock()
	m.watcher = w
	m.mu.Unlock()
	return nil
}

// Close stops the file watcher if one is running
func (m *Manager) Close() error {
	m.mu.Lock()
	w := m.watcher
	m.watcher = nil
	m.mu.Unlock()

	if w != nil {
		return w.Close()
	}
	return nil
}

// ToMap flattens the settings into the generation payload shape. API keys
// ride along so the backend can use the user's own accounts.
func (m *Manager) ToMap() map[string]interface{} {
	s := m.Get()
	payload := map[string]interface{}{
		"generatedCodeConfig":      s.GeneratedCodeConfig,
		"codeGenerationModel":      s.CodeGenerationModel,
		"editorTheme":              s.EditorTheme,
		"isImageGenerationEnabled": s.IsImageGenerationEnabled,
	}
	if s.OpenAIAPIKey != "" {
		payload["openAiApiKey"] = s.OpenAIAPIKey
	}
	if s.OpenAIBaseURL != "" {
		payload["openAiBaseURL"] = s.OpenAIBaseURL
	}
	if s.AnthropicAPIKey != "" {
		payload["anthropicApiKey"] = s.AnthropicAPIKey
	}
	return payload
}
