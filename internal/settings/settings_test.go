// internal/settings/settings_test.go
package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pixcode/internal/models"
)

func tempSettingsPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "settings.yaml")
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := tempSettingsPath(t)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected settings file created: %v", err)
	}

	s := m.Get()
	if s.GeneratedCodeConfig != models.DefaultStack() {
		t.Errorf("Expected default stack, got %q", s.GeneratedCodeConfig)
	}
	if s.CodeGenerationModel != models.DefaultModel() {
		t.Errorf("Expected default model, got %q", s.CodeGenerationModel)
	}
}

func TestUpdatePersists(t *testing.T) {
	path := tempSettingsPath(t)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	err = m.Update(func(s *Settings) {
		s.OpenAIAPIKey = "sk-test"
		s.GeneratedCodeConfig = "react_tailwind"
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A fresh manager must see the persisted values
	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	defer reloaded.Close()

	s := reloaded.Get()
	if s.OpenAIAPIKey != "sk-test" || s.GeneratedCodeConfig != "react_tailwind" {
		t.Errorf("Persisted settings lost: %+v", s)
	}
}

func TestToMapOmitsEmptyKeys(t *testing.T) {
	path := tempSettingsPath(t)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	payload := m.ToMap()
	if _, exists := payload["openAiApiKey"]; exists {
		t.Error("Empty API key must not appear in the payload")
	}
	if payload["generatedCodeConfig"] != models.DefaultStack() {
		t.Errorf("Expected default stack in payload, got %v", payload["generatedCodeConfig"])
	}

	if err := m.Update(func(s *Settings) { s.AnthropicAPIKey = "ak-test" }); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if m.ToMap()["anthropicApiKey"] != "ak-test" {
		t.Error("Expected API key in payload after update")
	}
}

func TestWatchReloadsOnDiskChange(t *testing.T) {
	path := tempSettingsPath(t)

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	defer m.Close()

	changed := make(chan Settings, 1)
	if err := m.Watch(func(s Settings) {
		select {
		case changed <- s:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("editor_theme: dracula\n"), 0600); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case s := <-changed:
		if s.EditorTheme != "dracula" {
			t.Errorf("Expected reloaded theme, got %q", s.EditorTheme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	if m.Get().EditorTheme != "dracula" {
		t.Errorf("Expected manager state updated, got %q", m.Get().EditorTheme)
	}
}
