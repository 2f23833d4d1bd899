// app.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixcode/internal/commits"
	"pixcode/internal/config"
	"pixcode/internal/console"
	"pixcode/internal/conversation"
	"pixcode/internal/database"
	"pixcode/internal/eventhub"
	"pixcode/internal/extraction"
	"pixcode/internal/generation"
	"pixcode/internal/models"
	"pixcode/internal/project"
	"pixcode/internal/protocol"
	"pixcode/internal/settings"
	"pixcode/internal/status"
	"pixcode/internal/typing"
	"pixcode/internal/websocket"
)

const defaultBackendURL = "ws://127.0.0.1:7001"

// Remembers the last active project across restarts so the UI can offer to
// resume it.
const lastProjectKey = "last_project_id"

// App contains the core application state and wires every store to the
// orchestrator and the event hub.
type App struct {
	ctx    context.Context
	mu     sync.RWMutex
	config *config.Config

	db        *database.Database
	settings  *settings.Manager
	snapshots *project.Storage

	commitStore     *commits.Store
	statusStore     *status.Store
	conversationLog *conversation.Log
	consoleSink     *console.Sink
	typingQueue     *typing.Queue
	eventHub        *eventhub.EventHub
	orchestrator    *generation.Orchestrator

	projectID   string
	projectName string
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// Startup initializes every subsystem. Called once before serving.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg, err := config.Load()
	if err != nil {
		log.Printf("[App] Failed to load config: %v", err)
		return
	}
	a.config = cfg

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Printf("[App] Failed to open database: %v", err)
	} else {
		a.db = db
	}

	settingsManager, err := settings.NewManager(cfg.SettingsPath)
	if err != nil {
		log.Printf("[App] Failed to load settings: %v", err)
	} else {
		a.settings = settingsManager
	}

	a.snapshots = project.NewStorage(cfg.SnapshotsDir, 3)

	a.commitStore = commits.NewStore()
	a.statusStore = status.NewStore()
	a.conversationLog = conversation.NewLog()
	a.consoleSink = console.NewSink()
	a.typingQueue = typing.NewQueue()
	a.eventHub = eventhub.New(ctx)

	a.commitStore.ObserveHead(func(head string) {
		a.eventHub.EmitHeadChanged(head)
	})
	a.conversationLog.SetOnChange(func() {
		a.eventHub.EmitConversationChanged()
	})
	a.typingQueue.SetOnDisplay(func(id, text string) {
		a.eventHub.EmitTypingDisplay(id, text)
	})

	backendURL := os.Getenv("PIXCODE_BACKEND_URL")
	if backendURL == "" {
		backendURL = defaultBackendURL
	}
	dialer := websocket.NewDialer(backendURL)

	settingsFn := func() map[string]interface{} { return nil }
	if a.settings != nil {
		settingsFn = a.settings.ToMap
	}

	a.orchestrator = generation.New(
		a.commitStore, a.statusStore, a.conversationLog, a.consoleSink, dialer,
		generation.Options{
			Settings: settingsFn,
			Notifier: &hubNotifier{hub: a.eventHub, typing: a.typingQueue},
		},
	)

	if a.settings != nil {
		if err := a.settings.Watch(func(s settings.Settings) {
			a.eventHub.EmitSettingsChanged(s)
		}); err != nil {
			log.Printf("[App] Settings watch unavailable: %v", err)
		}
	}
}

// SetBroadcaster connects the UI-facing websocket server to the event hub
func (a *App) SetBroadcaster(b eventhub.Broadcaster) {
	a.eventHub.SetBroadcaster(b)
}

// Shutdown releases all resources
func (a *App) Shutdown(ctx context.Context) {
	if a.orchestrator != nil {
		a.orchestrator.Cancel()
	}
	if a.typingQueue != nil {
		a.typingQueue.Close()
	}
	if a.settings != nil {
		a.settings.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// hubNotifier forwards orchestration milestones to the event hub. Status
// messages additionally feed the typewriter queue so the UI can poll revealed
// text.
type hubNotifier struct {
	hub    *eventhub.EventHub
	typing *typing.Queue
}

func (n *hubNotifier) StatusUpdated(update status.Update, current bool) {
	n.hub.EmitStatus(eventhub.StatusEvent{
		ID:         update.ID,
		Message:    update.Message,
		Type:       string(update.Type),
		IsComplete: update.IsComplete,
		IsCurrent:  current,
		CommitID:   update.CommitID,
	})
	n.typing.Enqueue(typing.Item{ID: update.ID, Text: update.Message})
}

func (n *hubNotifier) AppStateChanged(state string) {
	n.hub.EmitAppState(state)
}

func (n *hubNotifier) CodeChunk(commitHash string, variantIndex int, token string) {
	n.hub.EmitCodeChunk(eventhub.CodeChunkEvent{
		CommitHash:   commitHash,
		VariantIndex: variantIndex,
		Token:        token,
	})
}

func (n *hubNotifier) VariantStatusChanged(commitHash string, variantIndex int, variantStatus, errorMessage string) {
	n.hub.EmitVariantStatus(eventhub.VariantStatusEvent{
		CommitHash:   commitHash,
		VariantIndex: variantIndex,
		Status:       variantStatus,
		ErrorMessage: errorMessage,
	})
}

func (n *hubNotifier) ThinkingStepAdded(step status.ThinkingStep) {
	n.hub.EmitThinking(eventhub.ThinkingEvent{
		ID:       step.ID,
		Content:  step.Content,
		Type:     string(step.Type),
		CommitID: step.CommitID,
	})
}

func (n *hubNotifier) ExtractionStreamed(partialJSON string) {
	n.hub.EmitExtractionStream(partialJSON)
}

// ===== Generation RPC =====

// CreateFromImage starts the first generation from a data-URL image or video
// frame. Runs asynchronously; progress arrives as events.
func (a *App) CreateFromImage(imageDataURL string, inputMode string) error {
	if strings.TrimSpace(imageDataURL) == "" {
		return fmt.Errorf("no image provided")
	}

	mode := protocol.InputMode(inputMode)
	if mode != protocol.InputImage && mode != protocol.InputVideo {
		mode = protocol.InputImage
	}

	a.ensureProject()
	go a.runGeneration("ai_create", func() error {
		return a.orchestrator.Create(a.ctx, []string{imageDataURL}, mode, nil)
	})
	return nil
}

// UpdateCode runs a follow-up instruction against the current version
func (a *App) UpdateCode(instruction string, selectedElement string) error {
	// Cheap validations stay synchronous so the caller gets immediate
	// feedback; everything else is asynchronous.
	if strings.TrimSpace(instruction) == "" {
		return generation.ErrEmptyInstruction
	}
	if a.commitStore.Head() == "" {
		return generation.ErrNoHead
	}

	go a.runGeneration("ai_edit", func() error {
		return a.orchestrator.Update(a.ctx, instruction, selectedElement)
	})
	return nil
}

// RegenerateCode re-runs the first generation with its original inputs
func (a *App) RegenerateCode() error {
	head, ok := a.commitStore.HeadCommit()
	if !ok {
		return generation.ErrNoHead
	}
	if head.Type != commits.CommitTypeAICreate {
		return generation.ErrNotRegenerable
	}

	go a.runGeneration("ai_create", func() error {
		return a.orchestrator.Regenerate(a.ctx)
	})
	return nil
}

// CancelGeneration aborts the in-flight generation, if any
func (a *App) CancelGeneration() {
	a.orchestrator.Cancel()
}

// SetUpdateImages attaches reference images to the next instruction
func (a *App) SetUpdateImages(images []string) {
	a.orchestrator.SetUpdateImages(images)
}

// runGeneration wraps one generation attempt with usage recording
func (a *App) runGeneration(commitType string, run func() error) {
	started := time.Now()
	err := run()

	outcome := "complete"
	if err != nil {
		log.Printf("[App] Generation finished with error: %v", err)
		outcome = "error"
	} else if a.orchestrator.State() != generation.StateCodeReady {
		// A user cancel returns no error but leaves the phase short of ready
		outcome = "cancelled"
	}
	a.recordGeneration(commitType, outcome, time.Since(started))
}

func (a *App) recordGeneration(commitType, outcome string, duration time.Duration) {
	if a.db == nil {
		return
	}

	a.mu.RLock()
	projectID := a.projectID
	a.mu.RUnlock()
	if projectID == "" {
		return
	}

	head, _ := a.commitStore.HeadCommit()
	record := &database.GenerationRecord{
		ProjectID:  projectID,
		CommitType: commitType,
		Outcome:    outcome,
		DurationMS: duration.Milliseconds(),
	}
	if head != nil {
		record.CommitHash = head.Hash
		record.VariantCount = len(head.Variants)
	}
	if a.settings != nil {
		s := a.settings.Get()
		record.Model = s.CodeGenerationModel
		record.Stack = s.GeneratedCodeConfig
	}

	if _, err := a.db.RecordGeneration(record); err != nil {
		log.Printf("[App] Failed to record generation: %v", err)
	}
}

// ensureProject lazily creates the project index entry on first generation
func (a *App) ensureProject() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.projectID != "" {
		return
	}
	a.projectID = uuid.New().String()
	a.projectName = "Untitled project"

	if a.db == nil {
		return
	}
	p := &database.Project{ID: a.projectID, Name: a.projectName}
	if a.settings != nil {
		s := a.settings.Get()
		p.Stack = s.GeneratedCodeConfig
		p.Model = s.CodeGenerationModel
	}
	if err := a.db.SaveProject(p); err != nil {
		log.Printf("[App] Failed to index project: %v", err)
	}
	a.rememberProject(a.projectID)
}

func (a *App) rememberProject(projectID string) {
	if a.db == nil {
		return
	}
	if err := a.db.SaveSetting(lastProjectKey, projectID); err != nil {
		log.Printf("[App] Failed to remember project: %v", err)
	}
}

// ===== State RPC =====

// GetAppState returns INITIAL, CODING or CODE_READY
func (a *App) GetAppState() string {
	return string(a.orchestrator.State())
}

// GetCommits returns the whole commit graph
func (a *App) GetCommits() map[string]*commits.Commit {
	return a.commitStore.All()
}

// GetHead returns the current head hash, empty when unset
func (a *App) GetHead() string {
	return a.commitStore.Head()
}

// SelectVariant switches the head commit's selected variant
func (a *App) SelectVariant(index int) error {
	head := a.commitStore.Head()
	if head == "" {
		return generation.ErrNoHead
	}
	return a.commitStore.UpdateSelectedVariantIndex(head, index)
}

// GetMessages returns the conversation log
func (a *App) GetMessages() []conversation.Message {
	return a.conversationLog.Messages()
}

// GetStatusHistory returns the filtered persistent status log
func (a *App) GetStatusHistory() []status.Update {
	return a.statusStore.StatusHistory()
}

// GetCurrentStatus returns the transient banner status, nil when idle
func (a *App) GetCurrentStatus() *status.Update {
	return a.statusStore.CurrentStatus()
}

// GetThinkingSteps returns all thinking and reasoning steps
func (a *App) GetThinkingSteps() []status.ThinkingStep {
	return a.statusStore.ThinkingSteps()
}

// GetConsoleLines returns the console output of one variant
func (a *App) GetConsoleLines(variantIndex int) []string {
	return a.consoleSink.Lines(variantIndex)
}

// GetExtractionResult returns the stored UI structure for a commit
func (a *App) GetExtractionResult(commitHash string) *extraction.Result {
	return a.statusStore.ExtractionResult(commitHash)
}

// GetStreamingExtraction returns the in-flight extraction buffer
func (a *App) GetStreamingExtraction() map[string]interface{} {
	partial, streaming := a.statusStore.StreamingExtraction()
	return map[string]interface{}{
		"partial":     partial,
		"isStreaming": streaming,
	}
}

// GetTypingDisplay returns the currently revealed text for a status message
func (a *App) GetTypingDisplay(id string) string {
	return a.typingQueue.DisplayText(id)
}

// RevealTypingInstant skips the animation for one message
func (a *App) RevealTypingInstant(id, text string) {
	a.typingQueue.RevealInstant(id, text)
}

// ===== Catalog RPC =====

// ListStacks returns the supported output stacks
func (a *App) ListStacks() []models.Stack {
	return models.BuiltinStacks()
}

// ListModels returns the supported code-generation models
func (a *App) ListModels() []models.Model {
	return models.BuiltinModels()
}

// GetSettings returns the persisted settings
func (a *App) GetSettings() (settings.Settings, error) {
	if a.settings == nil {
		return settings.Settings{}, fmt.Errorf("settings unavailable")
	}
	return a.settings.Get(), nil
}

// UpdateSettings replaces the persisted settings wholesale
func (a *App) UpdateSettings(next settings.Settings) error {
	if a.settings == nil {
		return fmt.Errorf("settings unavailable")
	}
	return a.settings.Update(func(s *settings.Settings) { *s = next })
}

// ===== Snapshot RPC =====

// SaveSnapshot persists the current project state under a name
func (a *App) SaveSnapshot(name string) (*project.Snapshot, error) {
	a.ensureProject()

	a.mu.RLock()
	projectID := a.projectID
	a.mu.RUnlock()

	state := &project.State{
		Commits:           a.commitStore.All(),
		Head:              a.commitStore.Head(),
		Messages:          a.conversationLog.Messages(),
		ExtractionResults: a.statusStore.ExtractionResults(),
	}

	snapshot, err := a.snapshots.Save(projectID, name, state)
	if err != nil {
		return nil, err
	}

	if a.db != nil {
		if p, err := a.db.GetProject(projectID); err == nil {
			p.HeadHash = state.Head
			p.LastSnapshotID = snapshot.ID
			p.CommitCount = len(state.Commits)
			if err := a.db.SaveProject(p); err != nil {
				log.Printf("[App] Failed to update project index: %v", err)
			}
		}
	}

	a.eventHub.EmitSnapshotSaved(projectID, snapshot.ID)
	return snapshot, nil
}

// LoadSnapshot replaces all in-memory project state from a snapshot
func (a *App) LoadSnapshot(projectID, snapshotID string) error {
	_, state, err := a.snapshots.Load(projectID, snapshotID)
	if err != nil {
		return err
	}

	a.orchestrator.Reset()

	for _, commit := range state.Commits {
		if err := a.commitStore.AddCommit(commit); err != nil {
			return fmt.Errorf("restore commit %s: %w", commit.Hash, err)
		}
	}
	if state.Head != "" {
		if err := a.commitStore.SetHead(state.Head); err != nil {
			return fmt.Errorf("restore head: %w", err)
		}
	}
	a.conversationLog.Restore(state.Messages)
	for commitHash, result := range state.ExtractionResults {
		a.statusStore.SetExtractionResult(commitHash, result)
	}

	a.orchestrator.AdoptHead(state.Head)

	a.mu.Lock()
	a.projectID = projectID
	a.mu.Unlock()
	a.rememberProject(projectID)
	return nil
}

// ListSnapshots lists the snapshots of a project
func (a *App) ListSnapshots(projectID string) ([]project.Snapshot, error) {
	return a.snapshots.List(projectID)
}

// DeleteSnapshot removes one snapshot
func (a *App) DeleteSnapshot(projectID, snapshotID string) error {
	return a.snapshots.Delete(projectID, snapshotID)
}

// ListProjects returns the project index, most recent first
func (a *App) ListProjects() ([]*database.Project, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database unavailable")
	}
	return a.db.ListProjects()
}

// GetLastProjectID returns the project that was active when the process last
// ran, or "" when there is none.
func (a *App) GetLastProjectID() string {
	if a.db == nil {
		return ""
	}
	id, err := a.db.GetSetting(lastProjectKey)
	if err != nil {
		return ""
	}
	return id
}

// ListGenerations returns the recent generation attempts of a project
func (a *App) ListGenerations(projectID string, limit int) ([]*database.GenerationRecord, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database unavailable")
	}
	if limit <= 0 {
		limit = 50
	}
	return a.db.ListGenerations(projectID, limit)
}
