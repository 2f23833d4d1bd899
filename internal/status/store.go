// internal/status/store.go
package status

import (
	"strings"
	"sync"
	"time"

	"pixcode/internal/extraction"
)

// UpdateType classifies a status update
type UpdateType string

const (
	TypeAnalyzing  UpdateType = "analyzing"
	TypeGenerating UpdateType = "generating"
	TypeProcessing UpdateType = "processing"
	TypeComplete   UpdateType = "complete"
	TypeError      UpdateType = "error"
	TypeThinking   UpdateType = "thinking"
	TypeReasoning  UpdateType = "reasoning"
	TypeExtracting UpdateType = "extracting"
)

// Update is an ephemeral progress record tied to a generation attempt
type Update struct {
	ID         string     `json:"id"`
	Message    string     `json:"message"`
	Timestamp  time.Time  `json:"timestamp"`
	IsComplete bool       `json:"is_complete"`
	Type       UpdateType `json:"type"`
	CommitID   string     `json:"commit_id,omitempty"`
}

// ThinkingStep is one thinking/reasoning fragment emitted by the backend.
// Steps are append-only and never mutated.
type ThinkingStep struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	CommitID  string     `json:"commit_id"`
	Type      UpdateType `json:"type"` // TypeThinking or TypeReasoning
}

// Extraction history keeps only explicit milestones; everything else is
// transient chatter shown as the current status and then dropped.
var allowedExtractionMessages = []string{
	"Starting UI analysis...",
	"Processing image...",
	"Extracting structured image information",
	"UI structure extracted successfully",
}

// Store owns transient generation state: the current status, the filtered
// status history, thinking steps, and per-commit extraction results.
type Store struct {
	mu                  sync.RWMutex
	currentStatus       *Update
	statusHistory       []Update
	thinkingSteps       []ThinkingStep
	extractionResults   map[string]*extraction.Result
	streamingExtraction string // partial JSON for live display; "" = none
	hasStreaming        bool
}

// NewStore creates an empty status store
func NewStore() *Store {
	return &Store{
		extractionResults: make(map[string]*extraction.Result),
	}
}

// SetCurrentStatus replaces the single in-flight status. Passing nil clears
// it; statuses are replaced, never queued.
func (s *Store) SetCurrentStatus(update *Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStatus = update
}

// CurrentStatus returns the in-flight status, or nil
func (s *Store) CurrentStatus() *Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentStatus == nil {
		return nil
	}
	copied := *s.currentStatus
	return &copied
}

// AddToStatusHistory appends to the persistent log. Interim/streaming chatter
// is filtered so the conversation is not flooded:
//   - messages with char-count progress markers, "Analyzing UI components" or
//     "Initializing" chatter are dropped
//   - extracting-type messages are dropped unless they match the milestone
//     allow-list
//   - consecutive duplicate (commitID, message) pairs are collapsed
func (s *Store) AddToStatusHistory(update Update) {
	if strings.Contains(update.Message, "chars)") ||
		strings.Contains(update.Message, "Analyzing UI components") ||
		strings.Contains(update.Message, "Initializing") {
		return
	}

	if update.Type == TypeExtracting {
		allowed := false
		for _, msg := range allowedExtractionMessages {
			if strings.Contains(update.Message, msg) {
				allowed = true
				break
			}
		}
		if !allowed {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.statusHistory); n > 0 {
		last := s.statusHistory[n-1]
		if last.CommitID == update.CommitID && last.Message == update.Message {
			return
		}
	}

	s.statusHistory = append(s.statusHistory, update)
}

// StatusHistory returns a copy of the persisted history
func (s *Store) StatusHistory() []Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Update(nil), s.statusHistory...)
}

// AddThinkingStep appends unconditionally
func (s *Store) AddThinkingStep(step ThinkingStep) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thinkingSteps = append(s.thinkingSteps, step)
}

// ThinkingSteps returns a copy of all recorded steps
func (s *Store) ThinkingSteps() []ThinkingStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ThinkingStep(nil), s.thinkingSteps...)
}

// ClearStatusHistory clears history, the current status, thinking steps, and
// extraction results together. This is the single reset entry point: a stale
// extraction result surviving a reset is a correctness bug.
func (s *Store) ClearStatusHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusHistory = nil
	s.currentStatus = nil
	s.thinkingSteps = nil
	s.extractionResults = make(map[string]*extraction.Result)
	s.streamingExtraction = ""
	s.hasStreaming = false
}

// SetExtractionResult stores the result for a commit, replacing any existing
// entry, and clears the streaming buffer: completion implicitly ends
// streaming for that commit.
func (s *Store) SetExtractionResult(commitID string, result *extraction.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.extractionResults[commitID] = result
	s.streamingExtraction = ""
	s.hasStreaming = false
}

// ExtractionResult returns the stored result for a commit, or nil
func (s *Store) ExtractionResult(commitID string) *extraction.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extractionResults[commitID]
}

// ExtractionResults returns a copy of all stored results keyed by commit
func (s *Store) ExtractionResults() map[string]*extraction.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]*extraction.Result, len(s.extractionResults))
	for id, result := range s.extractionResults {
		results[id] = result
	}
	return results
}

// SetStreamingExtraction holds the single global in-flight partial-JSON
// buffer. Only one extraction stream is ever active at a time, so the buffer
// is not per-commit. Clearing is done with ClearStreamingExtraction.
func (s *Store) SetStreamingExtraction(partial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamingExtraction = partial
	s.hasStreaming = true
}

// ClearStreamingExtraction invalidates any stale buffer, e.g. when a new
// generation starts for an unrelated commit.
func (s *Store) ClearStreamingExtraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamingExtraction = ""
	s.hasStreaming = false
}

// StreamingExtraction returns the in-flight buffer and whether one exists
func (s *Store) StreamingExtraction() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamingExtraction, s.hasStreaming
}
