// internal/conversation/log.go
package conversation

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the author of a conversation message
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
	MessageSystem    MessageType = "system"
)

// ArtifactType discriminates artifact messages
type ArtifactType string

const (
	ArtifactCode ArtifactType = "code"
	ArtifactJSON ArtifactType = "json"
)

// Metadata discriminates status messages from artifact messages
type Metadata struct {
	MessageType  string       `json:"message_type,omitempty"` // "status" or "artifact"
	ArtifactType ArtifactType `json:"artifact_type,omitempty"`
	ArtifactData interface{}  `json:"artifact_data,omitempty"`
	StatusType   string       `json:"status_type,omitempty"`
	IsActive     bool         `json:"is_active,omitempty"`
}

// Message is one entry in the append-only conversation log
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Images    []string    `json:"images,omitempty"`
	Metadata  *Metadata   `json:"metadata,omitempty"`
}

// Log is the deduplicated conversation rendered as chat. It is a derived
// view: the orchestrator mirrors key milestones into it.
type Log struct {
	mu       sync.RWMutex
	messages []Message
	onChange func()
}

// SetOnChange registers a callback fired after every mutation. Must be set
// before concurrent use; the callback runs outside the lock.
func (l *Log) SetOnChange(fn func()) {
	l.onChange = fn
}

func (l *Log) notify() {
	if l.onChange != nil {
		l.onChange()
	}
}

// NewLog creates an empty conversation log
func NewLog() *Log {
	return &Log{}
}

// AddUserMessage appends a user message with optional attached images and
// returns its id. Empty content is rejected with an empty id.
func (l *Log) AddUserMessage(content string, images []string) string {
	if strings.TrimSpace(content) == "" {
		log.Printf("[Conversation] Ignoring empty user message")
		return ""
	}

	return l.add(Message{
		Type:    MessageUser,
		Content: content,
		Images:  images,
	})
}

// AddStatusMessage appends an assistant status message (like "Starting UI
// analysis..."). Duplicate (content, statusType) pairs anywhere in the log
// are dropped.
func (l *Log) AddStatusMessage(content, statusType string) string {
	if strings.TrimSpace(content) == "" {
		log.Printf("[Conversation] Ignoring empty status message")
		return ""
	}

	l.mu.RLock()
	for _, msg := range l.messages {
		if msg.Content == content && msg.Metadata != nil &&
			msg.Metadata.MessageType == "status" && msg.Metadata.StatusType == statusType {
			l.mu.RUnlock()
			return ""
		}
	}
	l.mu.RUnlock()

	return l.add(Message{
		Type:    MessageAssistant,
		Content: content,
		Metadata: &Metadata{
			MessageType: "status",
			StatusType:  statusType,
		},
	})
}

// AddArtifactMessage appends an artifact (like "JSON Structure" or
// "Version 1"). Duplicate (content, artifactType) pairs are dropped.
func (l *Log) AddArtifactMessage(content string, artifactType ArtifactType, artifactData interface{}, isActive bool) string {
	if strings.TrimSpace(content) == "" {
		log.Printf("[Conversation] Ignoring empty artifact message")
		return ""
	}

	l.mu.RLock()
	for _, msg := range l.messages {
		if msg.Content == content && msg.Metadata != nil &&
			msg.Metadata.MessageType == "artifact" && msg.Metadata.ArtifactType == artifactType {
			l.mu.RUnlock()
			return ""
		}
	}
	l.mu.RUnlock()

	return l.add(Message{
		Type:    MessageAssistant,
		Content: content,
		Metadata: &Metadata{
			MessageType:  "artifact",
			ArtifactType: artifactType,
			ArtifactData: artifactData,
			IsActive:     isActive,
		},
	})
}

func (l *Log) add(msg Message) string {
	msg.ID = "msg-" + uuid.New().String()
	msg.Timestamp = time.Now()

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	l.notify()
	return msg.ID
}

// SetActiveCodeArtifact marks the given code artifact active and every other
// code artifact inactive. The active flag is exclusive across code artifacts.
func (l *Log) SetActiveCodeArtifact(activeID string) {
	l.mu.Lock()
	for i := range l.messages {
		meta := l.messages[i].Metadata
		if meta != nil && meta.MessageType == "artifact" && meta.ArtifactType == ArtifactCode {
			meta.IsActive = l.messages[i].ID == activeID
		}
	}
	l.mu.Unlock()

	l.notify()
}

// CodeArtifactCount returns how many code artifacts are in the log, used for
// "Version N" numbering.
func (l *Log) CodeArtifactCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, msg := range l.messages {
		if msg.Metadata != nil && msg.Metadata.MessageType == "artifact" && msg.Metadata.ArtifactType == ArtifactCode {
			count++
		}
	}
	return count
}

// Message returns a message by id
func (l *Log) Message(id string) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, msg := range l.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the whole log
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Message(nil), l.messages...)
}

// Clear removes every message. Used on full project reset.
func (l *Log) Clear() {
	l.mu.Lock()
	l.messages = nil
	l.mu.Unlock()

	l.notify()
}

// Restore replaces the log wholesale with messages loaded from a snapshot
func (l *Log) Restore(messages []Message) {
	l.mu.Lock()
	l.messages = append([]Message(nil), messages...)
	l.mu.Unlock()

	l.notify()
}
