package eventhub

import (
	"context"
)

// Broadcaster 事件广播接口
type Broadcaster interface {
	BroadcastEvent(eventType string, payload interface{})
}

// EventHub 统一事件分发中心
type EventHub struct {
	ctx         context.Context
	broadcaster Broadcaster
}

// New 创建新的 EventHub
func New(ctx context.Context) *EventHub {
	return &EventHub{ctx: ctx}
}

// SetBroadcaster 设置 WebSocket 广播器
func (h *EventHub) SetBroadcaster(b Broadcaster) {
	h.broadcaster = b
}

// emit 统一的事件发送方法
func (h *EventHub) emit(eventName string, payload interface{}) {
	// WebSocket 广播模式
	if h.broadcaster != nil {
		h.broadcaster.BroadcastEvent(eventName, payload)
	}
}

// Emit 通用事件发送方法
func (h *EventHub) Emit(eventName string, payload interface{}) {
	h.emit(eventName, payload)
}

// 应用阶段事件
type AppStateEvent struct {
	State string `json:"state"` // "INITIAL", "CODING", "CODE_READY"
}

func (h *EventHub) EmitAppState(state string) {
	h.emit("app:state", AppStateEvent{State: state})
}

// 状态更新事件
type StatusEvent struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	IsComplete bool   `json:"isComplete"`
	IsCurrent  bool   `json:"isCurrent"`
	CommitID   string `json:"commitId,omitempty"`
}

func (h *EventHub) EmitStatus(event StatusEvent) {
	h.emit("status:update", event)
}

// 代码流式输出事件
type CodeChunkEvent struct {
	CommitHash   string `json:"commitHash"`
	VariantIndex int    `json:"variantIndex"`
	Token        string `json:"token"`
}

func (h *EventHub) EmitCodeChunk(event CodeChunkEvent) {
	h.emit("code:chunk", event)
}

// 变体状态事件
type VariantStatusEvent struct {
	CommitHash   string `json:"commitHash"`
	VariantIndex int    `json:"variantIndex"`
	Status       string `json:"status"` // "pending", "generating", "complete", "error"
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (h *EventHub) EmitVariantStatus(event VariantStatusEvent) {
	h.emit("variant:status", event)
}

// 头指针变更事件
type HeadChangedEvent struct {
	Head string `json:"head"`
}

func (h *EventHub) EmitHeadChanged(head string) {
	h.emit("commits:head", HeadChangedEvent{Head: head})
}

// 思考步骤事件
type ThinkingEvent struct {
	ID       string `json:"id"`
	Content  string `json:"content"`
	Type     string `json:"type"` // "thinking" or "reasoning"
	CommitID string `json:"commitId,omitempty"`
}

func (h *EventHub) EmitThinking(event ThinkingEvent) {
	h.emit("thinking:step", event)
}

// 结构提取流式事件
func (h *EventHub) EmitExtractionStream(partialJSON string) {
	h.emit("extraction:stream", map[string]interface{}{
		"partial": partialJSON,
	})
}

// 打字机显示事件
func (h *EventHub) EmitTypingDisplay(itemID string, displayText string) {
	h.emit("typing:display", map[string]interface{}{
		"item_id": itemID,
		"text":    displayText,
	})
}

// 项目快照事件
func (h *EventHub) EmitSnapshotSaved(projectID, snapshotID string) {
	h.emit("snapshot:saved", map[string]interface{}{
		"project_id":  projectID,
		"snapshot_id": snapshotID,
	})
}

// 设置变更事件
func (h *EventHub) EmitSettingsChanged(settings interface{}) {
	h.emit("settings:changed", settings)
}

// 会话消息变更事件，前端收到后重新拉取完整消息列表
func (h *EventHub) EmitConversationChanged() {
	h.emit("conversation:changed", nil)
}
