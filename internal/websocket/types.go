// internal/websocket/types.go
package websocket

// RPCRequest 表示 UI 发来的 RPC 请求
type RPCRequest struct {
	ID     string        `json:"id"`     // 请求 ID，用于匹配响应
	Method string        `json:"method"` // 方法名，如 "CreateFromImage"、"SelectVariant"
	Params []interface{} `json:"params"` // 参数数组
}

// RPCResponse 表示返回给 UI 的 RPC 响应
type RPCResponse struct {
	ID     string      `json:"id"`               // 对应请求的 ID
	Result interface{} `json:"result,omitempty"` // 成功时的返回值
	Error  string      `json:"error,omitempty"`  // 失败时的错误信息
}

// WSEvent 表示后端主动推送的领域事件，
// 如 "status:update"、"code:chunk"、"commits:head"
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSMessage 是 WebSocket 消息的统一封装
type WSMessage struct {
	// 消息类型: "rpc_request", "rpc_response", "event"
	Kind string `json:"kind"`

	// RPC 请求 (kind == "rpc_request")
	Request *RPCRequest `json:"request,omitempty"`

	// RPC 响应 (kind == "rpc_response")
	Response *RPCResponse `json:"response,omitempty"`

	// 事件 (kind == "event")
	Event *WSEvent `json:"event,omitempty"`
}

// displayOnlyEvents 列出纯展示用的高频事件。
// 这类事件丢一两条无碍（UI 随时可重新拉取完整状态），
// 而 code:chunk、commits:head 等承载状态的事件绝不能丢。
var displayOnlyEvents = map[string]bool{
	"typing:display":    true,
	"extraction:stream": true,
}
