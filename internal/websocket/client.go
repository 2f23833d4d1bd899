// internal/websocket/client.go
package websocket

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrSlowClient 表示客户端消费速度跟不上状态事件的产生速度。
// 服务端收到该错误后会断开连接，UI 重连后通过 RPC 重新同步完整状态。
var ErrSlowClient = errors.New("client too slow for state events")

// 代码生成期间 code:chunk 按 token 级粒度推送，缓冲区要足够深
const sendBufferSize = 1024

// Client 表示一个连到本进程的 UI 连接
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewClient 创建新的客户端
func NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}
}

// SendEvent 向客户端推送领域事件。
// 缓冲区满时纯展示类事件直接丢弃，状态类事件返回 ErrSlowClient。
func (c *Client) SendEvent(eventType string, payload interface{}) error {
	data, err := json.Marshal(&WSMessage{
		Kind: "event",
		Event: &WSEvent{
			Type:    eventType,
			Payload: payload,
		},
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.Send <- data:
		return nil
	default:
		if displayOnlyEvents[eventType] {
			return nil
		}
		return ErrSlowClient
	}
}

// SendResponse 向客户端发送 RPC 响应
func (c *Client) SendResponse(id string, result interface{}, errMsg string) error {
	resp := &RPCResponse{ID: id}
	if errMsg != "" {
		resp.Error = errMsg
	} else {
		resp.Result = result
	}

	data, err := json.Marshal(&WSMessage{
		Kind:     "rpc_response",
		Response: resp,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}

	select {
	case c.Send <- data:
		return nil
	default:
		// RPC 响应不能丢，丢了 UI 的调用会永远挂起
		return ErrSlowClient
	}
}

// WritePump 将 Send 通道中的消息写入 WebSocket
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// Close 关闭客户端连接，可安全地多次调用
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
