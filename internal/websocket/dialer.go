// internal/websocket/dialer.go
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixcode/internal/protocol"
)

// Dialer 连接代码生成后端，实现 protocol.Opener
type Dialer struct {
	// BaseURL 后端地址，如 "ws://127.0.0.1:7001"
	BaseURL string
	// HandshakeTimeout 握手超时，零值时使用默认 10s
	HandshakeTimeout time.Duration
}

// NewDialer 创建指向后端的拨号器
func NewDialer(baseURL string) *Dialer {
	return &Dialer{BaseURL: baseURL}
}

// Open 打开一次生成会话：建立连接并发送完整的生成参数
func (d *Dialer) Open(ctx context.Context, params protocol.GenerationParams) (protocol.Stream, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	url := d.BaseURL + "/generate-code"
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	// 第一条消息是完整的生成参数
	payload, err := json.Marshal(params)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send params: %w", err)
	}

	return &backendStream{conn: conn}, nil
}

// backendStream 一次生成会话的接收端
type backendStream struct {
	conn *websocket.Conn

	mu        sync.Mutex
	closed    bool
	userClose bool
	// 干净关闭时补发一次 done 事件
	sentSyntheticDone bool
}

// Recv 读取并解析下一个事件
func (s *backendStream) Recv() (protocol.Event, error) {
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return s.translateReadError(err)
		}

		event, err := protocol.ParseEvent(message)
		if err != nil {
			// 未知事件类型不终止会话
			log.Printf("[Backend] Skipping frame: %v", err)
			continue
		}
		return event, nil
	}
}

// translateReadError 将底层读取错误映射为协议层语义
func (s *backendStream) translateReadError(err error) (protocol.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userClose {
		return nil, protocol.ErrUserCancelled
	}

	if websocket.IsCloseError(err, protocol.CloseCodeUserCancel) {
		return nil, protocol.ErrUserCancelled
	}

	// 正常关闭视为流结束；没收到 done 的话补一个
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		if !s.sentSyntheticDone {
			s.sentSyntheticDone = true
			return protocol.CompleteEvent{}, nil
		}
		return nil, fmt.Errorf("stream already finished")
	}

	return nil, fmt.Errorf("read event: %w", err)
}

// Close 用给定关闭码断开连接
func (s *backendStream) Close(code int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if code == protocol.CloseCodeUserCancel {
		s.userClose = true
	}
	s.mu.Unlock()

	message := websocket.FormatCloseMessage(code, "")
	deadline := time.Now().Add(time.Second)
	if err := s.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
		log.Printf("[Backend] Close frame write failed: %v", err)
	}
	return s.conn.Close()
}
