// internal/websocket/client_test.go
package websocket

import (
	"errors"
	"testing"
)

// fullClient returns a client whose send buffer is already saturated.
// WritePump is deliberately not running, so nothing drains the channel.
func fullClient(t *testing.T) *Client {
	t.Helper()
	client := NewClient("c1", nil)
	for i := 0; i < sendBufferSize; i++ {
		if err := client.SendEvent("commits:head", "h"); err != nil {
			t.Fatalf("Buffer filled early at %d: %v", i, err)
		}
	}
	return client
}

func TestSendEventDropsDisplayOnlyUnderBackpressure(t *testing.T) {
	client := fullClient(t)

	if err := client.SendEvent("typing:display", map[string]string{"text": "hi"}); err != nil {
		t.Errorf("Expected display-only event dropped silently, got %v", err)
	}
	if err := client.SendEvent("extraction:stream", "{"); err != nil {
		t.Errorf("Expected display-only event dropped silently, got %v", err)
	}
}

func TestSendEventRejectsSlowClientOnStateEvents(t *testing.T) {
	client := fullClient(t)

	if err := client.SendEvent("code:chunk", "tok"); !errors.Is(err, ErrSlowClient) {
		t.Errorf("Expected ErrSlowClient for state event, got %v", err)
	}
	if err := client.SendResponse("req-1", "ok", ""); !errors.Is(err, ErrSlowClient) {
		t.Errorf("Expected ErrSlowClient for RPC response, got %v", err)
	}
}

func TestClientCloseIsIdempotent(t *testing.T) {
	client := NewClient("c1", nil)
	client.Close()
	client.Close()

	// Sends after close are no-ops, not panics on a closed channel
	if err := client.SendEvent("app:state", "INITIAL"); err != nil {
		t.Errorf("Expected nil after close, got %v", err)
	}
	if err := client.SendResponse("req-1", nil, "boom"); err != nil {
		t.Errorf("Expected nil after close, got %v", err)
	}
}
