// internal/websocket/dialer_test.go
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pixcode/internal/protocol"
)

// fakeBackend 用 httptest 模拟代码生成后端
func fakeBackend(t *testing.T, handler func(conn *websocket.Conn, params protocol.GenerationParams)) *Dialer {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate-code" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var params protocol.GenerationParams
		if err := json.Unmarshal(message, &params); err != nil {
			t.Errorf("Bad params payload: %v", err)
			return
		}
		handler(conn, params)
	}))
	t.Cleanup(server.Close)

	return NewDialer("ws" + strings.TrimPrefix(server.URL, "http"))
}

func TestDialerStreamsEvents(t *testing.T) {
	dialer := fakeBackend(t, func(conn *websocket.Conn, params protocol.GenerationParams) {
		if params.GenerationType != protocol.GenerationCreate {
			t.Errorf("Expected create params, got %s", params.GenerationType)
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chunk","value":"<div>","variantIndex":0}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"variantComplete","variantIndex":0}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"done"}`))
	})

	stream, err := dialer.Open(context.Background(), protocol.GenerationParams{
		GenerationType: protocol.GenerationCreate,
		InputMode:      protocol.InputImage,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close(websocket.CloseNormalClosure)

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	chunk, ok := event.(protocol.ChunkEvent)
	if !ok || chunk.Value != "<div>" {
		t.Fatalf("Expected chunk event, got %T %+v", event, event)
	}

	if event, err = stream.Recv(); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if _, ok := event.(protocol.VariantCompleteEvent); !ok {
		t.Fatalf("Expected variant complete, got %T", event)
	}

	if event, err = stream.Recv(); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if _, ok := event.(protocol.CompleteEvent); !ok {
		t.Fatalf("Expected complete event, got %T", event)
	}
}

func TestDialerSynthesizesDoneOnCleanClose(t *testing.T) {
	dialer := fakeBackend(t, func(conn *websocket.Conn, params protocol.GenerationParams) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chunk","value":"x","variantIndex":0}`))
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	})

	stream, err := dialer.Open(context.Background(), protocol.GenerationParams{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close(websocket.CloseNormalClosure)

	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("Expected synthetic done, got error: %v", err)
	}
	if _, ok := event.(protocol.CompleteEvent); !ok {
		t.Fatalf("Expected complete event, got %T", event)
	}
}

func TestDialerUserCancel(t *testing.T) {
	blockForever := make(chan struct{})
	t.Cleanup(func() { close(blockForever) })

	dialer := fakeBackend(t, func(conn *websocket.Conn, params protocol.GenerationParams) {
		<-blockForever
	})

	stream, err := dialer.Open(context.Background(), protocol.GenerationParams{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := stream.Recv()
		errCh <- err
	}()

	if err := stream.Close(protocol.CloseCodeUserCancel); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, protocol.ErrUserCancelled) {
			t.Errorf("Expected ErrUserCancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not return after cancel")
	}
}

func TestDialerSkipsUnknownFrames(t *testing.T) {
	dialer := fakeBackend(t, func(conn *websocket.Conn, params protocol.GenerationParams) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"keepalive"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"done"}`))
	})

	stream, err := dialer.Open(context.Background(), protocol.GenerationParams{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close(websocket.CloseNormalClosure)

	event, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if _, ok := event.(protocol.CompleteEvent); !ok {
		t.Fatalf("Expected unknown frame skipped, got %T", event)
	}
}
