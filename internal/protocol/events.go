// internal/protocol/events.go
package protocol

import (
	"encoding/json"
	"fmt"
)

// WebSocket close codes on the code-generation transport. The user-cancel
// code is distinguished from every server-side or network-failure code: both
// the backend and the client rollback logic depend on telling a deliberate
// cancellation apart from a lost connection.
const (
	CloseCodeUserCancel = 4333
)

// Wire event type names sent by the backend
const (
	typeChunk           = "chunk"
	typeSetCode         = "setCode"
	typeStatus          = "status"
	typeError           = "error"
	typeVariantComplete = "variantComplete"
	typeVariantError    = "variantError"
	typeVariantCount    = "variantCount"
	typeThinking        = "thinking"
	typeReasoning       = "reasoning"
	typePhase           = "phase"
	typeCancel          = "cancel"
	typeDone            = "done"
)

// Event is one inbound protocol event. The set of implementations is closed:
// dispatch switches over every kind, so adding a new event is a
// compile-checked change.
type Event interface {
	isEvent()
}

// ChunkEvent is one streamed code token for a variant. Tokens must be applied
// in arrival order; concatenation order is semantically significant.
type ChunkEvent struct {
	VariantIndex int
	Value        string
}

// SetCodeEvent replaces a variant's code wholesale with a final snapshot,
// which may differ from the concatenation of streamed tokens.
type SetCodeEvent struct {
	VariantIndex int
	Value        string
}

// ConsoleEvent is an execution/log line forwarded verbatim to the per-variant
// console sink.
type ConsoleEvent struct {
	VariantIndex int
	Value        string
}

// VariantCompleteEvent marks one variant complete
type VariantCompleteEvent struct {
	VariantIndex int
}

// VariantErrorEvent marks one variant failed. It does not abort sibling
// variants.
type VariantErrorEvent struct {
	VariantIndex int
	Message      string
}

// VariantCountEvent right-sizes the placeholder variant array. It may arrive
// after some variants already hold partial code; surviving slots keep their
// bytes.
type VariantCountEvent struct {
	Count int
}

// ThinkingEvent is a thinking-token fragment
type ThinkingEvent struct {
	VariantIndex int
	Content      string
}

// ReasoningEvent is a reasoning-token fragment
type ReasoningEvent struct {
	VariantIndex int
	Content      string
}

// PhaseEvent is a backend-pushed phase update. Once one arrives, the backend
// owns status control for the rest of the generation.
type PhaseEvent struct {
	Phase  string
	Status string
}

// ErrorEvent is a whole-generation error from the backend or transport
type ErrorEvent struct {
	Message string
}

// CancelEvent is a server-acknowledged cancellation
type CancelEvent struct{}

// CompleteEvent is the stream's terminal success event
type CompleteEvent struct{}

func (ChunkEvent) isEvent()           {}
func (SetCodeEvent) isEvent()         {}
func (ConsoleEvent) isEvent()         {}
func (VariantCompleteEvent) isEvent() {}
func (VariantErrorEvent) isEvent()    {}
func (VariantCountEvent) isEvent()    {}
func (ThinkingEvent) isEvent()        {}
func (ReasoningEvent) isEvent()       {}
func (PhaseEvent) isEvent()           {}
func (ErrorEvent) isEvent()           {}
func (CancelEvent) isEvent()          {}
func (CompleteEvent) isEvent()        {}

// envelope is the raw wire shape of every inbound message
type envelope struct {
	Type         string `json:"type"`
	Value        string `json:"value,omitempty"`
	VariantIndex int    `json:"variantIndex,omitempty"`
	VariantCount int    `json:"variantCount,omitempty"`
	Phase        string `json:"phase,omitempty"`
	Status       string `json:"status,omitempty"`
}

// ParseEvent decodes one inbound frame into its typed event
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch env.Type {
	case typeChunk:
		return ChunkEvent{VariantIndex: env.VariantIndex, Value: env.Value}, nil
	case typeSetCode:
		return SetCodeEvent{VariantIndex: env.VariantIndex, Value: env.Value}, nil
	case typeStatus:
		return ConsoleEvent{VariantIndex: env.VariantIndex, Value: env.Value}, nil
	case typeError:
		return ErrorEvent{Message: env.Value}, nil
	case typeVariantComplete:
		return VariantCompleteEvent{VariantIndex: env.VariantIndex}, nil
	case typeVariantError:
		return VariantErrorEvent{VariantIndex: env.VariantIndex, Message: env.Value}, nil
	case typeVariantCount:
		count := env.VariantCount
		if count == 0 {
			// Some backends put the count in the generic value field
			fmt.Sscanf(env.Value, "%d", &count)
		}
		return VariantCountEvent{Count: count}, nil
	case typeThinking:
		return ThinkingEvent{VariantIndex: env.VariantIndex, Content: env.Value}, nil
	case typeReasoning:
		return ReasoningEvent{VariantIndex: env.VariantIndex, Content: env.Value}, nil
	case typePhase:
		return PhaseEvent{Phase: env.Phase, Status: env.Status}, nil
	case typeCancel:
		return CancelEvent{}, nil
	case typeDone:
		return CompleteEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}
