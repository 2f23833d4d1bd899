// internal/protocol/stream.go
package protocol

import (
	"context"
	"errors"
)

// ErrUserCancelled is returned from Recv after the stream was closed locally
// with CloseCodeUserCancel. Callers use it to tell a deliberate cancellation
// apart from a transport failure.
var ErrUserCancelled = errors.New("generation cancelled by user")

// Stream is one open bidirectional generation attempt. Recv blocks until the
// next typed event; closing the underlying transport is the only cancellation
// primitive, and the close code distinguishes a deliberate user cancel from
// everything else.
type Stream interface {
	Recv() (Event, error)
	Close(code int) error
}

// Opener dials the backend and opens a stream for the given payload
type Opener interface {
	Open(ctx context.Context, params GenerationParams) (Stream, error)
}
