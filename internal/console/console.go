// internal/console/console.go
package console

import "sync"

// Sink collects execution/log lines per variant. Lines are forwarded verbatim
// from the generation stream and reset at the start of every attempt.
type Sink struct {
	mu    sync.RWMutex
	lines map[int][]string
}

// NewSink creates an empty console sink
func NewSink() *Sink {
	return &Sink{lines: make(map[int][]string)}
}

// Append adds one line to a variant's console
func (s *Sink) Append(variantIndex int, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[variantIndex] = append(s.lines[variantIndex], line)
}

// Lines returns a copy of a variant's console output
func (s *Sink) Lines(variantIndex int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lines[variantIndex]...)
}

// Reset clears every variant's console
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[int][]string)
}
