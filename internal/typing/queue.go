// internal/typing/queue.go
package typing

import (
	"sync"
	"time"
)

// DefaultSpeed is the reveal rate in characters per second when an item does
// not specify one.
const DefaultSpeed = 50

// Item is one text reveal request. The id is stable per logical message so a
// re-render with identical content never animates twice.
type Item struct {
	ID         string
	Text       string
	Speed      int // characters per second
	Delay      time.Duration
	OnComplete func()
}

// Queue is the single global sequential scheduler: at most one item animates
// at any instant, all others wait in FIFO order. Reveal progress is tracked
// per id and survives in-place text updates.
type Queue struct {
	mu        sync.Mutex
	queue     []*Item
	current   *Item
	display   map[string]string
	progress  map[string]int // revealed rune count per id
	finished  map[string]bool
	running   bool
	closed    bool
	onDisplay func(id, text string)
}

// NewQueue creates a typing queue
func NewQueue() *Queue {
	return &Queue{
		display:  make(map[string]string),
		progress: make(map[string]int),
		finished: make(map[string]bool),
	}
}

// SetOnDisplay registers a callback fired with the visible prefix after every
// reveal step. Must be set before the first Enqueue; the callback runs outside
// the lock.
func (q *Queue) SetOnDisplay(fn func(id, text string)) {
	q.onDisplay = fn
}

func (q *Queue) notifyDisplay(id, text string) {
	if q.onDisplay != nil {
		q.onDisplay(id, text)
	}
}

// Enqueue adds an item. The request is a no-op when an item with the same id
// or the same literal text is already queued, currently animating, or has
// already fully revealed.
func (q *Queue) Enqueue(item Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.finished[item.ID] {
		return false
	}
	for _, queued := range q.queue {
		if queued.ID == item.ID || queued.Text == item.Text {
			return false
		}
	}
	if q.current != nil && (q.current.ID == item.ID || q.current.Text == item.Text) {
		return false
	}

	if item.Speed <= 0 {
		item.Speed = DefaultSpeed
	}

	queued := item
	q.queue = append(q.queue, &queued)
	if _, exists := q.display[item.ID]; !exists {
		q.display[item.ID] = ""
	}

	if !q.running {
		q.running = true
		go q.pump()
	}
	return true
}

// pump promotes queued items one at a time, in enqueue order
func (q *Queue) pump() {
	for {
		q.mu.Lock()
		if q.closed || len(q.queue) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		item := q.queue[0]
		q.queue = q.queue[1:]
		q.current = item
		delay := item.Delay
		q.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		q.reveal(item)

		q.mu.Lock()
		q.current = nil
		q.finished[item.ID] = true
		onComplete := item.OnComplete
		q.mu.Unlock()

		if onComplete != nil {
			onComplete()
		}
	}
}

// reveal extends the displayed prefix one character at a time at an interval
// of 1000/speed milliseconds. The target text is re-read on every step so an
// in-place update changes the goal without resetting progress.
func (q *Queue) reveal(item *Item) {
	interval := time.Second / time.Duration(item.Speed)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}

		runes := []rune(item.Text)
		revealed := q.progress[item.ID]
		if revealed >= len(runes) {
			q.display[item.ID] = string(runes)
			q.mu.Unlock()
			q.notifyDisplay(item.ID, string(runes))
			return
		}

		revealed++
		q.progress[item.ID] = revealed
		visible := string(runes[:revealed])
		q.display[item.ID] = visible
		q.mu.Unlock()

		q.notifyDisplay(item.ID, visible)
		time.Sleep(interval)
	}
}

// UpdateText changes the target text of a queued or currently-animating item
// without restarting its reveal progress.
func (q *Queue) UpdateText(id, newText string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, queued := range q.queue {
		if queued.ID == id {
			queued.Text = newText
		}
	}
	if q.current != nil && q.current.ID == id {
		q.current.Text = newText
	}
}

// Remove drops a not-yet-started item and forgets its revealed text
func (q *Queue) Remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := q.queue[:0]
	for _, queued := range q.queue {
		if queued.ID != id {
			filtered = append(filtered, queued)
		}
	}
	q.queue = filtered
	delete(q.display, id)
	delete(q.progress, id)
}

// DisplayText returns the currently revealed prefix for an id, independent of
// whether the id is active, queued, or already finished. Finished items
// retain their full text; never-queued ids return the empty string.
func (q *Queue) DisplayText(id string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.display[id]
}

// RevealInstant bypasses the queue entirely and shows the full text at once
func (q *Queue) RevealInstant(id, text string) {
	q.mu.Lock()
	q.display[id] = text
	q.progress[id] = len([]rune(text))
	q.finished[id] = true
	q.mu.Unlock()

	q.notifyDisplay(id, text)
}

// IsTyping reports whether the given id is the one currently animating
func (q *Queue) IsTyping(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current != nil && q.current.ID == id
}

// Idle reports whether nothing is animating and nothing is queued
func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current == nil && len(q.queue) == 0
}

// Close stops the queue. Pending items are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.queue = nil
}
