package entities

import (
	"sync"
)

// Timeline is the ordered, append-only log of messages for one session. It is
// the single source of truth for rendering: entries are only ever added via
// Append, patched in place via ReplaceByID, or wholesale replaced via Reset.
type Timeline struct {
	mu       sync.RWMutex
	messages []Message
	onChange func([]Message)
}

// NewTimeline creates a timeline seeded with the given initial messages,
// typically a single assistant greeting.
func NewTimeline(seed ...Message) *Timeline {
	t := &Timeline{}
	t.messages = append(t.messages, seed...)
	return t
}

// OnChange registers a single consumer notified synchronously after every
// mutation with a snapshot of the full timeline. The shell uses this to
// re-render.
func (t *Timeline) OnChange(fn func([]Message)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Append adds a message to the end of the timeline, preserving insertion
// order.
func (t *Timeline) Append(msg Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.notifyLocked()
	t.mu.Unlock()
}

// ReplaceByID patches the content and action result of an existing message in
// place, preserving its position, id, sender and timestamp. A missing id is a
// no-op.
func (t *Timeline) ReplaceByID(id string, content string, action *ActionResult) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].ID == id {
			t.messages[i].Content = content
			if action != nil {
				t.messages[i].ActionResult = action
			}
			t.notifyLocked()
			return true
		}
	}
	return false
}

// Reset replaces the entire timeline with the given seed sequence.
func (t *Timeline) Reset(seed ...Message) {
	t.mu.Lock()
	t.messages = append([]Message(nil), seed...)
	t.notifyLocked()
	t.mu.Unlock()
}

// Messages returns a snapshot of the timeline in insertion order.
func (t *Timeline) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages in the timeline.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Last returns the most recent message, or false when the timeline is empty.
func (t *Timeline) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// FindByID returns the message with the given id, or false if absent.
func (t *Timeline) FindByID(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := range t.messages {
		if t.messages[i].ID == id {
			return t.messages[i], true
		}
	}
	return Message{}, false
}

func (t *Timeline) notifyLocked() {
	if t.onChange == nil {
		return
	}
	snapshot := make([]Message, len(t.messages))
	copy(snapshot, t.messages)
	t.onChange(snapshot)
}
