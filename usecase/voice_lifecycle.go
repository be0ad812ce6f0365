package usecase

import (
	"sync"
)

// CallState represents the lifecycle state of a live voice call.
type CallState string

const (
	CallStateIdle     CallState = "idle"
	CallStateStarting CallState = "starting"
	CallStateActive   CallState = "active"
	CallStateEnding   CallState = "ending"
)

// VoiceLifecycle tracks the Idle -> Starting -> Active -> Ending -> Idle
// progression of a voice call along with the latest transcript text.
// Transitions that do not apply in the current state are rejected, which is
// what makes re-entrant start a safe no-op at the caller.
type VoiceLifecycle struct {
	mu         sync.Mutex
	state      CallState
	transcript string
}

// NewVoiceLifecycle creates a lifecycle in the Idle state.
func NewVoiceLifecycle() *VoiceLifecycle {
	return &VoiceLifecycle{state: CallStateIdle}
}

// State returns the current call state.
func (l *VoiceLifecycle) State() CallState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Active reports whether a call is currently considered live.
func (l *VoiceLifecycle) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == CallStateStarting || l.state == CallStateActive
}

// Transcript returns the latest transcript text.
func (l *VoiceLifecycle) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transcript
}

// SetTranscript records the latest transcript text. Ignored unless a call is
// live.
func (l *VoiceLifecycle) SetTranscript(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == CallStateStarting || l.state == CallStateActive {
		l.transcript = text
	}
}

// Begin moves Idle -> Starting. Returns false when a call is already
// underway.
func (l *VoiceLifecycle) Begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CallStateIdle {
		return false
	}
	l.state = CallStateStarting
	return true
}

// Activate moves Starting -> Active. Safe to call repeatedly: a confirmation
// event after an optimistic activation is a no-op.
func (l *VoiceLifecycle) Activate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CallStateStarting {
		return false
	}
	l.state = CallStateActive
	return true
}

// End moves Starting or Active -> Ending and clears the transcript. Returns
// false when no call is live.
func (l *VoiceLifecycle) End() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CallStateStarting && l.state != CallStateActive {
		return false
	}
	l.state = CallStateEnding
	l.transcript = ""
	return true
}

// Finish moves Ending -> Idle, completing the teardown.
func (l *VoiceLifecycle) Finish() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != CallStateEnding {
		return false
	}
	l.state = CallStateIdle
	return true
}

// Abort forces the lifecycle back to Idle from any state, clearing the
// transcript. Used when call setup fails partway.
func (l *VoiceLifecycle) Abort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = CallStateIdle
	l.transcript = ""
}
