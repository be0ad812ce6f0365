package repositories

import "context"

// TranscriptUpdate carries the latest recognized text for the active
// utterance. Repeated updates for the same utterance supersede each other;
// Final marks the recognizer's last word on it.
type TranscriptUpdate struct {
	Text  string
	Final bool
}

// CallEventKind classifies lifecycle events emitted by a live voice session.
type CallEventKind string

const (
	CallStarted   CallEventKind = "call_started"
	CallEnded     CallEventKind = "call_ended"
	TurnEnded     CallEventKind = "turn_ended"
	CallAssistant CallEventKind = "assistant"
)

// CallEvent is a lifecycle or reply event from the live voice session. Text
// is set for CallAssistant events.
type CallEvent struct {
	Kind CallEventKind
	Text string
}

// VoiceOptions configures a live voice call.
type VoiceOptions struct {
	// StreamTranscripts requests incremental transcript updates during the
	// call rather than a single final transcript.
	StreamTranscripts bool
	Language          string
}

// LiveVoiceSession abstracts the bidirectional, long-lived voice transport.
// Implementations must be safe to Stop when no call is active and must
// report domain.ErrNotReady rather than faulting when the underlying handle
// is absent.
type LiveVoiceSession interface {
	// Load makes the capability ready for use. It is idempotent: the first
	// call does the work, every later call returns the same cached outcome.
	Load(ctx context.Context) error
	// Init binds the session to a credential and call options. Must be
	// called after Load and before Start.
	Init(credential string, opts VoiceOptions) error
	// Start begins the call. Call start is optimistic: a nil return means
	// the call is considered active without waiting for confirmation.
	Start(ctx context.Context) error
	// Stop ends the call if one is active.
	Stop(ctx context.Context) error
	// OnTranscript registers the transcript callback. It may fire zero or
	// more times during an active call.
	OnTranscript(fn func(TranscriptUpdate))
	// OnEvent registers the lifecycle event callback.
	OnEvent(fn func(CallEvent))
}

// Recorder abstracts microphone capture for voice notes. Stop finalizes the
// recording and must release all capture resources on every exit path,
// including failures.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
}
