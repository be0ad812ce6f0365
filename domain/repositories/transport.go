package repositories

import (
	"context"
	"time"

	"github.com/kwenamoloto/agentk/domain/entities"
)

// AssistantReply is the decoded outcome of a request/response exchange.
type AssistantReply struct {
	Content string
	Action  *entities.ActionResult
}

// RequestResponse abstracts the fire-and-forget webhook transport: one POST
// carrying the outgoing message, one reply.
type RequestResponse interface {
	// Send issues the exchange and returns the decoded reply. A transport
	// failure (network error or non-2xx status) is reported as a
	// *domain.DeliveryError; an unparseable body is recovered locally and
	// never reported as an error.
	Send(ctx context.Context, text string) (AssistantReply, error)
}

// AssistantEvent is the terminal event of a streaming query channel. Err is
// set when the channel failed before delivering a substantive event.
type AssistantEvent struct {
	Content string
	Action  *entities.ActionResult
	Err     error
}

// StreamingQuery abstracts the server-push transport: each Send opens exactly
// one channel for one query and delivers at most one terminal event.
type StreamingQuery interface {
	// Send opens a fresh server-push channel for the query. Any channel
	// still open from a previous Send is closed first; at most one channel
	// is open per session at any time. The returned channel yields zero or
	// one AssistantEvent and is then closed.
	Send(ctx context.Context, text string) (<-chan AssistantEvent, error)
	// Close closes any open channel. Safe to call when none is open.
	Close() error
}

// VoiceNoteUploader abstracts the attachment side channel used to deliver a
// recorded voice note as a multipart upload.
type VoiceNoteUploader interface {
	Upload(ctx context.Context, audio []byte, recordedAt time.Time) error
}
