package repositories

import "context"

// Assistant abstracts the reply generator behind the development gateway.
// The production backend is remote; this port only exists so the gateway can
// answer with either a real model or a canned mock.
type Assistant interface {
	// Reply takes the user's message and returns the assistant's reply.
	Reply(ctx context.Context, message string) (string, error)
}
