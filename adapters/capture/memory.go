package capture

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
	"github.com/kwenamoloto/agentk/domain/repositories"
)

// MemoryRecorder is an in-memory implementation of the Recorder port. The
// shell feeds captured audio frames in while recording; Stop drains the
// buffer. Suitable as a simple capture backend when no hardware binding is
// available.
type MemoryRecorder struct {
	logger *zap.Logger

	mu        sync.Mutex
	recording bool
	buffer    []byte
	failStart error // injected fault, nil in normal operation
}

// Ensure MemoryRecorder implements the Recorder interface
var _ repositories.Recorder = (*MemoryRecorder)(nil)

// NewMemoryRecorder creates an idle recorder.
func NewMemoryRecorder(logger *zap.Logger) *MemoryRecorder {
	return &MemoryRecorder{logger: logger}
}

// Start begins a capture. Starting while already recording is an error.
func (r *MemoryRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failStart != nil {
		return &domain.DeviceError{Op: "start", Cause: r.failStart}
	}
	if r.recording {
		return &domain.DeviceError{Op: "start", Cause: fmt.Errorf("capture already in progress")}
	}

	r.recording = true
	r.buffer = nil
	r.logger.Debug("Capture started")
	return nil
}

// Write appends one captured frame. Frames arriving while idle are dropped.
func (r *MemoryRecorder) Write(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.buffer = append(r.buffer, frame...)
}

// Stop finalizes the capture and returns the recorded clip. The buffer is
// released on every exit path.
func (r *MemoryRecorder) Stop(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil, &domain.DeviceError{Op: "stop", Cause: fmt.Errorf("no capture in progress")}
	}

	audio := r.buffer
	r.buffer = nil
	r.recording = false

	r.logger.Debug("Capture stopped", zap.Int("bytes", len(audio)))
	return audio, nil
}

// SetStartError injects a start failure, simulating a denied or missing
// device. Pass nil to restore normal operation.
func (r *MemoryRecorder) SetStartError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failStart = err
}
