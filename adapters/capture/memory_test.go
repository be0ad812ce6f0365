package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
)

func TestRecorderRoundTrip(t *testing.T) {
	r := NewMemoryRecorder(zap.NewNop())

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.Write([]byte("abc"))
	r.Write([]byte("def"))

	audio, err := r.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !bytes.Equal(audio, []byte("abcdef")) {
		t.Errorf("Expected %q, got %q", "abcdef", audio)
	}

	// The buffer must not leak into the next capture.
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	audio, err = r.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(audio) != 0 {
		t.Errorf("Expected an empty second capture, got %q", audio)
	}
}

func TestRecorderRejectsDoubleStart(t *testing.T) {
	r := NewMemoryRecorder(zap.NewNop())

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	err := r.Start(context.Background())
	var deviceErr *domain.DeviceError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("Expected *domain.DeviceError, got %T: %v", err, err)
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := NewMemoryRecorder(zap.NewNop())

	_, err := r.Stop(context.Background())
	var deviceErr *domain.DeviceError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("Expected *domain.DeviceError, got %T: %v", err, err)
	}
}

func TestRecorderInjectedStartFailure(t *testing.T) {
	r := NewMemoryRecorder(zap.NewNop())
	r.SetStartError(fmt.Errorf("permission denied"))

	err := r.Start(context.Background())
	var deviceErr *domain.DeviceError
	if !errors.As(err, &deviceErr) {
		t.Fatalf("Expected *domain.DeviceError, got %T: %v", err, err)
	}

	r.SetStartError(nil)
	if err := r.Start(context.Background()); err != nil {
		t.Errorf("Expected start to recover, got %v", err)
	}

	r.Write([]byte("ok"))
	if _, err := r.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRecorderDropsFramesWhileIdle(t *testing.T) {
	r := NewMemoryRecorder(zap.NewNop())
	r.Write([]byte("stray"))

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	audio, err := r.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(audio) != 0 {
		t.Errorf("Expected stray frames to be dropped, got %q", audio)
	}
}
