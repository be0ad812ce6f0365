package usecase

import (
	"testing"
)

func TestVoiceLifecycleHappyPath(t *testing.T) {
	l := NewVoiceLifecycle()

	if l.State() != CallStateIdle {
		t.Fatalf("Expected idle, got %s", l.State())
	}
	if !l.Begin() {
		t.Fatal("Expected Begin to succeed from idle")
	}
	if !l.Active() {
		t.Error("Expected the call to count as live while starting")
	}
	if !l.Activate() {
		t.Fatal("Expected Activate to succeed from starting")
	}
	if !l.End() {
		t.Fatal("Expected End to succeed from active")
	}
	if !l.Finish() {
		t.Fatal("Expected Finish to succeed from ending")
	}
	if l.State() != CallStateIdle {
		t.Errorf("Expected idle after finish, got %s", l.State())
	}
}

func TestVoiceLifecycleRejectsOutOfOrderTransitions(t *testing.T) {
	l := NewVoiceLifecycle()

	if l.Activate() {
		t.Error("Activate must fail from idle")
	}
	if l.End() {
		t.Error("End must fail from idle")
	}
	if l.Finish() {
		t.Error("Finish must fail from idle")
	}

	l.Begin()
	if l.Begin() {
		t.Error("Begin must fail while a call is underway")
	}

	l.Activate()
	// A late confirmation event after optimistic activation.
	if l.Activate() {
		t.Error("Activate must report false once already active")
	}
	if l.State() != CallStateActive {
		t.Errorf("Repeated Activate must not change state, got %s", l.State())
	}
}

func TestVoiceLifecycleEndClearsTranscript(t *testing.T) {
	l := NewVoiceLifecycle()
	l.Begin()
	l.Activate()

	l.SetTranscript("hello there")
	if l.Transcript() != "hello there" {
		t.Fatalf("Expected transcript to be recorded, got %q", l.Transcript())
	}

	l.End()
	if l.Transcript() != "" {
		t.Errorf("Expected transcript to clear on end, got %q", l.Transcript())
	}
	if l.Active() {
		t.Error("Expected the call to no longer be live while ending")
	}
}

func TestVoiceLifecycleTranscriptIgnoredWhenIdle(t *testing.T) {
	l := NewVoiceLifecycle()
	l.SetTranscript("stray update")
	if l.Transcript() != "" {
		t.Errorf("Expected stray transcript to be ignored, got %q", l.Transcript())
	}
}

func TestVoiceLifecycleAbort(t *testing.T) {
	l := NewVoiceLifecycle()
	l.Begin()
	l.SetTranscript("partial")

	l.Abort()
	if l.State() != CallStateIdle {
		t.Errorf("Expected idle after abort, got %s", l.State())
	}
	if l.Transcript() != "" {
		t.Errorf("Expected transcript cleared after abort, got %q", l.Transcript())
	}
	if !l.Begin() {
		t.Error("Expected a fresh call to start after abort")
	}
}
