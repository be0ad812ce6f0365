package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
)

func TestUploadSendsMultipartForm(t *testing.T) {
	var gotFile []byte
	var gotType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("voice_note")
		if err != nil {
			t.Errorf("Expected a voice_note file: %v", err)
			return
		}
		defer file.Close()
		gotFile, _ = io.ReadAll(file)
		gotType = r.FormValue("type")
		if r.FormValue("timestamp") == "" {
			t.Error("Expected a timestamp field")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uploader, err := NewVoiceNoteUploader(Config{Endpoint: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewVoiceNoteUploader() error = %v", err)
	}

	if err := uploader.Upload(context.Background(), []byte("wav-bytes"), time.Now()); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if string(gotFile) != "wav-bytes" {
		t.Errorf("Expected the clip bytes, got %q", gotFile)
	}
	if gotType != "voice_note" {
		t.Errorf("Expected type voice_note, got %q", gotType)
	}
}

func TestUploadNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	uploader, err := NewVoiceNoteUploader(Config{Endpoint: server.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewVoiceNoteUploader() error = %v", err)
	}

	err = uploader.Upload(context.Background(), []byte("wav-bytes"), time.Now())
	var deliveryErr *domain.DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Expected *domain.DeliveryError, got %T: %v", err, err)
	}
	if deliveryErr.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", deliveryErr.Status)
	}
}

func TestUploadRejectsEmptyClip(t *testing.T) {
	uploader, err := NewVoiceNoteUploader(Config{Endpoint: "https://example.com/webhook/voice-note"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewVoiceNoteUploader() error = %v", err)
	}

	if err := uploader.Upload(context.Background(), nil, time.Now()); err == nil {
		t.Error("Expected an error for an empty clip")
	}
}
