package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
	"github.com/kwenamoloto/agentk/domain/repositories"
)

// VoiceNoteUploader delivers recorded voice notes to the attachment side
// channel as a multipart upload.
type VoiceNoteUploader struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// Ensure VoiceNoteUploader implements the uploader interface
var _ repositories.VoiceNoteUploader = (*VoiceNoteUploader)(nil)

// NewVoiceNoteUploader creates an uploader for the given endpoint.
func NewVoiceNoteUploader(config Config, logger *zap.Logger) (*VoiceNoteUploader, error) {
	if err := ValidateEndpoint(config.Endpoint); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &VoiceNoteUploader{
		endpoint: config.Endpoint,
		client:   httpClient,
		logger:   logger,
	}, nil
}

// Upload sends one voice note. The multipart form carries the binary clip as
// voice_note plus timestamp and type fields.
func (u *VoiceNoteUploader) Upload(ctx context.Context, audio []byte, recordedAt time.Time) error {
	if len(audio) == 0 {
		return fmt.Errorf("voice note is empty")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("voice_note", "voice_note.wav")
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("failed to write voice note data: %w", err)
	}
	if err := writer.WriteField("timestamp", recordedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write timestamp field: %w", err)
	}
	if err := writer.WriteField("type", "voice_note"); err != nil {
		return fmt.Errorf("failed to write type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Error("Voice note upload failed", zap.String("endpoint", u.endpoint), zap.Error(err))
		return &domain.DeliveryError{Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		u.logger.Error("Voice note upload returned non-success status",
			zap.Int("status", resp.StatusCode))
		return &domain.DeliveryError{Status: resp.StatusCode}
	}

	u.logger.Info("Voice note uploaded",
		zap.Int("bytes", len(audio)),
		zap.Time("recordedAt", recordedAt))
	return nil
}
