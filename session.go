// Package agentk assembles the conversation session core from its adapters.
// The embedding shell supplies a Notifier and renders the timeline; everything
// else is wired here from configuration.
package agentk

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/adapters/capture"
	"github.com/kwenamoloto/agentk/adapters/stream"
	"github.com/kwenamoloto/agentk/adapters/voice"
	"github.com/kwenamoloto/agentk/adapters/webhook"
	"github.com/kwenamoloto/agentk/domain/entities"
	"github.com/kwenamoloto/agentk/domain/repositories"
	"github.com/kwenamoloto/agentk/internal/config"
	"github.com/kwenamoloto/agentk/usecase"
)

// Session bundles the assembled service with the collaborators the shell may
// need direct access to.
type Session struct {
	Service  *usecase.ConversationService
	Timeline *entities.Timeline
	Recorder *capture.MemoryRecorder
	Webhook  *webhook.Client
}

// NewSession wires a conversation session from configuration. Endpoints left
// empty in the configuration simply leave the corresponding feature unwired;
// the service degrades those operations instead of faulting.
func NewSession(cfg config.Core, notifier repositories.Notifier, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeline := entities.NewTimeline()
	deps := usecase.Deps{
		Timeline: timeline,
		Notifier: notifier,
	}

	var webhookClient *webhook.Client
	if cfg.WebhookURL != "" {
		client, err := webhook.NewClient(webhook.Config{Endpoint: cfg.WebhookURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook client: %w", err)
		}
		webhookClient = client
		deps.Webhook = client
	}

	if cfg.StreamURL != "" {
		client, err := stream.NewClient(stream.Config{Endpoint: cfg.StreamURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create stream client: %w", err)
		}
		deps.Stream = client
	}

	if cfg.VoiceGatewayURL != "" {
		session, err := voice.NewGatewaySession(voice.Config{GatewayURL: cfg.VoiceGatewayURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create voice session: %w", err)
		}
		deps.Voice = session
	}

	if cfg.VoiceNoteURL != "" {
		uploader, err := webhook.NewVoiceNoteUploader(webhook.Config{Endpoint: cfg.VoiceNoteURL}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create voice note uploader: %w", err)
		}
		deps.Uploader = uploader
	}

	recorder := capture.NewMemoryRecorder(logger)
	deps.Recorder = recorder

	service, err := usecase.NewConversationService(deps, usecase.Config{
		Transport:       usecase.TransportKind(cfg.Transport),
		VoiceCredential: cfg.VoiceCredential,
		VoiceOptions:    repositories.VoiceOptions{StreamTranscripts: true},
		Greeting:        cfg.Greeting,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &Session{
		Service:  service,
		Timeline: timeline,
		Recorder: recorder,
		Webhook:  webhookClient,
	}, nil
}
