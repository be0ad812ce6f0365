package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
	"github.com/kwenamoloto/agentk/domain/entities"
	"github.com/kwenamoloto/agentk/domain/repositories"
)

// TransportKind selects the text transport strategy.
type TransportKind string

const (
	TransportWebhook TransportKind = "webhook"
	TransportStream  TransportKind = "stream"
)

// Mode is the mutually exclusive interaction mode.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
)

const (
	// apologyText is the synthetic assistant message appended when a
	// transport fails to deliver a reply.
	apologyText = "Sorry, I could not reach the assistant. Please try again."

	// voiceIDPrefix tags timeline messages sourced from the live voice
	// transcript so they can be patched in place.
	voiceIDPrefix = "voice-"

	// voiceNoteSentText is appended after a voice note reaches the side
	// channel.
	voiceNoteSentText = "🎤 Voice message sent"
)

// Deps are the collaborators the conversation service orchestrates. Webhook
// and Stream are the two text transports; Voice, Recorder and Uploader back
// the voice features. Notifier is supplied by the shell.
type Deps struct {
	Timeline *entities.Timeline
	Webhook  repositories.RequestResponse
	Stream   repositories.StreamingQuery
	Voice    repositories.LiveVoiceSession
	Recorder repositories.Recorder
	Uploader repositories.VoiceNoteUploader
	Notifier repositories.Notifier
}

// Config holds the service's behavioural knobs.
type Config struct {
	Transport       TransportKind
	VoiceCredential string
	VoiceOptions    repositories.VoiceOptions
	Greeting        string
}

// ConversationService is the session controller: it owns the timeline,
// arbitrates between transports, enforces one-in-flight-exchange semantics
// and reconciles live-voice transcripts into the timeline. All failure paths
// degrade to a visible timeline entry or notification; nothing propagates as
// a fault past this boundary.
type ConversationService struct {
	deps      Deps
	config    Config
	lifecycle *VoiceLifecycle
	logger    *zap.Logger

	mu             sync.Mutex
	mode           Mode
	pending        bool
	canceled       bool
	cancelExchange context.CancelFunc
	utteranceID    string // id of the active voice utterance message, "" when none
	recording      bool
}

// NewConversationService creates the session controller and registers the
// voice callbacks. The timeline is seeded with the configured greeting when
// one is set and the timeline is empty.
func NewConversationService(deps Deps, config Config, logger *zap.Logger) (*ConversationService, error) {
	if deps.Timeline == nil {
		return nil, fmt.Errorf("timeline is required")
	}
	if config.Transport == "" {
		config.Transport = TransportWebhook
	}
	if config.Transport != TransportWebhook && config.Transport != TransportStream {
		return nil, fmt.Errorf("unknown transport kind %q", config.Transport)
	}

	s := &ConversationService{
		deps:      deps,
		config:    config,
		lifecycle: NewVoiceLifecycle(),
		logger:    logger,
		mode:      ModeText,
	}

	if config.Greeting != "" && deps.Timeline.Len() == 0 {
		deps.Timeline.Append(entities.NewAssistantMessage(config.Greeting))
	}

	if deps.Voice != nil {
		deps.Voice.OnTranscript(s.handleTranscript)
		deps.Voice.OnEvent(s.handleCallEvent)
	}

	return s, nil
}

// Timeline exposes the message timeline for rendering.
func (s *ConversationService) Timeline() *entities.Timeline {
	return s.deps.Timeline
}

// Pending reports whether an exchange is awaiting its reply.
func (s *ConversationService) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Mode returns the current interaction mode.
func (s *ConversationService) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// VoiceActive reports whether a voice call is live.
func (s *ConversationService) VoiceActive() bool {
	return s.lifecycle.Active()
}

// Transcript returns the latest live transcript text.
func (s *ConversationService) Transcript() string {
	return s.lifecycle.Transcript()
}

// CallState returns the voice lifecycle state.
func (s *ConversationService) CallState() CallState {
	return s.lifecycle.State()
}

// Submit runs one text exchange: it appends the user message, invokes the
// selected transport and appends the resulting assistant message. Empty
// input is ignored. A submission while an exchange is in flight is rejected
// with domain.ErrExchangeInFlight and leaves the timeline untouched.
// Transport failures do not propagate: they degrade to an apologetic
// assistant message plus exactly one notification.
func (s *ConversationService) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.mode == ModeVoice {
		s.mu.Unlock()
		return fmt.Errorf("text submissions are disabled during a voice call")
	}
	if s.pending {
		s.mu.Unlock()
		return domain.ErrExchangeInFlight
	}
	exCtx, cancel := context.WithCancel(ctx)
	s.pending = true
	s.canceled = false
	s.cancelExchange = cancel
	s.mu.Unlock()
	defer cancel()

	s.deps.Timeline.Append(entities.NewUserMessage(text))
	s.logger.Info("Exchange started",
		zap.String("transport", string(s.config.Transport)),
		zap.Int("length", len(text)))

	reply, err := s.exchange(exCtx, text)

	s.mu.Lock()
	s.pending = false
	s.cancelExchange = nil
	wasCanceled := s.canceled
	s.mu.Unlock()

	if wasCanceled {
		// Explicit cancel reverts to idle without a synthetic reply.
		s.logger.Info("Exchange canceled")
		return nil
	}

	if err != nil {
		s.logger.Error("Exchange failed", zap.Error(err))
		s.deps.Timeline.Append(entities.NewAssistantMessage(apologyText))
		s.notify(repositories.Notification{
			Title:       "Error",
			Description: "Failed to send message. Please try again.",
			Severity:    repositories.SeverityError,
		})
		return nil
	}

	msg := entities.NewAssistantMessage(reply.Content)
	msg.ActionResult = reply.Action
	s.deps.Timeline.Append(msg)
	return nil
}

// Cancel aborts the in-flight exchange, if any. The state reverts to idle
// without appending a synthetic reply.
func (s *ConversationService) Cancel() {
	s.mu.Lock()
	cancel := s.cancelExchange
	if s.pending && cancel != nil {
		s.canceled = true
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.deps.Stream != nil {
		s.deps.Stream.Close()
	}
}

// exchange invokes the selected transport for one query.
func (s *ConversationService) exchange(ctx context.Context, text string) (repositories.AssistantReply, error) {
	switch s.config.Transport {
	case TransportStream:
		return s.exchangeStream(ctx, text)
	default:
		if s.deps.Webhook == nil {
			return repositories.AssistantReply{}, fmt.Errorf("webhook transport not configured")
		}
		return s.deps.Webhook.Send(ctx, text)
	}
}

func (s *ConversationService) exchangeStream(ctx context.Context, text string) (repositories.AssistantReply, error) {
	if s.deps.Stream == nil {
		return repositories.AssistantReply{}, fmt.Errorf("stream transport not configured")
	}
	events, err := s.deps.Stream.Send(ctx, text)
	if err != nil {
		return repositories.AssistantReply{}, err
	}

	event, ok := <-events
	if !ok {
		if ctx.Err() != nil {
			return repositories.AssistantReply{}, ctx.Err()
		}
		return repositories.AssistantReply{}, &domain.DeliveryError{Cause: fmt.Errorf("stream closed without a reply")}
	}
	if event.Err != nil {
		return repositories.AssistantReply{}, event.Err
	}
	return repositories.AssistantReply{Content: event.Content, Action: event.Action}, nil
}

// StartVoice switches to voice mode and begins a live call. A re-entrant
// start while a call is underway is a no-op. An in-flight text exchange is
// allowed to complete normally, but further text submissions are rejected
// until the call ends.
func (s *ConversationService) StartVoice(ctx context.Context) error {
	if s.deps.Voice == nil {
		return domain.ErrNotReady
	}
	if !s.lifecycle.Begin() {
		return nil
	}

	if err := s.deps.Voice.Load(ctx); err != nil {
		s.lifecycle.Abort()
		return s.failVoiceStart(err)
	}
	if err := s.deps.Voice.Init(s.config.VoiceCredential, s.config.VoiceOptions); err != nil {
		s.lifecycle.Abort()
		return s.failVoiceStart(err)
	}
	if err := s.deps.Voice.Start(ctx); err != nil {
		s.lifecycle.Abort()
		return s.failVoiceStart(err)
	}

	// Call start is fire-and-forget; treat the call as active without
	// waiting for confirmation.
	s.lifecycle.Activate()

	s.mu.Lock()
	s.mode = ModeVoice
	s.utteranceID = ""
	s.mu.Unlock()

	s.logger.Info("Voice call active")
	return nil
}

// EndVoice stops the live call and returns to text mode, clearing the
// transcript state. Safe to call when no call is active.
func (s *ConversationService) EndVoice(ctx context.Context) error {
	if !s.lifecycle.End() {
		return nil
	}

	s.mu.Lock()
	s.mode = ModeText
	s.utteranceID = ""
	s.mu.Unlock()

	var err error
	if s.deps.Voice != nil {
		if stopErr := s.deps.Voice.Stop(ctx); stopErr != nil && !errors.Is(stopErr, domain.ErrNotReady) {
			err = stopErr
			s.logger.Warn("Voice stop reported an error", zap.Error(stopErr))
		}
	}

	s.lifecycle.Finish()
	s.logger.Info("Voice call ended")
	return err
}

// failVoiceStart applies the delivery-failure semantics to a voice start:
// one synthetic assistant message, one notification, no fault.
func (s *ConversationService) failVoiceStart(err error) error {
	s.logger.Error("Voice call failed to start", zap.Error(err))
	s.deps.Timeline.Append(entities.NewAssistantMessage(apologyText))
	s.notify(repositories.Notification{
		Title:       "Error",
		Description: "Failed to start the voice call.",
		Severity:    repositories.SeverityError,
	})
	return nil
}

// handleTranscript reconciles a transcript update into the timeline. The
// active utterance is represented by a single user message patched in place;
// a final update closes the utterance so the next one starts fresh.
func (s *ConversationService) handleTranscript(update repositories.TranscriptUpdate) {
	text := strings.TrimSpace(update.Text)
	if text == "" {
		return
	}
	if !s.lifecycle.Active() {
		return
	}
	s.lifecycle.SetTranscript(text)

	s.mu.Lock()
	id := s.utteranceID
	if id == "" {
		id = voiceIDPrefix + entities.NewMessageID()
		s.utteranceID = id
		s.mu.Unlock()
		s.deps.Timeline.Append(entities.Message{
			ID:        id,
			Content:   text,
			Sender:    entities.SenderUser,
			Timestamp: time.Now(),
		})
	} else {
		s.mu.Unlock()
		s.deps.Timeline.ReplaceByID(id, text, nil)
	}

	if update.Final {
		s.finalizeUtterance()
	}
}

// handleCallEvent reacts to lifecycle events from the live session.
func (s *ConversationService) handleCallEvent(event repositories.CallEvent) {
	switch event.Kind {
	case repositories.CallStarted:
		s.lifecycle.Activate()
	case repositories.TurnEnded:
		s.finalizeUtterance()
	case repositories.CallAssistant:
		if strings.TrimSpace(event.Text) != "" {
			s.deps.Timeline.Append(entities.NewAssistantMessage(event.Text))
		}
	case repositories.CallEnded:
		if !s.lifecycle.Active() {
			return
		}
		s.logger.Info("Voice call ended by remote")
		s.lifecycle.End()
		s.mu.Lock()
		s.mode = ModeText
		s.utteranceID = ""
		s.mu.Unlock()
		s.lifecycle.Finish()
	}
}

// finalizeUtterance closes the active utterance; the next transcript update
// appends a fresh message instead of patching the old one.
func (s *ConversationService) finalizeUtterance() {
	s.mu.Lock()
	s.utteranceID = ""
	s.mu.Unlock()
}

// StartRecording begins capturing a voice note. A device failure produces
// exactly one notification.
func (s *ConversationService) StartRecording(ctx context.Context) error {
	if s.deps.Recorder == nil {
		return domain.ErrNotReady
	}

	s.mu.Lock()
	if s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = true
	s.mu.Unlock()

	if err := s.deps.Recorder.Start(ctx); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		s.logger.Error("Failed to start recording", zap.Error(err))
		s.notify(repositories.Notification{
			Title:       "Microphone Error",
			Description: "Could not access your microphone. Please check permissions.",
			Severity:    repositories.SeverityError,
		})
		return err
	}
	return nil
}

// StopRecording finalizes the capture and uploads the clip to the voice-note
// side channel. Capture resources are released by the recorder on every exit
// path. On success a confirmation message joins the timeline.
func (s *ConversationService) StopRecording(ctx context.Context) error {
	if s.deps.Recorder == nil {
		return domain.ErrNotReady
	}

	s.mu.Lock()
	if !s.recording {
		s.mu.Unlock()
		return nil
	}
	s.recording = false
	s.mu.Unlock()

	audio, err := s.deps.Recorder.Stop(ctx)
	if err != nil {
		s.logger.Error("Failed to finalize recording", zap.Error(err))
		s.notify(repositories.Notification{
			Title:       "Microphone Error",
			Description: "Recording failed.",
			Severity:    repositories.SeverityError,
		})
		return err
	}

	if s.deps.Uploader != nil {
		if err := s.deps.Uploader.Upload(ctx, audio, time.Now()); err != nil {
			s.logger.Error("Failed to upload voice note", zap.Error(err))
			s.notify(repositories.Notification{
				Title:       "Error",
				Description: "Failed to send voice note.",
				Severity:    repositories.SeverityError,
			})
			return err
		}
	}

	s.deps.Timeline.Append(entities.NewUserMessage(voiceNoteSentText))
	s.notify(repositories.Notification{
		Title:       "Voice note recorded",
		Description: "Voice note successfully recorded and sent.",
		Severity:    repositories.SeverityInfo,
	})
	return nil
}

// AttachFile announces an attachment on the timeline with a type-derived
// icon prefix.
func (s *ConversationService) AttachFile(name, mimeType string) {
	icon := "📄"
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		icon = "🖼️"
	case strings.HasPrefix(mimeType, "audio/"):
		icon = "🎵"
	case strings.HasPrefix(mimeType, "video/"):
		icon = "🎬"
	}

	s.deps.Timeline.Append(entities.NewUserMessage(fmt.Sprintf("%s Attached: %s", icon, name)))
	s.notify(repositories.Notification{
		Title:       "File attached",
		Description: fmt.Sprintf("%s has been attached.", name),
		Severity:    repositories.SeverityInfo,
	})
}

// ClearTimeline resets the timeline back to the configured greeting.
func (s *ConversationService) ClearTimeline() {
	if s.config.Greeting != "" {
		s.deps.Timeline.Reset(entities.NewAssistantMessage(s.config.Greeting))
		return
	}
	s.deps.Timeline.Reset()
}

// Close releases every held resource: the in-flight exchange, any open
// stream channel, the live call and any active capture.
func (s *ConversationService) Close(ctx context.Context) error {
	s.Cancel()

	s.mu.Lock()
	recording := s.recording
	s.recording = false
	s.mu.Unlock()
	if recording && s.deps.Recorder != nil {
		if _, err := s.deps.Recorder.Stop(ctx); err != nil {
			s.logger.Warn("Recorder stop on teardown failed", zap.Error(err))
		}
	}

	return s.EndVoice(ctx)
}

func (s *ConversationService) notify(n repositories.Notification) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Notify(n)
	}
}
