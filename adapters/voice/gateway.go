package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
	"github.com/kwenamoloto/agentk/domain/repositories"
)

const (
	// Time allowed to write a message to the gateway.
	writeWait = 10 * time.Second

	// Time allowed to establish the call connection.
	dialWait = 10 * time.Second
)

// Config holds configuration for the gateway session.
// Required fields:
// - GatewayURL: the ws:// or wss:// URL of the live voice gateway
// Optional fields:
// - ProbeURL: health endpoint checked once by Load (default: derived from
//   GatewayURL as http(s)://host/health)
type Config struct {
	GatewayURL string
	ProbeURL   string
}

// gatewayEvent is the wire shape of events exchanged with the gateway.
type gatewayEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Final    bool   `json:"final,omitempty"`
	Language string `json:"language,omitempty"`
	Stream   bool   `json:"streaming_transcripts,omitempty"`
}

// GatewaySession implements the live voice transport against a websocket
// gateway. The capability is loaded once per process: the first Load probes
// the gateway and every later call returns the same cached outcome.
type GatewaySession struct {
	gatewayURL string
	probeURL   string
	logger     *zap.Logger

	loadOnce sync.Once
	loadErr  error

	mu           sync.Mutex
	credential   string
	opts         repositories.VoiceOptions
	initialized  bool
	conn         *websocket.Conn
	onTranscript func(repositories.TranscriptUpdate)
	onEvent      func(repositories.CallEvent)
}

// Ensure GatewaySession implements the LiveVoiceSession interface
var _ repositories.LiveVoiceSession = (*GatewaySession)(nil)

// NewGatewaySession creates a new live voice session bound to a gateway.
func NewGatewaySession(config Config, logger *zap.Logger) (*GatewaySession, error) {
	u, err := url.Parse(config.GatewayURL)
	if err != nil {
		return nil, &domain.ConfigError{Field: "gateway_url", Value: config.GatewayURL, Cause: err}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, &domain.ConfigError{Field: "gateway_url", Value: config.GatewayURL, Cause: fmt.Errorf("scheme must be ws or wss")}
	}

	probeURL := config.ProbeURL
	if probeURL == "" {
		probe := *u
		probe.Scheme = "http"
		if u.Scheme == "wss" {
			probe.Scheme = "https"
		}
		probe.Path = "/health"
		probe.RawQuery = ""
		probeURL = probe.String()
	}

	return &GatewaySession{
		gatewayURL: config.GatewayURL,
		probeURL:   probeURL,
		logger:     logger,
	}, nil
}

// Load probes the gateway once and caches the outcome. Every caller gets the
// same completion; there is no polling for readiness.
func (s *GatewaySession) Load(ctx context.Context) error {
	s.loadOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.probeURL, nil)
		if err != nil {
			s.loadErr = fmt.Errorf("failed to create probe request: %w", err)
			return
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			s.loadErr = fmt.Errorf("voice gateway unreachable: %w", err)
			s.logger.Error("Voice gateway probe failed", zap.String("probeURL", s.probeURL), zap.Error(err))
			return
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			s.loadErr = fmt.Errorf("voice gateway probe returned status %d", resp.StatusCode)
			return
		}
		s.logger.Info("Voice gateway loaded", zap.String("probeURL", s.probeURL))
	})
	return s.loadErr
}

// Init binds the session to a credential and call options.
func (s *GatewaySession) Init(credential string, opts repositories.VoiceOptions) error {
	if credential == "" {
		return &domain.ConfigError{Field: "credential", Value: "", Cause: fmt.Errorf("credential is required")}
	}
	s.mu.Lock()
	s.credential = credential
	s.opts = opts
	s.initialized = true
	s.mu.Unlock()
	return nil
}

// OnTranscript registers the transcript callback.
func (s *GatewaySession) OnTranscript(fn func(repositories.TranscriptUpdate)) {
	s.mu.Lock()
	s.onTranscript = fn
	s.mu.Unlock()
}

// OnEvent registers the lifecycle event callback.
func (s *GatewaySession) OnEvent(fn func(repositories.CallEvent)) {
	s.mu.Lock()
	s.onEvent = fn
	s.mu.Unlock()
}

// Start dials the gateway and begins the call. Call start is optimistic: a
// nil return means the call is active without waiting for confirmation.
func (s *GatewaySession) Start(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return domain.ErrNotReady
	}

	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return domain.ErrNotReady
	}
	if s.conn != nil {
		s.mu.Unlock()
		return fmt.Errorf("call already active")
	}
	credential := s.credential
	opts := s.opts
	s.mu.Unlock()

	callURL, err := url.Parse(s.gatewayURL)
	if err != nil {
		return &domain.ConfigError{Field: "gateway_url", Value: s.gatewayURL, Cause: err}
	}
	q := callURL.Query()
	q.Set("token", credential)
	callURL.RawQuery = q.Encode()

	dialCtx, cancel := context.WithTimeout(ctx, dialWait)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, callURL.String(), nil)
	if err != nil {
		s.logger.Error("Failed to dial voice gateway", zap.Error(err))
		return &domain.DeliveryError{Cause: err}
	}

	start := gatewayEvent{
		Type:     "start_call",
		Stream:   opts.StreamTranscripts,
		Language: opts.Language,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(start); err != nil {
		conn.Close()
		s.logger.Error("Failed to start call", zap.Error(err))
		return &domain.DeliveryError{Cause: err}
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("Voice call started", zap.String("gateway", s.gatewayURL))
	go s.readPump(conn)
	return nil
}

// Stop ends the call if one is active. It reports domain.ErrNotReady when no
// call is active rather than faulting.
func (s *GatewaySession) Stop(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return domain.ErrNotReady
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(gatewayEvent{Type: "end_call"}); err != nil {
		s.logger.Warn("Failed to send end_call, closing anyway", zap.Error(err))
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := conn.Close()

	s.logger.Info("Voice call stopped")
	return err
}

// readPump reads gateway events until the connection drops and fans them out
// to the registered callbacks.
func (s *GatewaySession) readPump(conn *websocket.Conn) {
	ended := false
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
		if !ended {
			s.emit(repositories.CallEvent{Kind: repositories.CallEnded})
		}
	}()

	for {
		var event gatewayEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("Voice gateway connection error", zap.Error(err))
			}
			return
		}

		switch event.Type {
		case "transcript":
			s.mu.Lock()
			fn := s.onTranscript
			s.mu.Unlock()
			if fn != nil {
				fn(repositories.TranscriptUpdate{Text: event.Text, Final: event.Final})
			}
		case "call_started":
			s.emit(repositories.CallEvent{Kind: repositories.CallStarted})
		case "turn_ended":
			s.emit(repositories.CallEvent{Kind: repositories.TurnEnded})
		case "assistant":
			s.emit(repositories.CallEvent{Kind: repositories.CallAssistant, Text: event.Text})
		case "call_ended":
			ended = true
			s.emit(repositories.CallEvent{Kind: repositories.CallEnded})
			return
		default:
			s.logger.Warn("Unknown gateway event type", zap.String("type", event.Type))
		}
	}
}

func (s *GatewaySession) emit(event repositories.CallEvent) {
	s.mu.Lock()
	fn := s.onEvent
	s.mu.Unlock()
	if fn != nil {
		fn(event)
	}
}
