package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"

	"github.com/kwenamoloto/agentk/domain"
)

// Core holds the configuration the shell must supply to the session core.
type Core struct {
	// WebhookURL is the request/response exchange endpoint. User-editable.
	WebhookURL string
	// StreamURL is the server-push exchange endpoint.
	StreamURL string
	// VoiceNoteURL is the attachment side-channel endpoint.
	VoiceNoteURL string
	// VoiceGatewayURL is the live voice gateway (ws:// or wss://).
	VoiceGatewayURL string
	// VoiceCredential is an opaque credential passed through to the live
	// session.
	VoiceCredential string
	// Transport selects the text transport: "webhook" or "stream".
	Transport string
	// Greeting seeds the timeline on session mount.
	Greeting string
}

// Gateway holds the development gateway's configuration.
type Gateway struct {
	Port      string
	JWTSecret string
}

const defaultGreeting = "Hello, I am KM A.I. How can I assist you today?"

// LoadCore reads the core configuration from the environment. A .env file in
// the working directory is honored when present.
func LoadCore() (Core, error) {
	godotenv.Load()

	cfg := Core{
		WebhookURL:      os.Getenv("AGENTK_WEBHOOK_URL"),
		StreamURL:       os.Getenv("AGENTK_STREAM_URL"),
		VoiceNoteURL:    os.Getenv("AGENTK_VOICE_NOTE_URL"),
		VoiceGatewayURL: os.Getenv("AGENTK_VOICE_GATEWAY_URL"),
		VoiceCredential: os.Getenv("AGENTK_VOICE_CREDENTIAL"),
		Transport:       os.Getenv("AGENTK_TRANSPORT"),
		Greeting:        os.Getenv("AGENTK_GREETING"),
	}
	if cfg.Transport == "" {
		cfg.Transport = "webhook"
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}

	if err := cfg.Validate(); err != nil {
		return Core{}, err
	}
	return cfg, nil
}

// Validate checks every configured endpoint before acceptance.
func (c Core) Validate() error {
	if err := validateURL("webhook_url", c.WebhookURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("stream_url", c.StreamURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("voice_note_url", c.VoiceNoteURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("voice_gateway_url", c.VoiceGatewayURL, "ws", "wss"); err != nil {
		return err
	}
	if c.Transport != "webhook" && c.Transport != "stream" {
		return &domain.ConfigError{Field: "transport", Value: c.Transport, Cause: fmt.Errorf("must be webhook or stream")}
	}
	return nil
}

// LoadGateway reads the development gateway's configuration from the
// environment.
func LoadGateway() Gateway {
	godotenv.Load()

	cfg := Gateway{
		Port:      os.Getenv("PORT"),
		JWTSecret: os.Getenv("AGENTK_JWT_SECRET"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-secret"
	}
	return cfg
}

// validateURL checks a user-supplied endpoint. Empty values are accepted;
// the corresponding feature is simply not wired.
func validateURL(field, value string, schemes ...string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return &domain.ConfigError{Field: field, Value: value, Cause: err}
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return &domain.ConfigError{Field: field, Value: value, Cause: fmt.Errorf("scheme must be one of %v with a host", schemes)}
}
