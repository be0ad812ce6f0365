package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kwenamoloto/agentk/domain"
	"github.com/kwenamoloto/agentk/domain/entities"
	"github.com/kwenamoloto/agentk/domain/repositories"
)

const (
	// defaultTimeout bounds the exchange. The observed upstream behavior has
	// no timeout at all and would hang on a silent server, so this is a
	// deliberate addition.
	defaultTimeout = 30 * time.Second

	// emptyReplyFallback is used when the backend answers 2xx with nothing
	// usable in the body.
	emptyReplyFallback = "I received your message but could not produce a response."
)

// replyFields are the candidate reply field names, checked in priority
// order. The backend response shape is not contractually fixed, so this
// policy is explicit and tested.
var replyFields = []string{"response", "message", "reply", "text", "content"}

// Config holds configuration for the webhook client.
// Required fields:
// - Endpoint: the webhook URL to POST exchanges to
// Optional fields with defaults:
// - Timeout: per-exchange timeout (default: 30s)
// - HTTPClient: the HTTP client to use (default: one with the timeout above)
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements the RequestResponse transport against a webhook
// endpoint.
type Client struct {
	mu       sync.RWMutex
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// Ensure Client implements the RequestResponse interface
var _ repositories.RequestResponse = (*Client)(nil)

// exchangePayload is the structured body of one outgoing exchange.
type exchangePayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
}

// ValidateEndpoint checks that a user-supplied endpoint is a well-formed
// absolute HTTP or HTTPS URL.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return &domain.ConfigError{Field: "endpoint", Value: endpoint, Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &domain.ConfigError{Field: "endpoint", Value: endpoint, Cause: fmt.Errorf("scheme must be http or https")}
	}
	if u.Host == "" {
		return &domain.ConfigError{Field: "endpoint", Value: endpoint, Cause: fmt.Errorf("host is required")}
	}
	return nil
}

// NewClient creates a new webhook client.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
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

	return &Client{
		endpoint: config.Endpoint,
		client:   httpClient,
		logger:   logger,
	}, nil
}

// UpdateEndpoint replaces the webhook URL. The new value is validated before
// acceptance; on failure the previous endpoint stays in effect.
func (c *Client) UpdateEndpoint(endpoint string) error {
	if err := ValidateEndpoint(endpoint); err != nil {
		return err
	}
	c.mu.Lock()
	c.endpoint = endpoint
	c.mu.Unlock()
	c.logger.Info("Webhook endpoint updated", zap.String("endpoint", endpoint))
	return nil
}

// Endpoint returns the currently configured webhook URL.
func (c *Client) Endpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint
}

// Send issues one exchange and decodes the reply. Transport failures are
// reported as *domain.DeliveryError; an unparseable 2xx body is recovered by
// falling back to the raw text.
func (c *Client) Send(ctx context.Context, text string) (repositories.AssistantReply, error) {
	payload := exchangePayload{
		Message:   text,
		Timestamp: time.Now().Format(time.RFC3339),
		Sender:    string(entities.SenderUser),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return repositories.AssistantReply{}, fmt.Errorf("failed to marshal exchange payload: %w", err)
	}

	endpoint := c.Endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return repositories.AssistantReply{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Webhook exchange failed", zap.String("endpoint", endpoint), zap.Error(err))
		return repositories.AssistantReply{}, &domain.DeliveryError{Cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read webhook response", zap.Error(err))
		return repositories.AssistantReply{}, &domain.DeliveryError{Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Webhook returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("endpoint", endpoint))
		return repositories.AssistantReply{}, &domain.DeliveryError{Status: resp.StatusCode}
	}

	reply := c.decodeReply(raw)
	c.logger.Debug("Webhook exchange completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("replyLength", len(reply.Content)))
	return reply, nil
}

// decodeReply extracts a reply from the raw response body. Structured
// decoding is attempted first; a decode failure is recovered locally with the
// trimmed raw text, never surfaced as an error.
func (c *Client) decodeReply(raw []byte) repositories.AssistantReply {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decodeErr := &domain.DecodeError{Cause: err}
		c.logger.Debug("Response body is not JSON, using raw text", zap.Error(decodeErr))
		return fallbackReply(string(raw))
	}

	switch v := decoded.(type) {
	case string:
		return fallbackReply(v)
	case map[string]interface{}:
		reply := repositories.AssistantReply{Action: extractAction(v)}
		for _, field := range replyFields {
			if s, ok := v[field].(string); ok && strings.TrimSpace(s) != "" {
				reply.Content = s
				return reply
			}
		}
		// No known field carried a reply; fall back to the raw body.
		fb := fallbackReply(string(raw))
		fb.Action = reply.Action
		return fb
	default:
		return fallbackReply(string(raw))
	}
}

// extractAction pulls an optional action report out of a decoded object.
// Both {"action": {"name", "result"}} and {"action": {"action", "result"}}
// shapes are accepted.
func extractAction(v map[string]interface{}) *entities.ActionResult {
	obj, ok := v["action"].(map[string]interface{})
	if !ok {
		return nil
	}
	name, _ := obj["name"].(string)
	if name == "" {
		name, _ = obj["action"].(string)
	}
	result, _ := obj["result"].(string)
	if name == "" && result == "" {
		return nil
	}
	return &entities.ActionResult{Action: name, Result: result}
}

func fallbackReply(text string) repositories.AssistantReply {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		trimmed = emptyReplyFallback
	}
	return repositories.AssistantReply{Content: trimmed}
}
