package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
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

// defaultTimeout bounds a whole streaming exchange. The observed upstream
// behavior has no timeout and would hang on a silent server, so this is a
// deliberate addition.
const defaultTimeout = 30 * time.Second

// Config holds configuration for the streaming client.
// Required fields:
// - Endpoint: the base URL of the server-push endpoint
// Optional fields with defaults:
// - Timeout: per-exchange timeout (default: 30s)
// - HTTPClient: the HTTP client to use (default: plain client; the timeout
//   is enforced through the request context so the stream can stay open for
//   its full duration)
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements the StreamingQuery transport over a text-event-stream
// endpoint. Each Send opens exactly one channel; opening a new one closes
// any channel still open from a previous Send.
type Client struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc // cancels the open channel, nil when none
	gen    uint64             // increments per Send, guards the cancel slot
}

// Ensure Client implements the StreamingQuery interface
var _ repositories.StreamingQuery = (*Client)(nil)

// streamEvent is the decoded data payload of one inbound event.
type streamEvent struct {
	Message string `json:"message"`
	Action  *struct {
		Name   string `json:"name"`
		Result string `json:"result"`
	} `json:"action"`
}

// NewClient creates a new streaming client.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, &domain.ConfigError{Field: "endpoint", Value: config.Endpoint, Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &domain.ConfigError{Field: "endpoint", Value: config.Endpoint, Cause: fmt.Errorf("scheme must be http or https")}
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		endpoint: config.Endpoint,
		timeout:  timeout,
		client:   httpClient,
		logger:   logger,
	}, nil
}

// Send opens a fresh channel for the query. The returned channel delivers at
// most one terminal event and is then closed. The first substantive event
// ends the exchange; the channel is not restartable.
func (c *Client) Send(ctx context.Context, text string) (<-chan repositories.AssistantEvent, error) {
	queryURL, err := c.buildURL(text)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.timeout)

	c.mu.Lock()
	if c.cancel != nil {
		// At most one open channel per session: close the previous one
		// before opening a new one.
		c.logger.Debug("Closing previously open stream channel")
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	events := make(chan repositories.AssistantEvent, 1)
	go c.run(streamCtx, cancel, gen, queryURL, events)
	return events, nil
}

// Close closes any open channel. Safe to call when none is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

func (c *Client) buildURL(text string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", &domain.ConfigError{Field: "endpoint", Value: c.endpoint, Cause: err}
	}
	q := u.Query()
	q.Set("message", text)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) run(ctx context.Context, cancel context.CancelFunc, gen uint64, queryURL string, events chan<- repositories.AssistantEvent) {
	defer close(events)
	defer c.release(cancel, gen)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		events <- repositories.AssistantEvent{Err: &domain.DeliveryError{Cause: err}}
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Stream channel failed to open", zap.Error(err))
		events <- repositories.AssistantEvent{Err: &domain.DeliveryError{Cause: err}}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Stream endpoint returned non-success status",
			zap.Int("status", resp.StatusCode))
		events <- repositories.AssistantEvent{Err: &domain.DeliveryError{Status: resp.StatusCode}}
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "data:") {
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			continue
		}
		if line != "" {
			// Comments, event names and ids are ignored.
			continue
		}

		// Blank line dispatches the accumulated event.
		payload := data.String()
		data.Reset()
		if payload == "" {
			continue
		}

		event, ok := c.decodeEvent(payload)
		if !ok {
			continue
		}

		// One-shot semantics: deliver the first substantive event and
		// close the channel immediately.
		events <- event
		c.logger.Debug("Stream delivered terminal event",
			zap.Int("contentLength", len(event.Content)))
		return
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Error("Stream channel broke", zap.Error(err))
		events <- repositories.AssistantEvent{Err: &domain.DeliveryError{Cause: err}}
	}
}

// decodeEvent decodes one event's data payload. Payloads that are not JSON
// or carry no message are skipped, not surfaced as errors.
func (c *Client) decodeEvent(payload string) (repositories.AssistantEvent, bool) {
	var decoded streamEvent
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		decodeErr := &domain.DecodeError{Cause: err}
		c.logger.Debug("Skipping undecodable stream event", zap.Error(decodeErr))
		return repositories.AssistantEvent{}, false
	}
	if strings.TrimSpace(decoded.Message) == "" {
		return repositories.AssistantEvent{}, false
	}

	event := repositories.AssistantEvent{Content: decoded.Message}
	if decoded.Action != nil {
		event.Action = &entities.ActionResult{
			Action: decoded.Action.Name,
			Result: decoded.Action.Result,
		}
	}
	return event, true
}

// release cancels this channel's context and clears the open-channel slot,
// unless a newer Send has already replaced it.
func (c *Client) release(cancel context.CancelFunc, gen uint64) {
	cancel()
	c.mu.Lock()
	if c.gen == gen {
		c.cancel = nil
	}
	c.mu.Unlock()
}
