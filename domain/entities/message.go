package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ActionResult describes a side-effecting action the backend reports having
// taken on behalf of a query.
type ActionResult struct {
	Action string `json:"action"`
	Result string `json:"result"`
}

// Message is a single entry in the conversation timeline.
type Message struct {
	ID           string        `json:"id"`
	Content      string        `json:"content"`
	Sender       Sender        `json:"sender"`
	Timestamp    time.Time     `json:"timestamp"`
	ActionResult *ActionResult `json:"action_result,omitempty"`
}

// NewMessageID returns an id that is unique within a session and sorts in
// creation order. The nanosecond prefix gives the ordering, the uuid suffix
// the uniqueness.
func NewMessageID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.NewString())
}

// NewUserMessage creates a user message with a fresh id and timestamp.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewMessageID(),
		Content:   content,
		Sender:    SenderUser,
		Timestamp: time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with a fresh id and
// timestamp.
func NewAssistantMessage(content string) Message {
	return Message{
		ID:        NewMessageID(),
		Content:   content,
		Sender:    SenderAssistant,
		Timestamp: time.Now(),
	}
}

// Validate validates a message before it is committed to the timeline.
func (m *Message) Validate() error {
	if m.ID == "" {
		return errors.New("message id is required")
	}
	if m.Content == "" {
		return errors.New("message content is required")
	}
	if m.Sender != SenderUser && m.Sender != SenderAssistant {
		return errors.New("invalid message sender")
	}
	return nil
}
