package llm

import (
	"context"
	"fmt"

	"github.com/kwenamoloto/agentk/domain/repositories"
)

// MockAssistant is a canned Assistant used when no API key is configured.
type MockAssistant struct{}

// NewMockAssistant creates a new mock assistant.
func NewMockAssistant() repositories.Assistant {
	return &MockAssistant{}
}

// Reply implements repositories.Assistant
func (m *MockAssistant) Reply(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "Hello! How can I assist you today?", nil
	}
	return fmt.Sprintf("I'm processing your request: %q", message), nil
}
