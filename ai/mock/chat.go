package mock

import (
	"context"
	"sync"

	"github.com/poiesic/linkrank/ai"
)

// MockChatModel is a test double for ai.ChatModel.
// It allows custom behavior injection via function fields.
type MockChatModel struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the last user message is returned wrapped in double quotes.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (string, error)

	mu           sync.Mutex
	callCount    int
	lastMessages []ai.Message
	lastOptions  ai.CompletionOptions
}

// NewMockChatModel creates a mock chat model with default echo behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Complete records the request and returns a scripted or echoed response.
func (m *MockChatModel) Complete(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastMessages = append([]ai.Message(nil), messages...)
	m.lastOptions = opts
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, opts)
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return `"` + messages[i].Content + `"`, nil
		}
	}
	return "", nil
}

// CallCount returns the number of times Complete was called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastMessages returns the messages of the most recent request.
func (m *MockChatModel) LastMessages() []ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Message(nil), m.lastMessages...)
}

// LastOptions returns the options of the most recent request.
func (m *MockChatModel) LastOptions() ai.CompletionOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOptions
}

// Reset clears recorded calls and custom functions.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastMessages = nil
	m.lastOptions = ai.CompletionOptions{}
	m.CompleteFunc = nil
}
