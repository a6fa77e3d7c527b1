// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatModel,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	embedding, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	chat := mock.NewMockChatModel()
//	chat.CompleteFunc = func(ctx context.Context, msgs []ai.Message, opts ai.CompletionOptions) (string, error) {
//	    return `"golang generics"`, nil
//	}
//
//	// Check call counts
//	count := chat.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockChatModel: Echoes the last user message wrapped in quotes
//   - MockProvider: Aggregates mock embedder and chat model
//
// All mocks are safe for concurrent use; the ranker embeds candidates from
// several goroutines at once.
package mock
