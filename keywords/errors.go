package keywords

import "errors"

var (
	// ErrChatModelRequired is returned when no chat model is provided.
	ErrChatModelRequired = errors.New("chat model is required")
)
