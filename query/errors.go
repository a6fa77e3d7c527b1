package query

import "errors"

var (
	// ErrEmptyMessage is logged when a blank message reaches the composer.
	ErrEmptyMessage = errors.New("empty message")

	// ErrChatModelRequired is returned when no chat model is provided.
	ErrChatModelRequired = errors.New("chat model is required")

	// ErrDispatcherRequired is returned when no locator dispatcher is provided.
	ErrDispatcherRequired = errors.New("locator dispatcher is required")
)
