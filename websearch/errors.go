package websearch

import "errors"

var (
	// ErrProviderRequired is returned when no search provider is provided.
	ErrProviderRequired = errors.New("search provider is required")
)
