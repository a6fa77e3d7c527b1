package dispatch

import "errors"

var (
	// ErrSinkRequired is returned when no placement sink is provided.
	ErrSinkRequired = errors.New("placement sink is required")

	// ErrEmptyLocator is returned when a locator placement has no address.
	ErrEmptyLocator = errors.New("locator cannot be empty")
)
