package pipeline

import "errors"

var (
	// ErrComposerRequired is returned when a query composer is not provided.
	ErrComposerRequired = errors.New("query composer required")

	// ErrExecutorRequired is returned when a search executor is not provided.
	ErrExecutorRequired = errors.New("search executor required")

	// ErrRankerRequired is returned when a ranker is not provided.
	ErrRankerRequired = errors.New("ranker required")

	// ErrDispatcherRequired is returned when a dispatcher is not provided.
	ErrDispatcherRequired = errors.New("dispatcher required")
)
