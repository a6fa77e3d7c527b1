// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"errors"
	"strings"
)

// Pipeline error taxonomy
var (
	// ErrConfiguration indicates required credentials or settings are missing.
	// It is user-correctable and aborts the invocation.
	ErrConfiguration = errors.New("configuration error")

	// ErrSearchUnavailable indicates the search provider could not be reached
	// or answered with a failure status.
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrCompletionDegraded indicates the chat model failed or returned unusable
	// content and a local fallback was used instead.
	ErrCompletionDegraded = errors.New("completion degraded")

	// ErrEmbeddingFailure indicates an embedding could not be computed, so
	// ranking cannot proceed.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrMalformedPayload indicates a provider response body could not be decoded.
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a Candidate failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrInvalidTurn indicates a Turn failed validation.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrEmptyLink indicates the Link field is empty.
	ErrEmptyLink = errors.New("link cannot be empty")

	// ErrEmptyPrompt indicates the Prompt field is empty.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)

// ConfigurationError names the settings that must be supplied before a
// search can run.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) == 0 {
		return ErrConfiguration.Error()
	}
	return ErrConfiguration.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

// Is reports ErrConfiguration so callers can match with errors.Is.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Prompt returns the human-readable request shown to the user.
func (e *ConfigurationError) Prompt() string {
	return strings.Join(e.Missing, " or ") + " is missing. Please enter them."
}
