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
	"fmt"
	"time"
	"unicode/utf8"
)

// ValidateCandidate validates a Candidate according to domain rules.
// Validation rules:
//   - Link must not be empty
//
// NOT validated (provider-owned):
//   - Title and Description (may be empty)
func ValidateCandidate(candidate Candidate) error {
	if candidate.Link == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyLink)
	}
	return nil
}

// ValidateTurn validates a Turn according to domain rules.
// Validation rules:
//   - Prompt must not be empty
//   - Timestamp must not be in the future
//
// NOT validated:
//   - Response (may be empty while the model is still answering)
//   - ID (0 is valid from database sequences)
func ValidateTurn(turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidTurn)
	}

	if turn.Prompt == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrEmptyPrompt)
	}

	if !IsValidTimestamp(turn.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidTurn, ErrInvalidTimestamp)
	}

	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}

// Excerpt shortens text for log output, keeping at most max runes.
func Excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
