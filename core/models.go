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
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Candidate is a normalized, provider-agnostic search result.
// Description holds the provider's snippet, untruncated.
type Candidate struct {
	Title       string
	Link        string
	Description string
}

// EmbeddingText is the text embedded when scoring a candidate.
func (c Candidate) EmbeddingText() string {
	return c.Title + " " + c.Description
}

// ScoredCandidate pairs a candidate with its similarity to the user message.
// Position is the candidate's index in the provider's ordering.
type ScoredCandidate struct {
	Candidate  Candidate
	Similarity float32
	Position   int
}

// RankedResultSet is ordered by descending similarity.
type RankedResultSet []Candidate

// Turn is one prompt/response exchange in the conversation history.
type Turn struct {
	Id         ID
	Prompt     string
	Response   string
	Timestamp  time.Time // When the exchange happened
	InsertedAt time.Time // When the turn was written to the store
}

// Placement is a request to put a link node onto the graph.
type Placement struct {
	Link        string
	Label       string
	Description string
}

// CachedEmbedding is a persisted embedding vector keyed by content ID.
type CachedEmbedding struct {
	Id     ID
	Model  string
	Vector []float32
}
