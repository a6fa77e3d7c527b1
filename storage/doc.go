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

// Package storage provides the storage abstraction layer for linkrank.
//
// linkrank keeps two kinds of local state: the conversation history that
// supplies context to keyword extraction and query composition, and a cache
// of embedding vectors so repeated candidates are not re-embedded on every
// search. This package defines repository interfaces for both; the badger
// subpackage implements them.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to keep callers decoupled from
// BadgerDB specifics:
//
//	turns, cache, backend, err := badger.NewMemoryRepositories()
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
//   - Repository: transaction support and lifecycle
//   - TurnRepository: prompt/response exchanges, indexed by timestamp
//   - EmbeddingCacheRepository: vectors keyed by core.IDFromContent
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
