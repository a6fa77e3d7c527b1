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

package badger

import "github.com/poiesic/linkrank/storage"

// NewMemoryRepositories creates in-memory turn and embedding cache repositories for testing.
// Returns turnRepo, cacheRepo, backend, and error.
// Caller must close both repos and backend when done.
func NewMemoryRepositories() (storage.TurnRepository, storage.EmbeddingCacheRepository, *Backend, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

// OpenRepositories opens turn and embedding cache repositories on a
// database directory. Caller must close both repos and backend when done.
func OpenRepositories(path string) (storage.TurnRepository, storage.EmbeddingCacheRepository, *Backend, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, nil, nil, err
	}
	return newRepositories(backend)
}

func newRepositories(backend *Backend) (storage.TurnRepository, storage.EmbeddingCacheRepository, *Backend, error) {
	turnRepo, err := NewTurnRepository(backend)
	if err != nil {
		backend.Close()
		return nil, nil, nil, err
	}

	cacheRepo, err := NewEmbeddingCacheRepository(backend)
	if err != nil {
		turnRepo.Close()
		backend.Close()
		return nil, nil, nil, err
	}

	return turnRepo, cacheRepo, backend, nil
}
