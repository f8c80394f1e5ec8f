// Copyright 2026 Vocalia Labs
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


// Package storage provides the storage abstraction layer for anamnesis.
//
// This package defines the repository interface that decouples the utterance
// store from its backing implementation, so different backends (BadgerDB,
// in-memory, a relational store with vector indexing) can be used
// interchangeably.
//
// Public constructors return interfaces to prevent coupling to backend
// specifics:
//
//	repo, err := badger.NewUtteranceRepository(backend)  // returns storage.UtteranceRepository
//
// All repository implementations must be thread-safe: query serving is
// stateless and safely parallel, and writes to disjoint utterance keys
// proceed independently while writes to the same key are serialized by the
// backend's transaction layer (last writer wins).
package storage
