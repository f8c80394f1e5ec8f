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

package anamnesis

import (
	"log/slog"

	"github.com/vocalia/anamnesis/ai"
	"github.com/vocalia/anamnesis/ai/openai"
	"github.com/vocalia/anamnesis/evaluate"
	"github.com/vocalia/anamnesis/ingestion"
	"github.com/vocalia/anamnesis/reconcile"
	"github.com/vocalia/anamnesis/rerank"
	"github.com/vocalia/anamnesis/search"
	"github.com/vocalia/anamnesis/storage"
	"github.com/vocalia/anamnesis/storage/badger"
)

// Database bundles the utterance store and the AI collaborators behind a
// single handle, and hands out the processing components wired to them.
type Database struct {
	backend  *badger.Backend
	repo     storage.UtteranceRepository
	provider ai.AIProvider
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the configuration used to build the default AI provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider supplies a pre-built provider instead of constructing one
// from configuration. The database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the storage backend in memory. The file path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	repo, err := badger.NewUtteranceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			repo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:  backend,
		repo:     repo,
		provider: provider,
		logger:   slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.repo.Close(); err != nil {
		db.logger.Error("error closing utterance repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) UtteranceRepository() storage.UtteranceRepository {
	return db.repo
}

func (db *Database) AIProvider() ai.AIProvider {
	return db.provider
}

func (db *Database) NewReconciler(opts ...reconcile.Option) (*reconcile.Reconciler, error) {
	return reconcile.NewReconciler(opts...)
}

func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.repo, db.provider, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.repo, db.provider, opts...)
}

func (db *Database) NewReranker(opts ...rerank.Option) (*rerank.Reranker, error) {
	return rerank.NewReranker(db.provider, opts...)
}

func (db *Database) NewEvaluationEngine(opts ...evaluate.Option) (*evaluate.Engine, error) {
	return evaluate.NewEngine(opts...)
}
