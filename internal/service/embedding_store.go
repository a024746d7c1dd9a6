package service

import (
	"context"

	"github.com/google/uuid"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/unitofwork"
	"codeframe-be/pkg/embedding"
)

// embeddingStore exposes the embedding cache table as the persistent layer
// behind the cached provider.
type embeddingStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewEmbeddingStore(uowFactory unitofwork.RepositoryFactory) embedding.Store {
	return &embeddingStore{uowFactory: uowFactory}
}

func (s *embeddingStore) FindByHash(ctx context.Context, hash string) ([]float32, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	entry, err := uow.EmbeddingCacheRepository().FindByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Vector, nil
}

func (s *embeddingStore) Save(ctx context.Context, hash string, vector []float32, model string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.EmbeddingCacheRepository().Save(ctx, &entity.EmbeddingCacheEntry{
		Id:          uuid.New(),
		ContentHash: hash,
		Vector:      vector,
		Model:       model,
	})
}
