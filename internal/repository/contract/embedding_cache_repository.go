package contract

import (
	"context"

	"codeframe-be/internal/entity"
)

type EmbeddingCacheRepository interface {
	// FindByHash returns nil, nil on a cache miss.
	FindByHash(ctx context.Context, hash string) (*entity.EmbeddingCacheEntry, error)
	// Save inserts an entry; a concurrent insert of the same hash wins
	// silently.
	Save(ctx context.Context, entry *entity.EmbeddingCacheEntry) error
}
