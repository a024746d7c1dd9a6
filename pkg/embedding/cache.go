package embedding

import (
	"context"
	"fmt"
	"time"

	"codeframe-be/internal/apperr"
	"codeframe-be/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Store is the persistent side of the embedding cache. A nil vector with a
// nil error means "not cached yet". Save must tolerate concurrent identical
// writes (insert, ignore conflict).
type Store interface {
	FindByHash(ctx context.Context, contentHash string) ([]float32, error)
	Save(ctx context.Context, contentHash string, vector []float32, model string) error
}

// CachedProvider puts a content-hash cache in front of an EmbeddingProvider:
// go-cache hot layer, then the persistent store, then the backend. Concurrent
// misses for the same hash collapse into one backend call via singleflight.
type CachedProvider struct {
	provider EmbeddingProvider
	store    Store
	model    string
	hot      *gocache.Cache
	group    singleflight.Group
}

func NewCachedProvider(provider EmbeddingProvider, store Store, model string) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		store:    store,
		model:    model,
		hot:      gocache.New(1*time.Hour, 10*time.Minute),
	}
}

// Embed returns the cached vector for the normalized text, computing and
// persisting it on first encounter. A backend failure surfaces as
// ErrEmbeddingUnavailable: the orchestrator treats that as fatal because
// downstream clustering needs consistent vectors.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := utils.ContentHash(text)

	if x, found := c.hot.Get(hash); found {
		return x.([]float32), nil
	}

	v, err, _ := c.group.Do(hash, func() (interface{}, error) {
		// Re-check the hot layer: a concurrent caller may have just filled it
		if x, found := c.hot.Get(hash); found {
			return x.([]float32), nil
		}

		stored, err := c.store.FindByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if stored != nil {
			c.hot.Set(hash, stored, gocache.DefaultExpiration)
			return stored, nil
		}

		res, err := c.provider.Generate(text, "RETRIEVAL_DOCUMENT")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrEmbeddingUnavailable, err)
		}
		vector := res.Embedding.Values

		if err := c.store.Save(ctx, hash, vector, c.model); err != nil {
			return nil, err
		}

		c.hot.Set(hash, vector, gocache.DefaultExpiration)
		return vector, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]float32), nil
}

// EmbedBatch embeds texts preserving order. It stops at the first failure
// since a partial embedding set is useless to the cluster engine.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}
