package mapper

import (
	"github.com/pgvector/pgvector-go"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
)

type EmbeddingCacheMapper struct{}

func NewEmbeddingCacheMapper() *EmbeddingCacheMapper {
	return &EmbeddingCacheMapper{}
}

func (m *EmbeddingCacheMapper) ToEntity(mod *model.EmbeddingCacheEntry) *entity.EmbeddingCacheEntry {
	if mod == nil {
		return nil
	}
	return &entity.EmbeddingCacheEntry{
		Id:          mod.Id,
		ContentHash: mod.ContentHash,
		Vector:      mod.Vector.Slice(),
		Model:       mod.Model,
		CreatedAt:   mod.CreatedAt,
	}
}

func (m *EmbeddingCacheMapper) ToModel(ent *entity.EmbeddingCacheEntry) *model.EmbeddingCacheEntry {
	if ent == nil {
		return nil
	}
	return &model.EmbeddingCacheEntry{
		Id:          ent.Id,
		ContentHash: ent.ContentHash,
		Vector:      pgvector.NewVector(ent.Vector),
		Model:       ent.Model,
	}
}
