package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/mapper"
	"codeframe-be/internal/model"
	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/specification"
)

type EmbeddingCacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EmbeddingCacheMapper
}

func NewEmbeddingCacheRepository(db *gorm.DB) contract.EmbeddingCacheRepository {
	return &EmbeddingCacheRepositoryImpl{
		db:     db,
		mapper: mapper.NewEmbeddingCacheMapper(),
	}
}

func (r *EmbeddingCacheRepositoryImpl) FindByHash(ctx context.Context, hash string) (*entity.EmbeddingCacheEntry, error) {
	var m model.EmbeddingCacheEntry
	query := specification.ByContentHash{Hash: hash}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *EmbeddingCacheRepositoryImpl) Save(ctx context.Context, entry *entity.EmbeddingCacheEntry) error {
	m := r.mapper.ToModel(entry)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_hash"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*entry = *r.mapper.ToEntity(m)
	return nil
}
