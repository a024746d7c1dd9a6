package implementation

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/mapper"
	"codeframe-be/internal/model"
	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/specification"
)

type ClusterResultRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ClusterResultMapper
}

func NewClusterResultRepository(db *gorm.DB) contract.ClusterResultRepository {
	return &ClusterResultRepositoryImpl{
		db:     db,
		mapper: mapper.NewClusterResultMapper(),
	}
}

func (r *ClusterResultRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ClusterResultRepositoryImpl) CreateBatch(ctx context.Context, results []*entity.ClusterResult) error {
	if len(results) == 0 {
		return nil
	}
	models := make([]*model.ClusterResult, 0, len(results))
	for _, res := range results {
		models = append(models, r.mapper.ToModel(res))
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i := range results {
		*results[i] = *r.mapper.ToEntity(models[i])
	}
	return nil
}

func (r *ClusterResultRepositoryImpl) Update(ctx context.Context, result *entity.ClusterResult) error {
	m := r.mapper.ToModel(result)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*result = *r.mapper.ToEntity(m)
	return nil
}

func (r *ClusterResultRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ClusterResult, error) {
	var m model.ClusterResult
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ClusterResultRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.ClusterResult, error) {
	var models []model.ClusterResult
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
