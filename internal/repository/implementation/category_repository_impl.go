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

type CategoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CategoryMapper
}

func NewCategoryRepository(db *gorm.DB) contract.CategoryRepository {
	return &CategoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewCategoryMapper(),
	}
}

func (r *CategoryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CategoryRepositoryImpl) Create(ctx context.Context, category *entity.Category) error {
	m := r.mapper.ToModel(category)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*category = *r.mapper.ToEntity(m)
	return nil
}

func (r *CategoryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Category, error) {
	var m model.Category
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CategoryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Category, error) {
	var models []model.Category
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
