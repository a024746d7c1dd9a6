package implementation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/mapper"
	"codeframe-be/internal/model"
	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/specification"
)

type HierarchyNodeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.HierarchyNodeMapper
}

func NewHierarchyNodeRepository(db *gorm.DB) contract.HierarchyNodeRepository {
	return &HierarchyNodeRepositoryImpl{
		db:     db,
		mapper: mapper.NewHierarchyNodeMapper(),
	}
}

func (r *HierarchyNodeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *HierarchyNodeRepositoryImpl) Create(ctx context.Context, node *entity.HierarchyNode) error {
	m := r.mapper.ToModel(node)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*node = *r.mapper.ToEntity(m)
	return nil
}

func (r *HierarchyNodeRepositoryImpl) CreateBatch(ctx context.Context, nodes []*entity.HierarchyNode) error {
	if len(nodes) == 0 {
		return nil
	}
	models := make([]*model.HierarchyNode, 0, len(nodes))
	for _, node := range nodes {
		models = append(models, r.mapper.ToModel(node))
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i := range nodes {
		*nodes[i] = *r.mapper.ToEntity(models[i])
	}
	return nil
}

func (r *HierarchyNodeRepositoryImpl) Update(ctx context.Context, node *entity.HierarchyNode) error {
	m := r.mapper.ToModel(node)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*node = *r.mapper.ToEntity(m)
	return nil
}

func (r *HierarchyNodeRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.HierarchyNode{}, id).Error
}

func (r *HierarchyNodeRepositoryImpl) DeleteByIds(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := specification.ByIDs{IDs: ids}.Apply(r.db.WithContext(ctx))
	return query.Delete(&model.HierarchyNode{}).Error
}

func (r *HierarchyNodeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HierarchyNode, error) {
	var m model.HierarchyNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *HierarchyNodeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.HierarchyNode, error) {
	var models []model.HierarchyNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
