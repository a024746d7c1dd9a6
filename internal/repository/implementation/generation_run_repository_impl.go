package implementation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/mapper"
	"codeframe-be/internal/model"
	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/specification"
)

type GenerationRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenerationRunMapper
}

func NewGenerationRunRepository(db *gorm.DB) contract.GenerationRunRepository {
	return &GenerationRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenerationRunMapper(),
	}
}

func (r *GenerationRunRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *GenerationRunRepositoryImpl) Create(ctx context.Context, run *entity.GenerationRun) error {
	m := r.mapper.ToModel(run)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenerationRunRepositoryImpl) Update(ctx context.Context, run *entity.GenerationRun) error {
	m := r.mapper.ToModel(run)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenerationRunRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationRun, error) {
	var m model.GenerationRun
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *GenerationRunRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.GenerationRun, error) {
	var models []model.GenerationRun
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *GenerationRunRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	if !entity.CanTransition(from, to) {
		return false, nil
	}
	updates := map[string]interface{}{"status": to}
	now := time.Now().UTC()
	switch to {
	case entity.RunStatusRunning:
		updates["started_at"] = now
	case entity.RunStatusCompleted, entity.RunStatusFailed, entity.RunStatusCancelled:
		updates["completed_at"] = now
	}
	res := r.db.WithContext(ctx).
		Model(&model.GenerationRun{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
