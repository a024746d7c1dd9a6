package unitofwork

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"codeframe-be/internal/repository/contract"
	"codeframe-be/internal/repository/implementation"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) CategoryRepository() contract.CategoryRepository {
	return implementation.NewCategoryRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AnswerRepository() contract.AnswerRepository {
	return implementation.NewAnswerRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GenerationRunRepository() contract.GenerationRunRepository {
	return implementation.NewGenerationRunRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ClusterResultRepository() contract.ClusterResultRepository {
	return implementation.NewClusterResultRepository(u.getDB())
}

func (u *UnitOfWorkImpl) HierarchyNodeRepository() contract.HierarchyNodeRepository {
	return implementation.NewHierarchyNodeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) EmbeddingCacheRepository() contract.EmbeddingCacheRepository {
	return implementation.NewEmbeddingCacheRepository(u.getDB())
}
