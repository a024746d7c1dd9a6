package unitofwork

import (
	"context"

	"codeframe-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CategoryRepository() contract.CategoryRepository
	AnswerRepository() contract.AnswerRepository
	GenerationRunRepository() contract.GenerationRunRepository
	ClusterResultRepository() contract.ClusterResultRepository
	HierarchyNodeRepository() contract.HierarchyNodeRepository
	EmbeddingCacheRepository() contract.EmbeddingCacheRepository
}
