package contract

import (
	"context"

	"github.com/google/uuid"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/specification"
)

type HierarchyNodeRepository interface {
	Create(ctx context.Context, node *entity.HierarchyNode) error
	CreateBatch(ctx context.Context, nodes []*entity.HierarchyNode) error
	Update(ctx context.Context, node *entity.HierarchyNode) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIds(ctx context.Context, ids []uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HierarchyNode, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.HierarchyNode, error)
}
