package contract

import (
	"context"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/specification"
)

type ClusterResultRepository interface {
	CreateBatch(ctx context.Context, results []*entity.ClusterResult) error
	Update(ctx context.Context, result *entity.ClusterResult) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ClusterResult, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.ClusterResult, error)
}
