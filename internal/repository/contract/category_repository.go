package contract

import (
	"context"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/specification"
)

type CategoryRepository interface {
	Create(ctx context.Context, category *entity.Category) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Category, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Category, error)
}
