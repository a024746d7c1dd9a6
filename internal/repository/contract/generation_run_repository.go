package contract

import (
	"context"

	"github.com/google/uuid"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/specification"
)

type GenerationRunRepository interface {
	Create(ctx context.Context, run *entity.GenerationRun) error
	Update(ctx context.Context, run *entity.GenerationRun) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GenerationRun, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.GenerationRun, error)
	// TransitionStatus moves a run from one status to another as a single
	// compare-and-set. Returns false when the run was no longer in the
	// expected status, which keeps terminal states immutable under races.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
}
