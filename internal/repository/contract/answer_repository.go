package contract

import (
	"context"
	"time"

	"github.com/google/uuid"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/repository/specification"
)

type AnswerRepository interface {
	Create(ctx context.Context, answer *entity.Answer) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Answer, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]entity.Answer, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// AssignCode sets the applied code on an answer. It only touches rows
	// whose code_node_id is still NULL, so an existing assignment survives.
	AssignCode(ctx context.Context, answerId uuid.UUID, codeNodeId uuid.UUID, codeName string, codedAt time.Time) (bool, error)
}
