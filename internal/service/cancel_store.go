package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ICancelStore holds cross-instance cancellation flags. A worker polls the
// flag between pipeline stages, so a cancel issued on another instance still
// lands.
type ICancelStore interface {
	RequestCancel(ctx context.Context, runId uuid.UUID) error
	IsCancelRequested(ctx context.Context, runId uuid.UUID) (bool, error)
	Clear(ctx context.Context, runId uuid.UUID) error
}

type redisCancelStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCancelStore(client *redis.Client) ICancelStore {
	return &redisCancelStore{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func cancelKey(runId uuid.UUID) string {
	return fmt.Sprintf("codeframe:cancel:%s", runId)
}

func (s *redisCancelStore) RequestCancel(ctx context.Context, runId uuid.UUID) error {
	return s.client.Set(ctx, cancelKey(runId), "1", s.ttl).Err()
}

func (s *redisCancelStore) IsCancelRequested(ctx context.Context, runId uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKey(runId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisCancelStore) Clear(ctx context.Context, runId uuid.UUID) error {
	return s.client.Del(ctx, cancelKey(runId)).Err()
}

// noopCancelStore keeps single-instance deployments working without Redis.
type noopCancelStore struct{}

func NewNoopCancelStore() ICancelStore {
	return noopCancelStore{}
}

func (noopCancelStore) RequestCancel(ctx context.Context, runId uuid.UUID) error {
	return nil
}

func (noopCancelStore) IsCancelRequested(ctx context.Context, runId uuid.UUID) (bool, error) {
	return false, nil
}

func (noopCancelStore) Clear(ctx context.Context, runId uuid.UUID) error {
	return nil
}
