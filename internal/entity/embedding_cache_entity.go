package entity

import (
	"time"

	"github.com/google/uuid"
)

type EmbeddingCacheEntry struct {
	Id          uuid.UUID
	ContentHash string
	Vector      []float32
	Model       string
	CreatedAt   time.Time
}
