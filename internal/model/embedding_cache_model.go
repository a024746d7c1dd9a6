package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingCacheEntry maps a normalized-text hash to its vector. Insert-only;
// eviction is an external retention concern.
type EmbeddingCacheEntry struct {
	Id          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ContentHash string          `gorm:"type:char(64);not null;uniqueIndex"`
	Vector      pgvector.Vector `gorm:"type:vector(768)"`
	Model       string          `gorm:"type:varchar(128)"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (EmbeddingCacheEntry) TableName() string {
	return "embedding_cache_entries"
}
