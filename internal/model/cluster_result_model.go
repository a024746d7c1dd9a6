package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ClusterResult is one density-derived group found during a run. Index -1 is
// the outlier bucket. Rows are immutable once status reaches done.
type ClusterResult struct {
	Id           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GenerationId uuid.UUID       `gorm:"type:uuid;not null;index"`
	ClusterIndex int             `gorm:"not null"`
	MemberIds    datatypes.JSON  `gorm:"type:jsonb"`
	Centroid     pgvector.Vector `gorm:"type:vector(768)"`
	Status       string          `gorm:"type:varchar(16);not null"`
	ErrorDetail  string          `gorm:"type:text"`
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}

func (ClusterResult) TableName() string {
	return "cluster_results"
}
