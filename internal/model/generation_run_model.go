package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// GenerationRun is the audit record of one pipeline execution. Runs are never
// deleted; terminal statuses never regress.
type GenerationRun struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoryId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status            string         `gorm:"type:varchar(16);not null;index"`
	Config            datatypes.JSON `gorm:"type:jsonb"`
	ClustersTotal     int            `gorm:"default:0"`
	ClustersCompleted int            `gorm:"default:0"`
	ClustersFailed    int            `gorm:"default:0"`
	TokensUsed        int64          `gorm:"default:0"`
	CostUsd           float64        `gorm:"default:0"`
	MeceScore         *int           ``
	MeceWarnings      datatypes.JSON `gorm:"type:jsonb"`
	ErrorDetail       string         `gorm:"type:text"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	StartedAt         *time.Time     ``
	CompletedAt       *time.Time     ``
}

func (GenerationRun) TableName() string {
	return "generation_runs"
}
