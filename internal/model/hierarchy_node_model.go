package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HierarchyNode is one node of the codeframe tree (0=theme, 1=code,
// 2=sub-code). The embedding column holds the vector of name+description and
// feeds the MECE overlap check.
type HierarchyNode struct {
	Id                uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GenerationId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ParentId          *uuid.UUID      `gorm:"type:uuid;index"`
	Level             int             `gorm:"not null"`
	Name              string          `gorm:"type:varchar(255);not null"`
	Description       string          `gorm:"type:text"`
	Confidence        float64         `gorm:"default:0.5"`
	RepresentativeIds datatypes.JSON  `gorm:"type:jsonb"`
	ClusterIndex      int             `gorm:"default:-1"`
	IsEdited          bool            `gorm:"default:false"`
	Embedding         pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt  `gorm:"index"`
}

func (HierarchyNode) TableName() string {
	return "hierarchy_nodes"
}
