package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	NodeLevelTheme   = 0
	NodeLevelCode    = 1
	NodeLevelSubCode = 2
)

// MaxRepresentatives caps how many exemplar answer ids a node keeps.
const MaxRepresentatives = 5

type HierarchyNode struct {
	Id                uuid.UUID
	GenerationId      uuid.UUID
	ParentId          *uuid.UUID
	Level             int
	Name              string
	Description       string
	Confidence        float64
	RepresentativeIds []uuid.UUID
	ClusterIndex      int
	IsEdited          bool
	Embedding         []float32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
