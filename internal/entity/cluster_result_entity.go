package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClusterStatusPending    = "pending"
	ClusterStatusGenerating = "generating"
	ClusterStatusDone       = "done"
	ClusterStatusFailed     = "failed"
)

// OutlierClusterIndex marks the bucket of answers too sparse to cluster.
const OutlierClusterIndex = -1

type ClusterResult struct {
	Id           uuid.UUID
	GenerationId uuid.UUID
	ClusterIndex int
	MemberIds    []uuid.UUID
	Centroid     []float32
	Status       string
	ErrorDetail  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c ClusterResult) IsOutlierBucket() bool {
	return c.ClusterIndex == OutlierClusterIndex
}
