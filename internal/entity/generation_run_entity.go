package entity

import (
	"time"

	"github.com/google/uuid"

	"codeframe-be/pkg/mece"
)

const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// GenerationConfig is the per-run knob set, captured at submission time so a
// later config change never alters a historical run.
type GenerationConfig struct {
	MinClusterSize      int    `json:"min_cluster_size"`
	MinSamples          int    `json:"min_samples"`
	MaxDepth            int    `json:"max_depth"`
	ExemplarsPerCluster int    `json:"exemplars_per_cluster"`
	Language            string `json:"language"`
}

type GenerationRun struct {
	Id                uuid.UUID
	CategoryId        uuid.UUID
	Status            string
	Config            GenerationConfig
	ClustersTotal     int
	ClustersCompleted int
	ClustersFailed    int
	TokensUsed        int64
	CostUsd           float64
	MeceScore         *int
	MeceWarnings      []mece.Warning
	ErrorDetail       string
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// IsTerminal reports whether the run can no longer change status.
func (r GenerationRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// CanTransition encodes the legal status moves. Terminal states accept
// nothing; queued may only start running or be cancelled before pickup.
// Failure always passes through running first, even if only nominally.
func CanTransition(from, to string) bool {
	switch from {
	case RunStatusQueued:
		return to == RunStatusRunning || to == RunStatusCancelled
	case RunStatusRunning:
		return to == RunStatusCompleted || to == RunStatusFailed || to == RunStatusCancelled
	}
	return false
}
