package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerationConfigRequest struct {
	MinClusterSize      int    `json:"min_cluster_size" validate:"omitempty,min=2"`
	MinSamples          int    `json:"min_samples" validate:"omitempty,min=1"`
	MaxDepth            int    `json:"max_depth" validate:"omitempty,min=2,max=3"`
	ExemplarsPerCluster int    `json:"exemplars_per_cluster" validate:"omitempty,min=1,max=50"`
	Language            string `json:"language" validate:"omitempty,max=16"`
}

type StartGenerationRequest struct {
	CategoryId uuid.UUID                `json:"category_id" validate:"required"`
	Config     *GenerationConfigRequest `json:"config" validate:"omitempty"`
}

type StartGenerationResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type MeceWarningResponse struct {
	Kind     string   `json:"kind"`
	Severity string   `json:"severity"`
	NodeIds  []string `json:"node_ids,omitempty"`
	Count    int      `json:"count,omitempty"`
	Detail   string   `json:"detail"`
}

type GenerationProgressResponse struct {
	ClustersTotal     int `json:"clusters_total"`
	ClustersCompleted int `json:"clusters_completed"`
	ClustersFailed    int `json:"clusters_failed"`
}

type GenerationStatusResponse struct {
	Id           uuid.UUID                  `json:"id"`
	CategoryId   uuid.UUID                  `json:"category_id"`
	Status       string                     `json:"status"`
	Progress     GenerationProgressResponse `json:"progress"`
	TokensUsed   int64                      `json:"tokens_used"`
	CostUsd      float64                    `json:"cost_usd"`
	MeceScore    *int                       `json:"mece_score,omitempty"`
	MeceWarnings []MeceWarningResponse      `json:"mece_warnings,omitempty"`
	ErrorDetail  string                     `json:"error_detail,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
}

type ListRunsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=queued running completed failed cancelled"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type ListRunsResponse struct {
	CategoryId uuid.UUID                  `json:"category_id"`
	Runs       []GenerationStatusResponse `json:"runs"`
}

type CancelGenerationResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type ApplyCodesRequest struct {
	ConfidenceThreshold *float64 `json:"confidence_threshold" validate:"omitempty,min=0,max=1"`
}

type ApplyCodesResponse struct {
	AutoAssigned int `json:"auto_assigned"`
	NeedsReview  int `json:"needs_review"`
	AlreadyCoded int `json:"already_coded"`
}
