package dto

import (
	"github.com/google/uuid"
)

type HierarchyNodeResponse struct {
	Id                uuid.UUID               `json:"id"`
	Level             int                     `json:"level"`
	Name              string                  `json:"name"`
	Description       string                  `json:"description,omitempty"`
	Confidence        float64                 `json:"confidence"`
	RepresentativeIds []uuid.UUID             `json:"representative_ids,omitempty"`
	ClusterIndex      int                     `json:"cluster_index"`
	IsEdited          bool                    `json:"is_edited"`
	Children          []HierarchyNodeResponse `json:"children,omitempty"`
}

type HierarchyTreeResponse struct {
	GenerationId uuid.UUID               `json:"generation_id"`
	Themes       []HierarchyNodeResponse `json:"themes"`
}

type RenameNodeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type MergeNodesRequest struct {
	NodeIds    []uuid.UUID `json:"node_ids" validate:"required,min=2"`
	TargetName string      `json:"target_name" validate:"required,max=255"`
}

type MergeNodesResponse struct {
	Id   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
