package mapper

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
)

type HierarchyNodeMapper struct{}

func NewHierarchyNodeMapper() *HierarchyNodeMapper {
	return &HierarchyNodeMapper{}
}

func (m *HierarchyNodeMapper) ToEntity(mod *model.HierarchyNode) *entity.HierarchyNode {
	if mod == nil {
		return nil
	}
	ent := &entity.HierarchyNode{
		Id:           mod.Id,
		GenerationId: mod.GenerationId,
		ParentId:     mod.ParentId,
		Level:        mod.Level,
		Name:         mod.Name,
		Description:  mod.Description,
		Confidence:   mod.Confidence,
		ClusterIndex: mod.ClusterIndex,
		IsEdited:     mod.IsEdited,
		Embedding:    mod.Embedding.Slice(),
		CreatedAt:    mod.CreatedAt,
		UpdatedAt:    mod.UpdatedAt,
	}
	if len(mod.RepresentativeIds) > 0 {
		_ = json.Unmarshal(mod.RepresentativeIds, &ent.RepresentativeIds)
	}
	return ent
}

func (m *HierarchyNodeMapper) ToModel(ent *entity.HierarchyNode) *model.HierarchyNode {
	if ent == nil {
		return nil
	}
	mod := &model.HierarchyNode{
		Id:           ent.Id,
		GenerationId: ent.GenerationId,
		ParentId:     ent.ParentId,
		Level:        ent.Level,
		Name:         ent.Name,
		Description:  ent.Description,
		Confidence:   ent.Confidence,
		ClusterIndex: ent.ClusterIndex,
		IsEdited:     ent.IsEdited,
		Embedding:    pgvector.NewVector(ent.Embedding),
	}
	reps := ent.RepresentativeIds
	if reps == nil {
		reps = []uuid.UUID{}
	}
	if raw, err := json.Marshal(reps); err == nil {
		mod.RepresentativeIds = datatypes.JSON(raw)
	}
	return mod
}

func (m *HierarchyNodeMapper) ToEntities(mods []model.HierarchyNode) []entity.HierarchyNode {
	ents := make([]entity.HierarchyNode, 0, len(mods))
	for i := range mods {
		ents = append(ents, *m.ToEntity(&mods[i]))
	}
	return ents
}
