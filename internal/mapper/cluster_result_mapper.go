package mapper

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
)

type ClusterResultMapper struct{}

func NewClusterResultMapper() *ClusterResultMapper {
	return &ClusterResultMapper{}
}

func (m *ClusterResultMapper) ToEntity(mod *model.ClusterResult) *entity.ClusterResult {
	if mod == nil {
		return nil
	}
	ent := &entity.ClusterResult{
		Id:           mod.Id,
		GenerationId: mod.GenerationId,
		ClusterIndex: mod.ClusterIndex,
		Centroid:     mod.Centroid.Slice(),
		Status:       mod.Status,
		ErrorDetail:  mod.ErrorDetail,
		CreatedAt:    mod.CreatedAt,
		UpdatedAt:    mod.UpdatedAt,
	}
	if len(mod.MemberIds) > 0 {
		_ = json.Unmarshal(mod.MemberIds, &ent.MemberIds)
	}
	return ent
}

func (m *ClusterResultMapper) ToModel(ent *entity.ClusterResult) *model.ClusterResult {
	if ent == nil {
		return nil
	}
	mod := &model.ClusterResult{
		Id:           ent.Id,
		GenerationId: ent.GenerationId,
		ClusterIndex: ent.ClusterIndex,
		Centroid:     pgvector.NewVector(ent.Centroid),
		Status:       ent.Status,
		ErrorDetail:  ent.ErrorDetail,
	}
	members := ent.MemberIds
	if members == nil {
		members = []uuid.UUID{}
	}
	if raw, err := json.Marshal(members); err == nil {
		mod.MemberIds = datatypes.JSON(raw)
	}
	return mod
}

func (m *ClusterResultMapper) ToEntities(mods []model.ClusterResult) []entity.ClusterResult {
	ents := make([]entity.ClusterResult, 0, len(mods))
	for i := range mods {
		ents = append(ents, *m.ToEntity(&mods[i]))
	}
	return ents
}
