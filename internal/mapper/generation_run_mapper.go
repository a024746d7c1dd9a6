package mapper

import (
	"encoding/json"

	"gorm.io/datatypes"

	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
	"codeframe-be/pkg/mece"
)

type GenerationRunMapper struct{}

func NewGenerationRunMapper() *GenerationRunMapper {
	return &GenerationRunMapper{}
}

func (m *GenerationRunMapper) ToEntity(mod *model.GenerationRun) *entity.GenerationRun {
	if mod == nil {
		return nil
	}
	ent := &entity.GenerationRun{
		Id:                mod.Id,
		CategoryId:        mod.CategoryId,
		Status:            mod.Status,
		ClustersTotal:     mod.ClustersTotal,
		ClustersCompleted: mod.ClustersCompleted,
		ClustersFailed:    mod.ClustersFailed,
		TokensUsed:        mod.TokensUsed,
		CostUsd:           mod.CostUsd,
		MeceScore:         mod.MeceScore,
		ErrorDetail:       mod.ErrorDetail,
		CreatedAt:         mod.CreatedAt,
		StartedAt:         mod.StartedAt,
		CompletedAt:       mod.CompletedAt,
	}
	if len(mod.Config) > 0 {
		// malformed rows keep the zero config rather than failing reads
		_ = json.Unmarshal(mod.Config, &ent.Config)
	}
	if len(mod.MeceWarnings) > 0 {
		_ = json.Unmarshal(mod.MeceWarnings, &ent.MeceWarnings)
	}
	return ent
}

func (m *GenerationRunMapper) ToModel(ent *entity.GenerationRun) *model.GenerationRun {
	if ent == nil {
		return nil
	}
	mod := &model.GenerationRun{
		Id:                ent.Id,
		CategoryId:        ent.CategoryId,
		Status:            ent.Status,
		ClustersTotal:     ent.ClustersTotal,
		ClustersCompleted: ent.ClustersCompleted,
		ClustersFailed:    ent.ClustersFailed,
		TokensUsed:        ent.TokensUsed,
		CostUsd:           ent.CostUsd,
		MeceScore:         ent.MeceScore,
		ErrorDetail:       ent.ErrorDetail,
		StartedAt:         ent.StartedAt,
		CompletedAt:       ent.CompletedAt,
	}
	if raw, err := json.Marshal(ent.Config); err == nil {
		mod.Config = datatypes.JSON(raw)
	}
	warnings := ent.MeceWarnings
	if warnings == nil {
		warnings = []mece.Warning{}
	}
	if raw, err := json.Marshal(warnings); err == nil {
		mod.MeceWarnings = datatypes.JSON(raw)
	}
	return mod
}

func (m *GenerationRunMapper) ToEntities(mods []model.GenerationRun) []entity.GenerationRun {
	ents := make([]entity.GenerationRun, 0, len(mods))
	for i := range mods {
		ents = append(ents, *m.ToEntity(&mods[i]))
	}
	return ents
}
