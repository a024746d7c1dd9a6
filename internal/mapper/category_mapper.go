package mapper

import (
	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
)

type CategoryMapper struct{}

func NewCategoryMapper() *CategoryMapper {
	return &CategoryMapper{}
}

func (m *CategoryMapper) ToEntity(mod *model.Category) *entity.Category {
	if mod == nil {
		return nil
	}
	return &entity.Category{
		Id:          mod.Id,
		Name:        mod.Name,
		Description: mod.Description,
		CreatedAt:   mod.CreatedAt,
		UpdatedAt:   mod.UpdatedAt,
	}
}

func (m *CategoryMapper) ToModel(ent *entity.Category) *model.Category {
	if ent == nil {
		return nil
	}
	return &model.Category{
		Id:          ent.Id,
		Name:        ent.Name,
		Description: ent.Description,
	}
}

func (m *CategoryMapper) ToEntities(mods []model.Category) []entity.Category {
	ents := make([]entity.Category, 0, len(mods))
	for i := range mods {
		ents = append(ents, *m.ToEntity(&mods[i]))
	}
	return ents
}
