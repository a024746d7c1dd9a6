package mapper

import (
	"codeframe-be/internal/entity"
	"codeframe-be/internal/model"
)

type AnswerMapper struct{}

func NewAnswerMapper() *AnswerMapper {
	return &AnswerMapper{}
}

func (m *AnswerMapper) ToEntity(mod *model.Answer) *entity.Answer {
	if mod == nil {
		return nil
	}
	return &entity.Answer{
		Id:         mod.Id,
		CategoryId: mod.CategoryId,
		Text:       mod.Text,
		Language:   mod.Language,
		CodeNodeId: mod.CodeNodeId,
		CodeName:   mod.CodeName,
		CodedAt:    mod.CodedAt,
		CreatedAt:  mod.CreatedAt,
		UpdatedAt:  mod.UpdatedAt,
	}
}

func (m *AnswerMapper) ToModel(ent *entity.Answer) *model.Answer {
	if ent == nil {
		return nil
	}
	return &model.Answer{
		Id:         ent.Id,
		CategoryId: ent.CategoryId,
		Text:       ent.Text,
		Language:   ent.Language,
		CodeNodeId: ent.CodeNodeId,
		CodeName:   ent.CodeName,
		CodedAt:    ent.CodedAt,
	}
}

func (m *AnswerMapper) ToEntities(mods []model.Answer) []entity.Answer {
	ents := make([]entity.Answer, 0, len(mods))
	for i := range mods {
		ents = append(ents, *m.ToEntity(&mods[i]))
	}
	return ents
}
