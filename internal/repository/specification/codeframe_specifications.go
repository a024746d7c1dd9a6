package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByCategoryId filters rows belonging to one survey category
type ByCategoryId struct {
	CategoryId uuid.UUID
}

func (s ByCategoryId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category_id = ?", s.CategoryId)
}

// ByGenerationId filters rows produced by one pipeline run
type ByGenerationId struct {
	GenerationId uuid.UUID
}

func (s ByGenerationId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("generation_id = ?", s.GenerationId)
}

// ByLevel filters hierarchy nodes at one depth
type ByLevel struct {
	Level int
}

func (s ByLevel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("level = ?", s.Level)
}

// ByStatus filters by a status column
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByContentHash filters embedding cache rows by normalized-text hash
type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

// Uncoded filters answers that have no applied code yet
type Uncoded struct{}

func (s Uncoded) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("code_node_id IS NULL")
}
