package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Answer struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CategoryId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Text       string         `gorm:"type:text;not null"`
	Language   string         `gorm:"type:varchar(16)"`
	CodeNodeId *uuid.UUID     `gorm:"type:uuid;index"` // applied code; nil until coded
	CodeName   string         `gorm:"type:varchar(255)"`
	CodedAt    *time.Time     ``
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Answer) TableName() string {
	return "answers"
}
