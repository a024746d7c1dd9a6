package entity

import (
	"time"

	"github.com/google/uuid"
)

type Answer struct {
	Id         uuid.UUID
	CategoryId uuid.UUID
	Text       string
	Language   string
	CodeNodeId *uuid.UUID
	CodeName   string
	CodedAt    *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsCoded reports whether the answer already carries an applied code.
// Coded answers are never overwritten by a later apply.
func (a Answer) IsCoded() bool {
	return a.CodeNodeId != nil
}
