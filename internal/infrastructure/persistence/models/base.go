package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/labflow/backend/internal/domain/shared"
)

// BaseModel is the id and timestamp columns every table starts with
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func baseModelOf(e shared.BaseEntity) BaseModel {
	return BaseModel(e)
}

// Entity returns the columns as the domain's embedded entity
func (m BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity(m)
}
