package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CanvasSnapshot is the persisted compliance canvas of one user.
type CanvasSnapshot struct {
	UserId    uuid.UUID      `gorm:"type:uuid;primaryKey"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (CanvasSnapshot) TableName() string {
	return "canvas_snapshots"
}
