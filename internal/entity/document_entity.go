package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	FileName    string
	FileSize    int64
	MimeType    string
	StoragePath string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}

type CanvasSnapshot struct {
	UserId    uuid.UUID
	State     []byte
	UpdatedAt time.Time
}
