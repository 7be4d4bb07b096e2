package mapper

import (
	"time"

	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:          d.Id,
		UserId:      d.UserId,
		FileName:    d.FileName,
		FileSize:    d.FileSize,
		MimeType:    d.MimeType,
		StoragePath: d.StoragePath,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
		IsDeleted:   d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:          d.Id,
		UserId:      d.UserId,
		FileName:    d.FileName,
		FileSize:    d.FileSize,
		MimeType:    d.MimeType,
		StoragePath: d.StoragePath,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}
}

func (m *DocumentMapper) ToEntities(documents []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(documents))
	for i, d := range documents {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

type CanvasSnapshotMapper struct{}

func NewCanvasSnapshotMapper() *CanvasSnapshotMapper {
	return &CanvasSnapshotMapper{}
}

func (m *CanvasSnapshotMapper) ToEntity(s *model.CanvasSnapshot) *entity.CanvasSnapshot {
	if s == nil {
		return nil
	}
	return &entity.CanvasSnapshot{
		UserId:    s.UserId,
		State:     []byte(s.State),
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *CanvasSnapshotMapper) ToModel(s *entity.CanvasSnapshot) *model.CanvasSnapshot {
	if s == nil {
		return nil
	}
	return &model.CanvasSnapshot{
		UserId:    s.UserId,
		State:     datatypes.JSON(s.State),
		UpdatedAt: s.UpdatedAt,
	}
}
