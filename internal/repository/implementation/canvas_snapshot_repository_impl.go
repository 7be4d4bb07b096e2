package implementation

import (
	"context"
	"errors"

	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/mapper"
	"compliance-assistant-be/internal/model"
	"compliance-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CanvasSnapshotRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CanvasSnapshotMapper
}

func NewCanvasSnapshotRepository(db *gorm.DB) contract.CanvasSnapshotRepository {
	return &CanvasSnapshotRepositoryImpl{
		db:     db,
		mapper: mapper.NewCanvasSnapshotMapper(),
	}
}

func (r *CanvasSnapshotRepositoryImpl) FindByUser(ctx context.Context, userId uuid.UUID) (*entity.CanvasSnapshot, error) {
	var m model.CanvasSnapshot
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CanvasSnapshotRepositoryImpl) Upsert(ctx context.Context, snapshot *entity.CanvasSnapshot) error {
	m := r.mapper.ToModel(snapshot)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(m).Error
}
