package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/repository/unitofwork"
	"compliance-assistant-be/pkg/canvas"

	"github.com/google/uuid"
)

// GormCanvasPersister keeps a user's canvas state as one jsonb snapshot row.
type GormCanvasPersister struct {
	uowFactory unitofwork.RepositoryFactory
	userId     uuid.UUID
}

func NewGormCanvasPersister(uowFactory unitofwork.RepositoryFactory, userId uuid.UUID) *GormCanvasPersister {
	return &GormCanvasPersister{uowFactory: uowFactory, userId: userId}
}

func (p *GormCanvasPersister) Load(ctx context.Context) (*canvas.State, error) {
	uow := p.uowFactory.NewUnitOfWork(ctx)
	snapshot, err := uow.CanvasSnapshotRepository().FindByUser(ctx, p.userId)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	var state canvas.State
	if err := json.Unmarshal(snapshot.State, &state); err != nil {
		return nil, fmt.Errorf("decode canvas snapshot: %w", err)
	}
	return &state, nil
}

func (p *GormCanvasPersister) Save(ctx context.Context, state canvas.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	uow := p.uowFactory.NewUnitOfWork(ctx)
	return uow.CanvasSnapshotRepository().Upsert(ctx, &entity.CanvasSnapshot{
		UserId:    p.userId,
		State:     raw,
		UpdatedAt: time.Now(),
	})
}
