package contract

import (
	"context"

	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type CanvasSnapshotRepository interface {
	// FindByUser returns nil, nil when the user has no snapshot yet.
	FindByUser(ctx context.Context, userId uuid.UUID) (*entity.CanvasSnapshot, error)
	Upsert(ctx context.Context, snapshot *entity.CanvasSnapshot) error
}
