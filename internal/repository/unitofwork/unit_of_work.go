package unitofwork

import (
	"context"

	"compliance-assistant-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	CanvasSnapshotRepository() contract.CanvasSnapshotRepository
}
