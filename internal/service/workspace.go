package service

import (
	"context"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/internal/repository/unitofwork"
	"compliance-assistant-be/pkg/canvas"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag/cache"
	"compliance-assistant-be/pkg/rag/history"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/google/uuid"
)

// WorkspaceDeps are the shared collaborators every user workspace is built from.
type WorkspaceDeps struct {
	Store        kv.Store
	Querier      orchestrator.Querier
	Streamer     orchestrator.Streamer
	Publisher    events.Publisher
	UowFactory   unitofwork.RepositoryFactory // nil keeps canvas state in Store
	CacheTTL     time.Duration
	HistoryLimit int
	RetryPolicy  orchestrator.RetryPolicy
	Logger       logger.ILogger
}

// UserScope is the key prefix of a user's response cache.
func UserScope(userID string) string {
	return "user:" + userID + ":"
}

func NewWorkspaceFactory(d WorkspaceDeps) memory.WorkspaceFactory {
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	return func(ctx context.Context, userID string) (*memory.Workspace, error) {
		responses := cache.New(kv.WithPrefix(d.Store, UserScope(userID)), d.Logger, cache.WithTTL(d.CacheTTL))
		hist := history.New(ctx, d.Store, userID, d.HistoryLimit, d.Logger)

		opts := []orchestrator.Option{
			orchestrator.WithLogger(d.Logger),
			orchestrator.WithRetryPolicy(d.RetryPolicy),
		}
		if d.Publisher != nil {
			opts = append(opts, orchestrator.WithPublisher(d.Publisher))
		}
		orch := orchestrator.New(d.Querier, d.Streamer, responses, hist, opts...)

		canvasOpts := []canvas.Option{canvas.WithLogger(d.Logger)}
		if d.Publisher != nil {
			canvasOpts = append(canvasOpts, canvas.WithPublisher(d.Publisher, userID))
		}
		versions := canvas.NewVersionStore(ctx, canvasPersister(d, userID), canvasOpts...)

		d.Logger.Info("Workspace", "Workspace created", map[string]interface{}{
			"user_id":  userID,
			"history":  hist.Len(),
			"versions": len(versions.Versions()),
		})

		return &memory.Workspace{
			UserID:       userID,
			Orchestrator: orch,
			Canvas:       versions,
		}, nil
	}
}

func canvasPersister(d WorkspaceDeps, userID string) canvas.Persister {
	if d.UowFactory != nil {
		if id, err := uuid.Parse(userID); err == nil {
			return NewGormCanvasPersister(d.UowFactory, id)
		}
	}
	return canvas.NewKVPersister(d.Store, userID)
}
