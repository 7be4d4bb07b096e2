package service

import (
	"context"

	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/deepsearch"
	"compliance-assistant-be/pkg/rag/orchestrator"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) (*rag.Health, error)
}

type IRagService interface {
	Query(ctx context.Context, userID string, req *dto.QueryRequest) (*rag.Result, error)
	OpenStream(ctx context.Context, userID string, mode rag.QueryMode) (*memory.Workspace, error)
	StreamQuery(ctx context.Context, userID string, query string) error
	CloseStream(ctx context.Context, userID string) error
	DeepSearch(ctx context.Context, userID string, req *dto.DeepSearchRequest) (*rag.DeepSearchResult, error)
	Session(ctx context.Context, userID string) (*dto.SessionResponse, error)
	History(ctx context.Context, userID string) (*dto.HistoryResponse, error)
	ClearHistory(ctx context.Context, userID string) error
	ClearCache(ctx context.Context, userID string) error
	Health(ctx context.Context) (*rag.Health, error)
}

type ragService struct {
	sessions   *memory.SessionRepository
	deepSearch *deepsearch.Orchestrator
	health     HealthChecker
	logger     logger.ILogger
}

func NewRagService(sessions *memory.SessionRepository, deepSearch *deepsearch.Orchestrator, health HealthChecker, log logger.ILogger) IRagService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ragService{
		sessions:   sessions,
		deepSearch: deepSearch,
		health:     health,
		logger:     log,
	}
}

func (s *ragService) Query(ctx context.Context, userID string, req *dto.QueryRequest) (*rag.Result, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	mode := rag.QueryMode(req.Mode)
	if mode == "" {
		mode = rag.ModeSimple
	}
	return ws.Orchestrator.Submit(ctx, req.Query, userID, mode)
}

// OpenStream makes sure the user's backend stream is connected in mode and
// returns the workspace so the caller can listen to its events.
func (s *ragService) OpenStream(ctx context.Context, userID string, mode rag.QueryMode) (*memory.Workspace, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ws.Orchestrator.OpenStream(ctx, mode); err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *ragService) StreamQuery(ctx context.Context, userID string, query string) error {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	return ws.Orchestrator.SendStreamingQuery(query, userID)
}

func (s *ragService) CloseStream(ctx context.Context, userID string) error {
	ws, ok := s.sessions.Peek(userID)
	if !ok {
		return nil
	}
	return ws.Orchestrator.CloseStream()
}

func (s *ragService) DeepSearch(ctx context.Context, userID string, req *dto.DeepSearchRequest) (*rag.DeepSearchResult, error) {
	return s.deepSearch.Run(ctx, rag.DeepSearchRequest{
		Query:        req.Query,
		UserID:       userID,
		MaxDocuments: req.MaxDocuments,
	})
}

func (s *ragService) Session(ctx context.Context, userID string) (*dto.SessionResponse, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(ws.Orchestrator.Snapshot()), nil
}

func (s *ragService) History(ctx context.Context, userID string) (*dto.HistoryResponse, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries := ws.Orchestrator.History()
	return &dto.HistoryResponse{Entries: entries, Total: len(entries)}, nil
}

func (s *ragService) ClearHistory(ctx context.Context, userID string) error {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	ws.Orchestrator.ClearHistory(ctx)
	return nil
}

func (s *ragService) ClearCache(ctx context.Context, userID string) error {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	ws.Orchestrator.ClearCache(ctx)
	return nil
}

func (s *ragService) Health(ctx context.Context) (*rag.Health, error) {
	return s.health.HealthCheck(ctx)
}

func toSessionResponse(snap orchestrator.Snapshot) *dto.SessionResponse {
	return &dto.SessionResponse{
		Status:       string(snap.Status),
		Loading:      snap.Loading,
		Error:        snap.Error,
		Current:      snap.Current,
		StreamOpen:   snap.StreamOpen,
		StreamEvents: snap.StreamEvents,
		History:      snap.History,
	}
}
