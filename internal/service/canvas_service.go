package service

import (
	"context"

	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/pkg/canvas"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrVersionNotFound = fiber.NewError(fiber.StatusNotFound, "Version not found")
	ErrNoCurrentResult = fiber.NewError(fiber.StatusConflict, "There is no answer to add yet")
)

type ICanvasService interface {
	State(ctx context.Context, userID string) (*dto.CanvasStateResponse, error)
	AddVersion(ctx context.Context, userID string, req *dto.AddVersionRequest) (*dto.VersionResponse, error)
	AddFromCurrentResult(ctx context.Context, userID, label string) (*dto.VersionResponse, error)
	Show(ctx context.Context, userID, id string) (*dto.VersionResponse, error)
	Current(ctx context.Context, userID string) (*dto.VersionResponse, error)
	SetCurrent(ctx context.Context, userID, id string) (*dto.CanvasStateResponse, error)
	Delete(ctx context.Context, userID, id string) (*dto.CanvasStateResponse, error)
	SetEditMode(ctx context.Context, userID string, enabled bool) (*dto.CanvasStateResponse, error)
	SaveEdit(ctx context.Context, userID string, req *dto.SaveEditRequest) (*dto.SaveEditResponse, error)
}

type canvasService struct {
	sessions *memory.SessionRepository
}

func NewCanvasService(sessions *memory.SessionRepository) ICanvasService {
	return &canvasService{sessions: sessions}
}

func (s *canvasService) store(ctx context.Context, userID string) (*canvas.VersionStore, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ws.Canvas, nil
}

func (s *canvasService) State(ctx context.Context, userID string) (*dto.CanvasStateResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toCanvasState(store.State()), nil
}

func (s *canvasService) AddVersion(ctx context.Context, userID string, req *dto.AddVersionRequest) (*dto.VersionResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := store.AddVersion(ctx, req.Content, req.Label)
	return toVersionResponse(v, true, false), nil
}

// AddFromCurrentResult copies the summary of the user's latest answer into a new version.
func (s *canvasService) AddFromCurrentResult(ctx context.Context, userID, label string) (*dto.VersionResponse, error) {
	ws, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := ws.Orchestrator.Snapshot().Current
	if current == nil || current.Summary == "" {
		return nil, ErrNoCurrentResult
	}
	v := ws.Canvas.AddVersion(ctx, current.Summary, label)
	return toVersionResponse(v, true, false), nil
}

func (s *canvasService) Show(ctx context.Context, userID, id string) (*dto.VersionResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, ok := store.Version(id)
	if !ok {
		return nil, ErrVersionNotFound
	}
	current, _ := store.CurrentVersion()
	return toVersionResponse(v, current.ID == v.ID, true), nil
}

func (s *canvasService) Current(ctx context.Context, userID string) (*dto.VersionResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, ok := store.CurrentVersion()
	if !ok {
		return nil, ErrVersionNotFound
	}
	return toVersionResponse(v, true, true), nil
}

func (s *canvasService) SetCurrent(ctx context.Context, userID, id string) (*dto.CanvasStateResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !store.Exists(id) {
		return nil, ErrVersionNotFound
	}
	store.SetCurrentVersion(ctx, id)
	return toCanvasState(store.State()), nil
}

func (s *canvasService) Delete(ctx context.Context, userID, id string) (*dto.CanvasStateResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !store.Exists(id) {
		return nil, ErrVersionNotFound
	}
	store.DeleteVersion(ctx, id)
	return toCanvasState(store.State()), nil
}

func (s *canvasService) SetEditMode(ctx context.Context, userID string, enabled bool) (*dto.CanvasStateResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	store.SetEditMode(ctx, enabled)
	return toCanvasState(store.State()), nil
}

func (s *canvasService) SaveEdit(ctx context.Context, userID string, req *dto.SaveEditRequest) (*dto.SaveEditResponse, error) {
	store, err := s.store(ctx, userID)
	if err != nil {
		return nil, err
	}
	v, changed := store.SaveEdit(ctx, req.Content)
	res := &dto.SaveEditResponse{Changed: changed}
	if changed {
		res.Version = toVersionResponse(v, true, false)
	}
	return res, nil
}

func toVersionResponse(v canvas.Version, isCurrent, withBlocks bool) *dto.VersionResponse {
	res := &dto.VersionResponse{
		Id:        v.ID,
		Label:     v.Label,
		Content:   v.Content,
		Timestamp: v.Timestamp,
		IsCurrent: isCurrent,
	}
	if withBlocks {
		res.Blocks = canvas.ParseBlocks(v.Content)
	}
	return res
}

func toCanvasState(state canvas.State) *dto.CanvasStateResponse {
	versions := make([]dto.VersionResponse, 0, len(state.Versions))
	for _, v := range state.Versions {
		versions = append(versions, *toVersionResponse(v, v.ID == state.CurrentVersionID, false))
	}
	return &dto.CanvasStateResponse{
		Versions:         versions,
		CurrentVersionId: state.CurrentVersionID,
		IsEditMode:       state.IsEditMode,
	}
}
