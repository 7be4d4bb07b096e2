package service

import (
	"context"
	"encoding/json"
	"errors"

	"compliance-assistant-be/pkg/kv"
)

// SidebarKey is the storage key of the sidebar-open flag.
const SidebarKey = "sidebar-open"

type IPreferenceService interface {
	SidebarOpen(ctx context.Context, userID string) (bool, error)
	SetSidebarOpen(ctx context.Context, userID string, open bool) error
}

type preferenceService struct {
	store kv.Store
}

func NewPreferenceService(store kv.Store) IPreferenceService {
	return &preferenceService{store: store}
}

// SidebarOpen defaults to open when nothing was saved.
func (s *preferenceService) SidebarOpen(ctx context.Context, userID string) (bool, error) {
	raw, err := s.store.Get(ctx, UserScope(userID)+SidebarKey)
	if errors.Is(err, kv.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	var open bool
	if err := json.Unmarshal(raw, &open); err != nil {
		return true, nil
	}
	return open, nil
}

func (s *preferenceService) SetSidebarOpen(ctx context.Context, userID string, open bool) error {
	raw, _ := json.Marshal(open)
	return s.store.Set(ctx, UserScope(userID)+SidebarKey, raw)
}
