package dto

import (
	"time"

	"compliance-assistant-be/pkg/canvas"
)

type AddVersionRequest struct {
	Content string `json:"content" validate:"required"`
	Label   string `json:"label" validate:"max=200"`
}

type SaveEditRequest struct {
	Content string `json:"content" validate:"required"`
}

type EditModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type VersionResponse struct {
	Id        string         `json:"id"`
	Label     string         `json:"label"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	IsCurrent bool           `json:"is_current"`
	Blocks    []canvas.Block `json:"blocks,omitempty"`
}

type CanvasStateResponse struct {
	Versions         []VersionResponse `json:"versions"`
	CurrentVersionId string            `json:"current_version_id,omitempty"`
	IsEditMode       bool              `json:"is_edit_mode"`
}

type SaveEditResponse struct {
	Changed bool             `json:"changed"`
	Version *VersionResponse `json:"version,omitempty"`
}
