package dto

type SidebarPreference struct {
	Open *bool `json:"open" validate:"required"`
}
