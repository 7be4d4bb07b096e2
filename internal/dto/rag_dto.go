package dto

import (
	"compliance-assistant-be/pkg/rag"
)

type QueryRequest struct {
	Query string `json:"query" validate:"required,min=3,max=2000"`
	Mode  string `json:"mode" validate:"omitempty,oneof=simple full"`
}

type StreamQueryRequest struct {
	Query string `json:"query" validate:"required,min=3,max=2000"`
}

type DeepSearchRequest struct {
	Query        string `json:"query" validate:"required,min=3,max=2000"`
	MaxDocuments int    `json:"max_documents" validate:"omitempty,min=1,max=50"`
}

// SessionResponse is the observable state of a user's query session.
type SessionResponse struct {
	Status       string             `json:"status"`
	Loading      bool               `json:"loading"`
	Error        string             `json:"error,omitempty"`
	Current      *rag.Result        `json:"current,omitempty"`
	StreamOpen   bool               `json:"stream_open"`
	StreamEvents []rag.StreamEvent  `json:"stream_events"`
	History      []rag.HistoryEntry `json:"history"`
}

type HistoryResponse struct {
	Entries []rag.HistoryEntry `json:"entries"`
	Total   int                `json:"total"`
}
