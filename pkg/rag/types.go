// Package rag holds the shared data model of the research assistant: the
// results returned by the external RAG backend, streaming events and the
// query history records kept per session.
package rag

import (
	"time"
)

type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusNoResults ResultStatus = "no_results"
	StatusError     ResultStatus = "error"
)

// Result is the response of the simple-rag and rag-summary endpoints.
type Result struct {
	Status            ResultStatus           `json:"status"`
	Query             string                 `json:"query"`
	Summary           string                 `json:"summary"`
	SearchQueriesUsed []string               `json:"search_queries_used"`
	DocumentsFound    int                    `json:"documents_found"`
	ProcessingStages  map[string]interface{} `json:"processing_stages,omitempty"`
	DeepSearchUsed    bool                   `json:"deep_search_used,omitempty"`
}

// QueryMode picks the request-response endpoint.
type QueryMode string

const (
	ModeSimple QueryMode = "simple"
	ModeFull   QueryMode = "full"
)

func (m QueryMode) Valid() bool {
	return m == ModeSimple || m == ModeFull
}

type Stage string

const (
	StageQueryGeneration Stage = "query_generation"
	StageSearch          Stage = "search"
	StageSummarization   Stage = "summarization"
)

type EventStatus string

const (
	EventStarted    EventStatus = "started"
	EventInProgress EventStatus = "in_progress"
	EventCompleted  EventStatus = "completed"
	EventError      EventStatus = "error"
)

// StreamEvent is one frame pushed by the backend over the websocket.
type StreamEvent struct {
	Stage   Stage       `json:"stage"`
	Status  EventStatus `json:"status"`
	Message string      `json:"message"`
	Data    *StreamData `json:"data,omitempty"`
}

type StreamData struct {
	QueriesGenerated *int     `json:"queries_generated,omitempty"`
	DocumentsFound   *int     `json:"documents_found,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Queries          []string `json:"queries,omitempty"`
}

// IsTerminal reports whether the event carries the final summary of a streaming session.
func (e StreamEvent) IsTerminal() bool {
	return e.Stage == StageSummarization && e.Status == EventCompleted && e.Data != nil && e.Data.Summary != ""
}

type HistoryMode string

const (
	HistoryRequestResponse HistoryMode = "request-response"
	HistoryStreaming       HistoryMode = "streaming"
)

type HistoryEntry struct {
	ID        string      `json:"id"`
	Query     string      `json:"query"`
	Result    Result      `json:"result"`
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"user_id,omitempty"`
	Mode      HistoryMode `json:"mode"`
}

type RelatedDocument struct {
	Title          string  `json:"title"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
	Reference      string  `json:"reference"`
}

type DeepSearchRequest struct {
	Query        string `json:"query" validate:"required,min=3,max=2000"`
	UserID       string `json:"user_id,omitempty"`
	MaxDocuments int    `json:"max_documents,omitempty" validate:"omitempty,min=1,max=50"`
}

type DeepSearchResult struct {
	Status            ResultStatus      `json:"status"`
	Query             string            `json:"query"`
	EnhancedSummary   string            `json:"enhanced_summary"`
	RelatedDocuments  []RelatedDocument `json:"related_documents"`
	KeyInsights       []string          `json:"key_insights"`
	CrossReferences   []string          `json:"cross_references"`
	DocumentsSearched int               `json:"documents_searched"`
	ProcessingTime    float64           `json:"processing_time"`
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
