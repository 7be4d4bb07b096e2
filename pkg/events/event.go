package events

import "time"

// Event defines the contract for all domain events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RAG_QUERY_COMPLETED").
	EventType() string

	// Recipient is the user the event concerns; empty means broadcast.
	Recipient() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeQueryCompleted      = "RAG_QUERY_COMPLETED"
	TypeDeepSearchCompleted = "DEEP_SEARCH_COMPLETED"
	TypeVersionAdded        = "COMPLIANCE_VERSION_ADDED"
	TypeDocumentUploaded    = "DOCUMENT_UPLOADED"
	TypeSystemNotice        = "SYSTEM_NOTICE"
)

type BaseEvent struct {
	Type       string                 `json:"type"`
	UserID     string                 `json:"user_id,omitempty"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// ToBase flattens any Event into its wire envelope.
func ToBase(event Event) BaseEvent {
	if b, ok := event.(BaseEvent); ok {
		return b
	}
	return BaseEvent{
		Type:       event.EventType(),
		UserID:     event.Recipient(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Recipient() string {
	return e.UserID
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func QueryCompleted(userID, historyID, query, mode string, documentsFound int) BaseEvent {
	return BaseEvent{
		Type:   TypeQueryCompleted,
		UserID: userID,
		Data: map[string]interface{}{
			"history_id":      historyID,
			"query":           query,
			"mode":            mode,
			"documents_found": documentsFound,
		},
		OccurredAt: time.Now(),
	}
}

func DeepSearchCompleted(userID, query string, relatedDocuments, crossReferences int, processingTime float64) BaseEvent {
	return BaseEvent{
		Type:   TypeDeepSearchCompleted,
		UserID: userID,
		Data: map[string]interface{}{
			"query":             query,
			"related_documents": relatedDocuments,
			"cross_references":  crossReferences,
			"processing_time":   processingTime,
		},
		OccurredAt: time.Now(),
	}
}

func VersionAdded(userID, versionID, label string) BaseEvent {
	return BaseEvent{
		Type:   TypeVersionAdded,
		UserID: userID,
		Data: map[string]interface{}{
			"version_id": versionID,
			"label":      label,
		},
		OccurredAt: time.Now(),
	}
}

func DocumentUploaded(userID, documentID, fileName string, fileSize int64) BaseEvent {
	return BaseEvent{
		Type:   TypeDocumentUploaded,
		UserID: userID,
		Data: map[string]interface{}{
			"document_id": documentID,
			"file_name":   fileName,
			"file_size":   fileSize,
		},
		OccurredAt: time.Now(),
	}
}
