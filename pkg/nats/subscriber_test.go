package nats

import (
	"testing"

	"compliance-assistant-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	data := []byte(`{"type":"DOCUMENT_UPLOADED","user_id":"u1","data":{"file_name":"ra9003.pdf"},"occurred_at":"2024-05-01T10:00:00Z"}`)

	evt, err := Decode(Subject(events.TypeDocumentUploaded), data)
	require.NoError(t, err)
	assert.Equal(t, events.TypeDocumentUploaded, evt.Type)
	assert.Equal(t, "u1", evt.UserID)
	assert.Equal(t, "ra9003.pdf", evt.Data["file_name"])
}

func TestDecodeBarePayloadTakesTypeFromSubject(t *testing.T) {
	evt, err := Decode("compliance.RAG_QUERY_COMPLETED", []byte(`{"query":"what is ra 9003?"}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeQueryCompleted, evt.Type)
	assert.Equal(t, "what is ra 9003?", evt.Data["query"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode("compliance.X", []byte("not json"))
	assert.Error(t, err)
}
