package history

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(q string) rag.Result {
	return rag.Result{Status: rag.StatusCompleted, Query: q, Summary: "summary of " + q}
}

func TestAppendCapsAtLimitMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	h := New(ctx, kv.NewMemoryStore(), "user-1", 0, nil)

	for i := 0; i < 60; i++ {
		q := fmt.Sprintf("query %d", i)
		h.Append(ctx, q, result(q), "user-1", rag.HistoryRequestResponse)
	}

	entries := h.List()
	require.Len(t, entries, DefaultLimit)
	assert.Equal(t, "query 59", entries[0].Query)
	assert.Equal(t, "query 10", entries[len(entries)-1].Query)
}

func TestHistorySurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	h := New(ctx, store, "user-1", 0, nil)
	h.Append(ctx, "first question", result("first question"), "user-1", rag.HistoryRequestResponse)
	h.Append(ctx, "second question", result("second question"), "user-1", rag.HistoryStreaming)

	reloaded := New(ctx, store, "user-1", 0, nil)
	entries := reloaded.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "second question", entries[0].Query)
	assert.Equal(t, rag.HistoryStreaming, entries[0].Mode)
	assert.NotEmpty(t, entries[0].ID)

	other := New(ctx, store, "user-2", 0, nil)
	assert.Equal(t, 0, other.Len())
}

func TestClearRemovesPersistedHistory(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	h := New(ctx, store, "", 0, nil)
	h.Append(ctx, "a question", result("a question"), "", rag.HistoryRequestResponse)
	h.Clear(ctx)

	assert.Empty(t, h.List())
	_, err := store.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestCorruptRecordStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	require.NoError(t, store.Set(ctx, Key("u"), []byte("{not json")))

	h := New(ctx, store, "u", 0, nil)
	assert.Equal(t, 0, h.Len())
}

// gatedStore holds the first Set until release is closed.
type gatedStore struct {
	*kv.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: kv.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Set(ctx context.Context, key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Set(ctx, key, value)
}

func TestOverlappingAppendsPersistFullList(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	h := New(ctx, store, "user-1", 0, nil)

	firstDone := make(chan struct{})
	go func() {
		h.Append(ctx, "first question", result("first question"), "user-1", rag.HistoryRequestResponse)
		close(firstDone)
	}()
	<-store.entered

	secondDone := make(chan struct{})
	go func() {
		h.Append(ctx, "second question", result("second question"), "user-1", rag.HistoryRequestResponse)
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatal("second append finished while the first write was still pending")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	<-firstDone
	<-secondDone

	reloaded := New(ctx, store, "user-1", 0, nil)
	entries := reloaded.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "second question", entries[0].Query)
}

func TestClearWaitsForPendingAppend(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	h := New(ctx, store, "user-1", 0, nil)

	appended := make(chan struct{})
	go func() {
		h.Append(ctx, "a question", result("a question"), "user-1", rag.HistoryRequestResponse)
		close(appended)
	}()
	<-store.entered

	cleared := make(chan struct{})
	go func() {
		h.Clear(ctx)
		close(cleared)
	}()

	close(store.release)
	<-appended
	<-cleared

	assert.Equal(t, 0, h.Len())
	_, err := store.Get(ctx, Key("user-1"))
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
