// Package history keeps the capped, most-recent-first list of answered
// queries for one user and persists it as JSON in a kv.Store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"

	"github.com/google/uuid"
)

const (
	StorageKey   = "rag_query_history"
	DefaultLimit = 50
)

// Store serializes writers on writeMu for the whole read-modify-persist
// sequence, so the stored record always matches the latest in-memory list.
// Readers only take mu.
type Store struct {
	writeMu sync.Mutex
	mu      sync.Mutex
	kv      kv.Store
	key     string
	limit   int
	entries []rag.HistoryEntry
	now     func() time.Time
	logger  logger.ILogger
}

// Key returns the storage key of a user's history. Anonymous sessions share the bare key.
func Key(userID string) string {
	if userID == "" {
		return StorageKey
	}
	return StorageKey + ":" + userID
}

// New loads the persisted history of userID. A missing or unreadable record
// starts an empty history.
func New(ctx context.Context, store kv.Store, userID string, limit int, log logger.ILogger) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Store{
		kv:     store,
		key:    Key(userID),
		limit:  limit,
		now:    time.Now,
		logger: log,
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("QueryHistory", "Failed to load history", map[string]interface{}{"key": s.key, "error": err.Error()})
		}
		return
	}
	var entries []rag.HistoryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("QueryHistory", "Discarding unreadable history", map[string]interface{}{"key": s.key, "error": err.Error()})
		return
	}
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	s.entries = entries
}

// Append records a completed query at the head of the list, dropping the
// oldest entries beyond the limit, and returns the stored entry.
func (s *Store) Append(ctx context.Context, query string, result rag.Result, userID string, mode rag.HistoryMode) rag.HistoryEntry {
	entry := rag.HistoryEntry{
		ID:        uuid.NewString(),
		Query:     query,
		Result:    result,
		Timestamp: s.now(),
		UserID:    userID,
		Mode:      mode,
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	entries := make([]rag.HistoryEntry, 0, s.limit)
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	s.entries = entries
	snapshot := s.copyLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return entry
}

// List returns a copy of the entries, most recent first.
func (s *Store) List() []rag.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		s.logger.Warn("QueryHistory", "Failed to clear persisted history", map[string]interface{}{"key": s.key, "error": err.Error()})
	}
}

func (s *Store) copyLocked() []rag.HistoryEntry {
	out := make([]rag.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) persist(ctx context.Context, entries []rag.HistoryEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn("QueryHistory", "Failed to encode history", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.logger.Warn("QueryHistory", "Failed to persist history", map[string]interface{}{"key": s.key, "error": err.Error()})
	}
}
