package memory

import (
	"context"
	"sync"
	"time"

	"compliance-assistant-be/pkg/canvas"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultWorkspaceTTL    = time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

// Workspace is everything a signed-in user works with between requests: the
// query session and the compliance canvas.
type Workspace struct {
	UserID       string
	Orchestrator *orchestrator.Orchestrator
	Canvas       *canvas.VersionStore
}

// WorkspaceFactory builds a fresh workspace, restoring persisted state.
type WorkspaceFactory func(ctx context.Context, userID string) (*Workspace, error)

// SessionRepository keeps workspaces in memory. Each access slides the
// expiry; evicted workspaces have their backend stream closed.
type SessionRepository struct {
	cache   *cache.Cache
	factory WorkspaceFactory
	ttl     time.Duration
	mu      sync.Mutex
}

func NewSessionRepository(factory WorkspaceFactory, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultWorkspaceTTL
	}
	c := cache.New(ttl, DefaultCleanupInterval)
	c.OnEvicted(func(_ string, v interface{}) {
		if ws, ok := v.(*Workspace); ok && ws.Orchestrator != nil {
			_ = ws.Orchestrator.CloseStream()
		}
	})
	return &SessionRepository{
		cache:   c,
		factory: factory,
		ttl:     ttl,
	}
}

// Get returns the user's workspace, building it on first use.
func (r *SessionRepository) Get(ctx context.Context, userID string) (*Workspace, error) {
	if ws, found := r.lookup(userID); found {
		return ws, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another request may have built it while we waited
	if ws, found := r.lookup(userID); found {
		return ws, nil
	}

	ws, err := r.factory(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(userID, ws, cache.DefaultExpiration)
	return ws, nil
}

// Peek returns the workspace without creating or touching it.
func (r *SessionRepository) Peek(userID string) (*Workspace, bool) {
	if x, found := r.cache.Get(userID); found {
		return x.(*Workspace), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(userID string) {
	r.cache.Delete(userID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// Flush evicts every workspace, closing their streams.
func (r *SessionRepository) Flush() {
	for userID := range r.cache.Items() {
		r.cache.Delete(userID)
	}
}

func (r *SessionRepository) lookup(userID string) (*Workspace, bool) {
	x, found := r.cache.Get(userID)
	if !found {
		return nil, false
	}
	ws := x.(*Workspace)
	r.cache.Set(userID, ws, cache.DefaultExpiration)
	return ws, true
}
