// Package canvas holds the compliance canvas: an ordered list of report
// versions with a current pointer and an edit-mode flag, persisted after
// every change, plus the markdown renderer used to display a version.
package canvas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/events"

	"github.com/google/uuid"
)

// StoreName is the fixed storage name of canvas state.
const StoreName = "compliance-canvas-storage"

type Version struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
}

// State is the persisted form of a VersionStore.
type State struct {
	Versions         []Version `json:"versions"`
	CurrentVersionID string    `json:"current_version_id,omitempty"`
	IsEditMode       bool      `json:"is_edit_mode"`
}

// Persister loads and saves canvas state. Load returns nil, nil when nothing was saved yet.
type Persister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state State) error
}

type Option func(*VersionStore)

// WithPublisher announces added versions for userID on p.
func WithPublisher(p events.Publisher, userID string) Option {
	return func(s *VersionStore) {
		s.publisher = p
		s.userID = userID
	}
}

func WithLogger(l logger.ILogger) Option {
	return func(s *VersionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *VersionStore) { s.now = now }
}

// VersionStore never fails on unknown version ids: such operations are no-ops.
// Use Exists when a caller needs to tell the difference.
type VersionStore struct {
	writeMu   sync.Mutex
	mu        sync.Mutex
	state     State
	persister Persister
	publisher events.Publisher
	userID    string
	logger    logger.ILogger
	now       func() time.Time
}

func NewVersionStore(ctx context.Context, persister Persister, opts ...Option) *VersionStore {
	s := &VersionStore{
		persister: persister,
		logger:    logger.NewNopLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load(ctx)
	return s
}

func (s *VersionStore) load(ctx context.Context) {
	if s.persister == nil {
		return
	}
	state, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Warn("VersionStore", "Failed to load canvas state, starting empty", map[string]interface{}{"error": err.Error()})
		return
	}
	if state == nil {
		return
	}
	s.state = *state
	if s.state.CurrentVersionID != "" && s.indexLocked(s.state.CurrentVersionID) < 0 {
		s.state.CurrentVersionID = ""
	}
}

// AddVersion appends a version and makes it current. An empty label becomes "Version N".
func (s *VersionStore) AddVersion(ctx context.Context, content, label string) Version {
	var v Version
	s.mutate(ctx, func() bool {
		v = s.appendLocked(content, label)
		return true
	})
	s.announce(ctx, v)
	return v
}

func (s *VersionStore) SetCurrentVersion(ctx context.Context, id string) {
	s.mutate(ctx, func() bool {
		if s.indexLocked(id) < 0 || s.state.CurrentVersionID == id {
			return false
		}
		s.state.CurrentVersionID = id
		return true
	})
}

// DeleteVersion removes a version. Deleting the current one repoints to the
// last remaining version, or to none.
func (s *VersionStore) DeleteVersion(ctx context.Context, id string) {
	s.mutate(ctx, func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		s.state.Versions = append(s.state.Versions[:i:i], s.state.Versions[i+1:]...)
		if s.state.CurrentVersionID == id {
			s.state.CurrentVersionID = ""
			if n := len(s.state.Versions); n > 0 {
				s.state.CurrentVersionID = s.state.Versions[n-1].ID
			}
		}
		return true
	})
}

func (s *VersionStore) CurrentVersion() (Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(s.state.CurrentVersionID)
	if i < 0 {
		return Version{}, false
	}
	return s.state.Versions[i], true
}

func (s *VersionStore) Version(id string) (Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Version{}, false
	}
	return s.state.Versions[i], true
}

// Versions returns the versions in insertion order.
func (s *VersionStore) Versions() []Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Version{}, s.state.Versions...)
}

func (s *VersionStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

func (s *VersionStore) SetEditMode(ctx context.Context, on bool) {
	s.mutate(ctx, func() bool {
		if s.state.IsEditMode == on {
			return false
		}
		s.state.IsEditMode = on
		return true
	})
}

func (s *VersionStore) IsEditMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsEditMode
}

// SaveEdit leaves edit mode and, when content differs from the current
// version, records it as a new version.
func (s *VersionStore) SaveEdit(ctx context.Context, content string) (Version, bool) {
	var (
		v     Version
		added bool
	)
	s.mutate(ctx, func() bool {
		changed := s.state.IsEditMode
		s.state.IsEditMode = false
		if i := s.indexLocked(s.state.CurrentVersionID); i >= 0 && s.state.Versions[i].Content == content {
			v = s.state.Versions[i]
			return changed
		}
		v = s.appendLocked(content, "")
		added = true
		return true
	})
	if added {
		s.announce(ctx, v)
	}
	return v, added
}

func (s *VersionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *VersionStore) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, v := range s.state.Versions {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (s *VersionStore) copyLocked() State {
	st := s.state
	st.Versions = append([]Version{}, s.state.Versions...)
	return st
}

func (s *VersionStore) appendLocked(content, label string) Version {
	if label == "" {
		label = fmt.Sprintf("Version %d", len(s.state.Versions)+1)
	}
	v := Version{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: s.now(),
		Label:     label,
	}
	s.state.Versions = append(s.state.Versions, v)
	s.state.CurrentVersionID = v.ID
	return v
}

// mutate runs fn under mu and saves the resulting state when fn reports a
// change. writeMu spans the save so snapshots reach the persister in the
// order the mutations happened. Readers only take mu.
func (s *VersionStore) mutate(ctx context.Context, fn func() bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	changed := fn()
	snapshot := s.copyLocked()
	s.mu.Unlock()

	if changed {
		s.persist(ctx, snapshot)
	}
}

func (s *VersionStore) announce(ctx context.Context, v Version) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.VersionAdded(s.userID, v.ID, v.Label)); err != nil {
		s.logger.Warn("VersionStore", "Failed to publish event", map[string]interface{}{"error": err.Error()})
	}
}

func (s *VersionStore) persist(ctx context.Context, state State) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(ctx, state); err != nil {
		s.logger.Warn("VersionStore", "Failed to persist canvas state", map[string]interface{}{"error": err.Error()})
	}
}
