package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFactory(calls *int32) WorkspaceFactory {
	return func(_ context.Context, userID string) (*Workspace, error) {
		atomic.AddInt32(calls, 1)
		return &Workspace{UserID: userID}, nil
	}
}

func TestGetBuildsOncePerUser(t *testing.T) {
	var calls int32
	repo := NewSessionRepository(countingFactory(&calls), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Get(context.Background(), "u1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, repo.Count())

	a, _ := repo.Get(context.Background(), "u1")
	b, _ := repo.Get(context.Background(), "u2")
	assert.Equal(t, "u1", a.UserID)
	assert.Equal(t, "u2", b.UserID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFactoryErrorIsNotCached(t *testing.T) {
	fail := true
	repo := NewSessionRepository(func(_ context.Context, userID string) (*Workspace, error) {
		if fail {
			return nil, errors.New("store down")
		}
		return &Workspace{UserID: userID}, nil
	}, time.Hour)

	_, err := repo.Get(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, 0, repo.Count())

	fail = false
	ws, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", ws.UserID)
}

func TestDeleteAndPeek(t *testing.T) {
	var calls int32
	repo := NewSessionRepository(countingFactory(&calls), time.Hour)

	_, ok := repo.Peek("u1")
	assert.False(t, ok)

	_, _ = repo.Get(context.Background(), "u1")
	_, ok = repo.Peek("u1")
	assert.True(t, ok)

	repo.Delete("u1")
	_, ok = repo.Peek("u1")
	assert.False(t, ok)

	_, _ = repo.Get(context.Background(), "u2")
	_, _ = repo.Get(context.Background(), "u3")
	repo.Flush()
	assert.Equal(t, 0, repo.Count())
}
