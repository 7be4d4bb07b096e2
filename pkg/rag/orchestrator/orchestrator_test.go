package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/cache"
	"compliance-assistant-be/pkg/rag/client"
	"compliance-assistant-be/pkg/rag/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	calls  atomic.Int32
	answer func(query string) (*rag.Result, error)
}

func (f *fakeQuerier) SimpleQuery(_ context.Context, query, _ string) (*rag.Result, error) {
	f.calls.Add(1)
	return f.answer(query)
}

func (f *fakeQuerier) FullSummary(_ context.Context, query, _ string) (*rag.Result, error) {
	f.calls.Add(1)
	return f.answer(query)
}

func answered(query string) (*rag.Result, error) {
	return &rag.Result{
		Status:            rag.StatusCompleted,
		Query:             query,
		Summary:           "summary for " + query,
		SearchQueriesUsed: []string{query},
		DocumentsFound:    4,
	}, nil
}

type fakeStream struct {
	mu    sync.Mutex
	open  bool
	sent  []string
	close int
}

func (s *fakeStream) Send(query, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, query)
	return nil
}

func (s *fakeStream) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.close++
	return nil
}

type fakeStreamer struct {
	stream  *fakeStream
	onEvent client.EventHandler
	onError client.ErrorHandler
}

func (f *fakeStreamer) OpenStream(_ context.Context, _ rag.QueryMode, onEvent client.EventHandler, onError client.ErrorHandler) (StreamHandle, error) {
	f.stream = &fakeStream{open: true}
	f.onEvent = onEvent
	f.onError = onError
	return f.stream, nil
}

type fixture struct {
	orch    *Orchestrator
	querier *fakeQuerier
	store   kv.Store
}

func newFixture(t *testing.T, answer func(string) (*rag.Result, error), streamer Streamer) fixture {
	t.Helper()
	ctx := context.Background()
	store := kv.NewMemoryStore()
	q := &fakeQuerier{answer: answer}
	o := New(q, streamer,
		cache.New(store, nil),
		history.New(ctx, store, "user-1", 0, nil),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}),
	)
	return fixture{orch: o, querier: q, store: store}
}

func TestPolicyDelayDoubles(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, time.Second, p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
}

func TestPolicyRetryable(t *testing.T) {
	p := DefaultRetryPolicy()
	transport := &client.TransportError{Op: "simple_query", Err: errors.New("connection refused")}
	timeout := &client.TimeoutError{Op: "full_summary", Timeout: time.Second}
	backend := &client.BackendError{StatusCode: 500, Detail: "boom"}

	assert.True(t, p.Retryable(rag.ModeSimple, transport))
	assert.True(t, p.Retryable(rag.ModeFull, transport))
	assert.True(t, p.Retryable(rag.ModeSimple, timeout))
	assert.False(t, p.Retryable(rag.ModeFull, timeout))
	assert.False(t, p.Retryable(rag.ModeSimple, backend))
	assert.False(t, p.Retryable(rag.ModeSimple, &rag.ValidationError{Message: "short"}))
}

func TestTransportErrorIsRetriedThreeTimes(t *testing.T) {
	f := newFixture(t, func(string) (*rag.Result, error) {
		return nil, &client.TransportError{Op: "simple_query", Err: errors.New("connection refused")}
	}, nil)

	_, err := f.orch.Submit(context.Background(), "What is RA 9003?", "user-1", rag.ModeSimple)

	require.Error(t, err)
	assert.True(t, client.IsTransport(err))
	assert.Equal(t, int32(4), f.querier.calls.Load())

	snap := f.orch.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.False(t, snap.Loading)
	assert.Contains(t, snap.Error, "failed to fetch")
	assert.Empty(t, snap.History)
}

func TestBackendErrorIsNotRetried(t *testing.T) {
	f := newFixture(t, func(string) (*rag.Result, error) {
		return nil, &client.BackendError{StatusCode: 422, Detail: "X"}
	}, nil)

	_, err := f.orch.Submit(context.Background(), "What is RA 9003?", "user-1", rag.ModeFull)

	require.Error(t, err)
	assert.Equal(t, "X", err.Error())
	assert.Equal(t, int32(1), f.querier.calls.Load())
	assert.Equal(t, "X", f.orch.Snapshot().Error)
}

func TestTimeoutRetriedOnlyForSimpleMode(t *testing.T) {
	timeout := func(string) (*rag.Result, error) {
		return nil, &client.TimeoutError{Op: "query", Timeout: time.Second}
	}

	full := newFixture(t, timeout, nil)
	_, err := full.orch.Submit(context.Background(), "long running summary", "user-1", rag.ModeFull)
	require.Error(t, err)
	assert.Equal(t, int32(1), full.querier.calls.Load())

	simple := newFixture(t, timeout, nil)
	_, err = simple.orch.Submit(context.Background(), "quick question", "user-1", rag.ModeSimple)
	require.Error(t, err)
	assert.Equal(t, int32(4), simple.querier.calls.Load())
}

func TestRetryRecoversAfterTransientFailure(t *testing.T) {
	var attempts atomic.Int32
	f := newFixture(t, func(q string) (*rag.Result, error) {
		if attempts.Add(1) < 3 {
			return nil, &client.TransportError{Op: "simple_query", Err: errors.New("reset by peer")}
		}
		return answered(q)
	}, nil)

	res, err := f.orch.Submit(context.Background(), "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)
	assert.Equal(t, "summary for What is RA 9003?", res.Summary)
	assert.Equal(t, int32(3), f.querier.calls.Load())
	assert.Equal(t, StatusSuccess, f.orch.Snapshot().Status)
}

func TestValidationRejectsBeforeNetwork(t *testing.T) {
	f := newFixture(t, answered, nil)

	_, err := f.orch.Submit(context.Background(), "  ab ", "user-1", rag.ModeSimple)
	var verr *rag.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, int32(0), f.querier.calls.Load())
	assert.Equal(t, StatusIdle, f.orch.Snapshot().Status)

	_, err = f.orch.Submit(context.Background(), "valid query", "user-1", rag.QueryMode("turbo"))
	require.ErrorAs(t, err, &verr)
}

func TestFreshQueryIsCachedAndRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, answered, nil)

	_, err := f.orch.Submit(ctx, "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.querier.calls.Load())
	_, err = f.store.Get(ctx, cache.Key("what is ra 9003?"))
	assert.NoError(t, err)
	assert.Len(t, f.orch.History(), 1)
}

func TestRepeatedQueryServedFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, answered, nil)

	first, err := f.orch.Submit(ctx, "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)
	second, err := f.orch.Submit(ctx, "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.querier.calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, StatusSuccess, f.orch.Snapshot().Status)
}

func TestStaleCompletionDoesNotOverwriteNewerResult(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})

	f := newFixture(t, func(q string) (*rag.Result, error) {
		if q == "slow question" {
			close(started)
			<-release
		}
		return answered(q)
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.orch.Submit(ctx, "slow question", "user-1", rag.ModeSimple)
	}()
	<-started

	_, err := f.orch.Submit(ctx, "fast question", "user-1", rag.ModeSimple)
	require.NoError(t, err)
	assert.Equal(t, "fast question", f.orch.Snapshot().Current.Query)

	close(release)
	<-done

	snap := f.orch.Snapshot()
	assert.Equal(t, "fast question", snap.Current.Query)
	assert.Equal(t, StatusSuccess, snap.Status)
	require.Len(t, snap.History, 2)
	assert.Equal(t, "slow question", snap.History[0].Query)
	assert.Equal(t, "fast question", snap.History[1].Query)
}

func TestStreamingTerminalEventCompletesQuery(t *testing.T) {
	streamer := &fakeStreamer{}
	f := newFixture(t, answered, streamer)

	require.NoError(t, f.orch.OpenStream(context.Background(), rag.ModeSimple))
	require.NoError(t, f.orch.SendStreamingQuery("What is RA 9003?", "user-1"))
	assert.True(t, f.orch.Snapshot().Loading)

	var relayed []rag.StreamEvent
	stop := f.orch.Listen(func(ev rag.StreamEvent) { relayed = append(relayed, ev) })
	defer stop()

	streamer.onEvent(rag.StreamEvent{Stage: rag.StageSearch, Status: rag.EventStarted})
	streamer.onEvent(rag.StreamEvent{
		Stage:  rag.StageSummarization,
		Status: rag.EventCompleted,
		Data:   &rag.StreamData{Summary: "S"},
	})

	snap := f.orch.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, "S", snap.Current.Summary)
	assert.False(t, snap.Loading)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Len(t, snap.StreamEvents, 2)
	assert.Len(t, relayed, 2)
	require.Len(t, snap.History, 1)
	assert.Equal(t, rag.HistoryStreaming, snap.History[0].Mode)
	assert.Equal(t, []string{"What is RA 9003?"}, streamer.stream.sent)
	assert.Equal(t, int32(0), f.querier.calls.Load())
}

func TestSendStreamingQueryRequiresOpenStream(t *testing.T) {
	streamer := &fakeStreamer{}
	f := newFixture(t, answered, streamer)

	assert.ErrorIs(t, f.orch.SendStreamingQuery("What is RA 9003?", "user-1"), ErrStreamNotOpen)

	require.NoError(t, f.orch.OpenStream(context.Background(), rag.ModeFull))
	require.NoError(t, f.orch.CloseStream())
	assert.Equal(t, 1, streamer.stream.close)
	assert.ErrorIs(t, f.orch.SendStreamingQuery("What is RA 9003?", "user-1"), ErrStreamNotOpen)
}

func TestNewQueryClearsPreviousStreamEvents(t *testing.T) {
	streamer := &fakeStreamer{}
	f := newFixture(t, answered, streamer)
	require.NoError(t, f.orch.OpenStream(context.Background(), rag.ModeSimple))

	require.NoError(t, f.orch.SendStreamingQuery("first question", "user-1"))
	streamer.onEvent(rag.StreamEvent{Stage: rag.StageQueryGeneration, Status: rag.EventStarted})
	require.Len(t, f.orch.Snapshot().StreamEvents, 1)

	require.NoError(t, f.orch.SendStreamingQuery("second question", "user-1"))
	assert.Empty(t, f.orch.Snapshot().StreamEvents)
}

func TestStreamErrorSetsErrorStatus(t *testing.T) {
	streamer := &fakeStreamer{}
	f := newFixture(t, answered, streamer)
	require.NoError(t, f.orch.OpenStream(context.Background(), rag.ModeSimple))
	require.NoError(t, f.orch.SendStreamingQuery("What is RA 9003?", "user-1"))

	streamer.onError(&client.TransportError{Op: "stream_read", Err: errors.New("unexpected EOF")})

	snap := f.orch.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Error, "unexpected EOF")
}

func TestClearHistoryAndCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, answered, nil)
	_, err := f.orch.Submit(ctx, "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)

	f.orch.ClearHistory(ctx)
	f.orch.ClearCache(ctx)

	assert.Empty(t, f.orch.History())
	_, err = f.orch.Submit(ctx, "What is RA 9003?", "user-1", rag.ModeSimple)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.querier.calls.Load())
}

// slowStreamer holds every dial until release is closed.
type slowStreamer struct {
	mu      sync.Mutex
	opened  []*fakeStream
	release chan struct{}
}

func (s *slowStreamer) OpenStream(_ context.Context, _ rag.QueryMode, _ client.EventHandler, _ client.ErrorHandler) (StreamHandle, error) {
	<-s.release
	st := &fakeStream{open: true}
	s.mu.Lock()
	s.opened = append(s.opened, st)
	s.mu.Unlock()
	return st, nil
}

func TestConcurrentOpenStreamDialsOnce(t *testing.T) {
	streamer := &slowStreamer{release: make(chan struct{})}
	f := newFixture(t, answered, streamer)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.orch.OpenStream(context.Background(), rag.ModeSimple))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(streamer.release)
	wg.Wait()

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	require.Len(t, streamer.opened, 1)
	assert.True(t, f.orch.Snapshot().StreamOpen)

	require.NoError(t, f.orch.CloseStream())
	assert.Equal(t, 1, streamer.opened[0].close)
}

func TestConcurrentOpenStreamModeSwitchClosesReplaced(t *testing.T) {
	streamer := &slowStreamer{release: make(chan struct{})}
	close(streamer.release)
	f := newFixture(t, answered, streamer)

	var wg sync.WaitGroup
	for _, mode := range []rag.QueryMode{rag.ModeSimple, rag.ModeFull} {
		wg.Add(1)
		go func(m rag.QueryMode) {
			defer wg.Done()
			assert.NoError(t, f.orch.OpenStream(context.Background(), m))
		}(mode)
	}
	wg.Wait()

	streamer.mu.Lock()
	defer streamer.mu.Unlock()
	require.Len(t, streamer.opened, 2)
	open := 0
	for _, st := range streamer.opened {
		if st.IsOpen() {
			open++
		}
	}
	assert.Equal(t, 1, open)
}
