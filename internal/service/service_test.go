package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/deepsearch"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuerier struct {
	calls atomic.Int32
}

func (q *stubQuerier) SimpleQuery(_ context.Context, query, _ string) (*rag.Result, error) {
	q.calls.Add(1)
	return &rag.Result{Status: rag.StatusCompleted, Query: query, Summary: "## Answer\n\nRA 9003 applies.", DocumentsFound: 2}, nil
}

func (q *stubQuerier) FullSummary(ctx context.Context, query, userID string) (*rag.Result, error) {
	return q.SimpleQuery(ctx, query, userID)
}

func (q *stubQuerier) DeepSearch(_ context.Context, req rag.DeepSearchRequest) (*rag.Result, error) {
	return &rag.Result{Status: rag.StatusCompleted, Query: req.Query, Summary: "Under RA 9003, LGUs must segregate waste."}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

func newSessions(t *testing.T, store kv.Store, q *stubQuerier, pub events.Publisher) *memory.SessionRepository {
	t.Helper()
	factory := NewWorkspaceFactory(WorkspaceDeps{
		Store:        store,
		Querier:      q,
		Publisher:    pub,
		CacheTTL:     time.Hour,
		HistoryLimit: 50,
		RetryPolicy:  orchestrator.RetryPolicy{MaxRetries: 0},
	})
	return memory.NewSessionRepository(factory, time.Hour)
}

func TestRagServiceQueryUsesPerUserCache(t *testing.T) {
	store := kv.NewMemoryStore()
	q := &stubQuerier{}
	sessions := newSessions(t, store, q, nil)
	svc := NewRagService(sessions, deepsearch.NewOrchestrator(q, nil, nil), nil, nil)
	ctx := context.Background()

	_, err := svc.Query(ctx, "u1", &dto.QueryRequest{Query: "What is RA 9003?"})
	require.NoError(t, err)
	_, err = svc.Query(ctx, "u1", &dto.QueryRequest{Query: "  what is ra 9003?  "})
	require.NoError(t, err)
	assert.Equal(t, int32(1), q.calls.Load())

	_, err = svc.Query(ctx, "u2", &dto.QueryRequest{Query: "What is RA 9003?"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), q.calls.Load())

	hist, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Total)

	require.NoError(t, svc.ClearCache(ctx, "u1"))
	_, err = svc.Query(ctx, "u1", &dto.QueryRequest{Query: "What is RA 9003?"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), q.calls.Load())

	session, err := svc.Session(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "success", session.Status)
	assert.False(t, session.Loading)
	require.NotNil(t, session.Current)
	assert.Equal(t, "What is RA 9003?", session.Current.Query)
}

func TestRagServiceStreamWithoutStreamer(t *testing.T) {
	q := &stubQuerier{}
	svc := NewRagService(newSessions(t, kv.NewMemoryStore(), q, nil), nil, nil, nil)

	_, err := svc.OpenStream(context.Background(), "u1", rag.ModeSimple)
	assert.ErrorIs(t, err, orchestrator.ErrStreamingDisabled)

	err = svc.StreamQuery(context.Background(), "u1", "what is ra 9003?")
	assert.ErrorIs(t, err, orchestrator.ErrStreamNotOpen)
}

func TestRagServiceDeepSearchCarriesUser(t *testing.T) {
	q := &stubQuerier{}
	pub := &recordingPublisher{}
	svc := NewRagService(newSessions(t, kv.NewMemoryStore(), q, nil), deepsearch.NewOrchestrator(q, pub, nil), nil, nil)

	res, err := svc.DeepSearch(context.Background(), "u1", &dto.DeepSearchRequest{Query: "waste segregation rules"})
	require.NoError(t, err)
	assert.Equal(t, []string{"RA 9003"}, res.CrossReferences)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "u1", pub.events[0].Recipient())
}

func TestCanvasServiceLifecycle(t *testing.T) {
	q := &stubQuerier{}
	pub := &recordingPublisher{}
	store := kv.NewMemoryStore()
	sessions := newSessions(t, store, q, pub)
	rags := NewRagService(sessions, nil, nil, nil)
	svc := NewCanvasService(sessions)
	ctx := context.Background()

	_, err := svc.AddFromCurrentResult(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrNoCurrentResult)

	_, err = rags.Query(ctx, "u1", &dto.QueryRequest{Query: "What is RA 9003?"})
	require.NoError(t, err)

	first, err := svc.AddFromCurrentResult(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "Version 1", first.Label)
	assert.True(t, first.IsCurrent)

	second, err := svc.AddVersion(ctx, "u1", &dto.AddVersionRequest{Content: "# Report", Label: "Final"})
	require.NoError(t, err)

	shown, err := svc.Show(ctx, "u1", first.Id)
	require.NoError(t, err)
	assert.False(t, shown.IsCurrent)
	require.NotEmpty(t, shown.Blocks)
	assert.Equal(t, "heading", string(shown.Blocks[0].Type))

	_, err = svc.Show(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrVersionNotFound)
	_, err = svc.SetCurrent(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	state, err := svc.SetCurrent(ctx, "u1", first.Id)
	require.NoError(t, err)
	assert.Equal(t, first.Id, state.CurrentVersionId)

	state, err = svc.Delete(ctx, "u1", first.Id)
	require.NoError(t, err)
	assert.Equal(t, second.Id, state.CurrentVersionId)
	assert.Len(t, state.Versions, 1)

	state, err = svc.SetEditMode(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, state.IsEditMode)

	saved, err := svc.SaveEdit(ctx, "u1", &dto.SaveEditRequest{Content: "# Report"})
	require.NoError(t, err)
	assert.False(t, saved.Changed)

	saved, err = svc.SaveEdit(ctx, "u1", &dto.SaveEditRequest{Content: "# Report v2"})
	require.NoError(t, err)
	assert.True(t, saved.Changed)

	// a new workspace for the same user restores the persisted canvas
	sessions.Delete("u1")
	current, err := svc.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "# Report v2", current.Content)

	assert.Contains(t, pub.types(), events.TypeVersionAdded)
}

func TestPreferenceServiceDefaultsOpen(t *testing.T) {
	svc := NewPreferenceService(kv.NewMemoryStore())
	ctx := context.Background()

	open, err := svc.SidebarOpen(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, svc.SetSidebarOpen(ctx, "u1", false))
	open, err = svc.SidebarOpen(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, open)

	open, _ = svc.SidebarOpen(ctx, "u2")
	assert.True(t, open)
}

type fakeSource struct {
	handler events.Handler
}

func (s *fakeSource) Subscribe(_ context.Context, _ string, handler events.Handler) error {
	s.handler = handler
	return nil
}

type fakeDelivery struct {
	got []events.BaseEvent
	err error
}

func (d *fakeDelivery) Notify(_ context.Context, evt events.BaseEvent) error {
	d.got = append(d.got, evt)
	return d.err
}

func TestNotificationServiceDeliversAndForwards(t *testing.T) {
	source := &fakeSource{}
	delivery := &fakeDelivery{}
	forwarder := &recordingPublisher{}
	svc := NewNotificationService(source, delivery, forwarder, nil)
	require.NoError(t, svc.Start(context.Background()))

	evt := events.DocumentUploaded("u1", "d1", "ra9003.pdf", 1024)
	require.NoError(t, source.handler(context.Background(), evt))

	require.Len(t, delivery.got, 1)
	assert.Equal(t, "u1", delivery.got[0].UserID)
	assert.Equal(t, []string{events.TypeDocumentUploaded}, forwarder.types())
}

func TestNotificationServiceReportsDeliveryFailure(t *testing.T) {
	source := &fakeSource{}
	delivery := &fakeDelivery{err: errors.New("hub closed")}
	svc := NewNotificationService(source, delivery, nil, nil)
	require.NoError(t, svc.Start(context.Background()))

	err := source.handler(context.Background(), events.VersionAdded("u1", "v1", "Draft"))
	assert.ErrorContains(t, err, "hub closed")
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", NormalizeMimeType("a.PDF", "application/octet-stream"))
	assert.Equal(t, "text/plain", NormalizeMimeType("notes.txt", "text/plain; charset=utf-8"))
	assert.Equal(t, "text/markdown", NormalizeMimeType("report.md", ""))
	assert.Equal(t, "image/png", NormalizeMimeType("scan.png", "image/png"))
}

func TestErrorsCarryHTTPStatus(t *testing.T) {
	var fe *fiber.Error
	require.ErrorAs(t, ErrVersionNotFound, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
	require.ErrorAs(t, ErrDocumentNotFound, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}
