// Package orchestrator runs user queries against the research backend: cache
// lookup, the call itself with retry and backoff, history recording and the
// websocket streaming session of one workspace.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"compliance-assistant-be/internal/metrics"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/cache"
	"compliance-assistant-be/pkg/rag/client"
	"compliance-assistant-be/pkg/rag/history"

	"github.com/avast/retry-go/v4"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var (
	ErrStreamNotOpen     = errors.New("streaming connection is not open")
	ErrStreamingDisabled = errors.New("streaming is not configured")
)

const errUnsupportedModeText = "Mode must be either simple or full"

// Querier is the request-response side of the backend.
type Querier interface {
	SimpleQuery(ctx context.Context, query, userID string) (*rag.Result, error)
	FullSummary(ctx context.Context, query, userID string) (*rag.Result, error)
}

type StreamHandle interface {
	Send(query, userID string) error
	IsOpen() bool
	Close() error
}

// Streamer opens websocket sessions with the backend.
type Streamer interface {
	OpenStream(ctx context.Context, mode rag.QueryMode, onEvent client.EventHandler, onError client.ErrorHandler) (StreamHandle, error)
}

// ClientStreamer adapts *client.Client to Streamer.
type ClientStreamer struct {
	Client *client.Client
}

func (s ClientStreamer) OpenStream(ctx context.Context, mode rag.QueryMode, onEvent client.EventHandler, onError client.ErrorHandler) (StreamHandle, error) {
	st, err := s.Client.StreamQuery(ctx, mode, "", "", onEvent, onError)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Snapshot is the externally visible state of an orchestrator.
type Snapshot struct {
	Status       Status             `json:"status"`
	Loading      bool               `json:"loading"`
	Error        string             `json:"error,omitempty"`
	Current      *rag.Result        `json:"current_response,omitempty"`
	StreamOpen   bool               `json:"stream_open"`
	StreamEvents []rag.StreamEvent  `json:"stream_events"`
	History      []rag.HistoryEntry `json:"query_history"`
}

type Option func(*Orchestrator)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithPublisher(p events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

func WithLogger(l logger.ILogger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

type Orchestrator struct {
	querier   Querier
	streamer  Streamer
	cache     *cache.ResponseCache
	history   *history.Store
	publisher events.Publisher
	policy    RetryPolicy
	logger    logger.ILogger

	mu      sync.Mutex
	status  Status
	current *rag.Result
	errMsg  string

	// seq numbers submissions; applied is the highest sequence whose
	// completion has been reflected in current/errMsg.
	seq     uint64
	applied uint64

	// openMu serializes OpenStream and CloseStream across the dial so a
	// session has at most one live stream.
	openMu       sync.Mutex
	stream       StreamHandle
	streamMode   rag.QueryMode
	streamSeq    uint64
	streamQuery  string
	streamUserID string
	streamEvents []rag.StreamEvent

	listeners  map[int]func(rag.StreamEvent)
	nextListen int
}

func New(querier Querier, streamer Streamer, c *cache.ResponseCache, h *history.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		querier:   querier,
		streamer:  streamer,
		cache:     c,
		history:   h,
		policy:    DefaultRetryPolicy(),
		logger:    logger.NewNopLogger(),
		status:    StatusIdle,
		listeners: make(map[int]func(rag.StreamEvent)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit answers query in the given mode. A cache hit completes without any
// network call; otherwise the backend is called under the retry policy and a
// successful result is cached and appended to history.
func (o *Orchestrator) Submit(ctx context.Context, query, userID string, mode rag.QueryMode) (*rag.Result, error) {
	if !mode.Valid() {
		return nil, &rag.ValidationError{Field: "mode", Message: errUnsupportedModeText}
	}
	q, err := rag.ValidateQuery(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	seq := o.begin()

	if cached, ok := o.cache.Get(ctx, q); ok {
		o.complete(seq, cached)
		metrics.ObserveQuery(string(mode), "cache_hit", start)
		return cached, nil
	}

	result, err := o.call(ctx, q, userID, mode)
	if err != nil {
		o.fail(seq, err)
		metrics.ObserveQuery(string(mode), "error", start)
		o.logger.Warn("QueryOrchestrator", "Query failed", map[string]interface{}{"mode": mode, "error": err.Error()})
		return nil, err
	}

	o.cache.Set(ctx, q, result)
	entry := o.history.Append(ctx, q, *result, userID, rag.HistoryRequestResponse)
	o.complete(seq, result)
	metrics.ObserveQuery(string(mode), "success", start)

	o.publish(ctx, events.QueryCompleted(userID, entry.ID, q, string(mode), result.DocumentsFound))
	return result, nil
}

func (o *Orchestrator) call(ctx context.Context, query, userID string, mode rag.QueryMode) (*rag.Result, error) {
	var (
		result  *rag.Result
		attempt int
	)

	err := retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				metrics.ObserveRetry(string(mode))
			}
			var err error
			if mode == rag.ModeFull {
				result, err = o.querier.FullSummary(ctx, query, userID)
			} else {
				result, err = o.querier.SimpleQuery(ctx, query, userID)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(o.policy.MaxRetries)+1),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return o.policy.Delay(int(n))
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return o.policy.Retryable(mode, err)
		}),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Debug("QueryOrchestrator", "Attempt failed", map[string]interface{}{"attempt": n + 1, "mode": mode, "error": err.Error()})
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) begin() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.status = StatusLoading
	o.errMsg = ""
	return o.seq
}

// complete applies a finished submission unless a newer one has already
// completed. The status settles only when the newest submission is done.
func (o *Orchestrator) complete(seq uint64, result *rag.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq < o.applied {
		return
	}
	o.applied = seq
	o.current = result
	o.errMsg = ""
	if seq == o.seq {
		o.status = StatusSuccess
	}
}

func (o *Orchestrator) fail(seq uint64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq < o.applied {
		return
	}
	o.applied = seq
	o.errMsg = err.Error()
	if seq == o.seq {
		o.status = StatusError
	}
}

// OpenStream connects a streaming session in mode. An open session in the
// same mode is reused; one in another mode is replaced.
func (o *Orchestrator) OpenStream(ctx context.Context, mode rag.QueryMode) error {
	if o.streamer == nil {
		return ErrStreamingDisabled
	}
	if !mode.Valid() {
		return &rag.ValidationError{Field: "mode", Message: errUnsupportedModeText}
	}

	o.openMu.Lock()
	defer o.openMu.Unlock()

	o.mu.Lock()
	old := o.stream
	if old != nil && old.IsOpen() && o.streamMode == mode {
		o.mu.Unlock()
		return nil
	}
	o.stream = nil
	o.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	h, err := o.streamer.OpenStream(ctx, mode, o.HandleStreamEvent, o.HandleStreamError)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.stream = h
	o.streamMode = mode
	o.mu.Unlock()
	return nil
}

// SendStreamingQuery sends query over the open session, clearing the events
// of the previous one.
func (o *Orchestrator) SendStreamingQuery(query, userID string) error {
	q, err := rag.ValidateQuery(query)
	if err != nil {
		return err
	}

	o.mu.Lock()
	h := o.stream
	if h == nil || !h.IsOpen() {
		o.mu.Unlock()
		return ErrStreamNotOpen
	}
	o.seq++
	seq := o.seq
	o.streamSeq = seq
	o.streamQuery = q
	o.streamUserID = userID
	o.streamEvents = nil
	o.status = StatusLoading
	o.errMsg = ""
	o.mu.Unlock()

	if err := h.Send(q, userID); err != nil {
		o.fail(seq, err)
		return err
	}
	return nil
}

// HandleStreamEvent records one backend event. A completed summarization
// stage carrying a summary ends the session's query.
func (o *Orchestrator) HandleStreamEvent(ev rag.StreamEvent) {
	metrics.ObserveStreamEvent(string(ev.Stage), string(ev.Status))

	o.mu.Lock()
	o.streamEvents = append(o.streamEvents, ev)
	seq, query, userID, mode := o.streamSeq, o.streamQuery, o.streamUserID, o.streamMode
	listeners := make([]func(rag.StreamEvent), 0, len(o.listeners))
	for _, fn := range o.listeners {
		listeners = append(listeners, fn)
	}
	if ev.Status == rag.EventError && seq >= o.applied {
		o.applied = seq
		o.errMsg = ev.Message
		if o.errMsg == "" {
			o.errMsg = "Streaming query failed"
		}
		if seq == o.seq {
			o.status = StatusError
		}
	}
	o.mu.Unlock()

	if ev.IsTerminal() {
		result := resultFromEvent(query, ev)
		ctx := context.Background()
		entry := o.history.Append(ctx, query, *result, userID, rag.HistoryStreaming)
		o.complete(seq, result)
		o.publish(ctx, events.QueryCompleted(userID, entry.ID, query, string(mode), result.DocumentsFound))
	}

	for _, fn := range listeners {
		fn(ev)
	}
}

// HandleStreamError marks the current streaming query as failed.
func (o *Orchestrator) HandleStreamError(err error) {
	o.mu.Lock()
	seq := o.streamSeq
	o.mu.Unlock()

	o.logger.Warn("QueryOrchestrator", "Stream error", map[string]interface{}{"error": err.Error()})
	o.fail(seq, err)
}

func (o *Orchestrator) CloseStream() error {
	o.openMu.Lock()
	defer o.openMu.Unlock()

	o.mu.Lock()
	h := o.stream
	o.stream = nil
	o.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

// Listen registers fn for every stream event; the returned func unregisters it.
func (o *Orchestrator) Listen(fn func(rag.StreamEvent)) func() {
	o.mu.Lock()
	id := o.nextListen
	o.nextListen++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	snap := Snapshot{
		Status:       o.status,
		Loading:      o.status == StatusLoading,
		Error:        o.errMsg,
		Current:      o.current,
		StreamOpen:   o.stream != nil && o.stream.IsOpen(),
		StreamEvents: append([]rag.StreamEvent(nil), o.streamEvents...),
	}
	o.mu.Unlock()

	snap.History = o.history.List()
	if snap.StreamEvents == nil {
		snap.StreamEvents = []rag.StreamEvent{}
	}
	return snap
}

func (o *Orchestrator) History() []rag.HistoryEntry {
	return o.history.List()
}

func (o *Orchestrator) ClearHistory(ctx context.Context) {
	o.history.Clear(ctx)
}

func (o *Orchestrator) ClearCache(ctx context.Context) {
	o.cache.Clear(ctx)
}

func (o *Orchestrator) publish(ctx context.Context, evt events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, evt); err != nil {
		o.logger.Warn("QueryOrchestrator", "Failed to publish event", map[string]interface{}{"type": evt.EventType(), "error": err.Error()})
	}
}

func resultFromEvent(query string, ev rag.StreamEvent) *rag.Result {
	res := &rag.Result{
		Status:            rag.StatusCompleted,
		Query:             query,
		Summary:           ev.Data.Summary,
		SearchQueriesUsed: ev.Data.Queries,
	}
	if ev.Data.DocumentsFound != nil {
		res.DocumentsFound = *ev.Data.DocumentsFound
	}
	if res.SearchQueriesUsed == nil {
		res.SearchQueriesUsed = []string{}
	}
	return res
}
