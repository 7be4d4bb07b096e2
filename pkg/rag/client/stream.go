package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/rag"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrStreamClosed = errors.New("stream is not open")

type EventHandler func(rag.StreamEvent)
type ErrorHandler func(error)

// Stream is a live websocket session with the backend. Events are delivered
// from a single reader goroutine in the order they arrive.
type Stream struct {
	conn    *websocket.Conn
	onEvent EventHandler
	onError ErrorHandler
	logger  logger.ILogger

	writeMu   sync.Mutex
	open      atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// StreamPath returns the websocket endpoint for a query mode.
func StreamPath(mode rag.QueryMode) string {
	if mode == rag.ModeFull {
		return PathWSSummary
	}
	return PathWSSimple
}

// StreamQuery opens a websocket to the backend and, when query is not empty,
// sends it once the connection is established.
func (c *Client) StreamQuery(ctx context.Context, mode rag.QueryMode, query, userID string, onEvent EventHandler, onError ErrorHandler) (*Stream, error) {
	url := toWebsocketURL(c.baseURL) + StreamPath(mode)

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "stream_query", Err: err}
	}

	s := &Stream{
		conn:    conn,
		onEvent: onEvent,
		onError: onError,
		logger:  c.logger,
		done:    make(chan struct{}),
	}
	s.open.Store(true)
	go s.readLoop()

	c.logger.Info("RAGClient", "Stream opened", map[string]interface{}{"url": url, "mode": mode})

	if query != "" {
		if err := s.Send(query, userID); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Send issues an additional query over the open connection.
func (s *Stream) Send(query, userID string) error {
	if !s.IsOpen() {
		return ErrStreamClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(queryRequest{Query: query, UserID: userID}); err != nil {
		return &TransportError{Op: "stream_send", Err: err}
	}
	return nil
}

func (s *Stream) IsOpen() bool {
	return s.open.Load()
}

// Done is closed once the reader goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.open.Store(false)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.done)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// a read error after Close() is ours, not a transport failure
			wasOpen := s.open.Swap(false)
			s.closeOnce.Do(func() { _ = s.conn.Close() })
			if wasOpen && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("RAGClient", "Stream transport error", map[string]interface{}{"error": err.Error()})
				if s.onError != nil {
					s.onError(&TransportError{Op: "stream_read", Err: err})
				}
			}
			return
		}

		var ev rag.StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("RAGClient", "Dropping malformed stream frame", map[string]interface{}{"error": err.Error()})
			continue
		}
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	}
}

func toWebsocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
