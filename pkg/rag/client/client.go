// Package client talks to the external research (RAG) backend over HTTP and
// websockets. Every call carries its own client-side deadline; the caller's
// context is the abort handle.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/rag"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	PathSimpleRAG  = "/api/research/simple-rag"
	PathRAGSummary = "/api/research/rag-summary"
	PathHealth     = "/api/research/health"
	PathWSSimple   = "/api/research/ws/simple-rag"
	PathWSSummary  = "/api/research/ws/rag-summary"
)

const (
	DefaultSimpleTimeout     = 30 * time.Second
	DefaultSummaryTimeout    = 300 * time.Second
	DefaultDeepSearchTimeout = 180 * time.Second
	DefaultHealthTimeout     = 10 * time.Second
)

type Options struct {
	BaseURL           string
	SimpleTimeout     time.Duration
	SummaryTimeout    time.Duration
	DeepSearchTimeout time.Duration
	HealthTimeout     time.Duration

	// RateLimit is the number of outbound calls per second, 0 disables limiting.
	RateLimit float64
	RateBurst int

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     logger.ILogger
}

type Client struct {
	baseURL string
	opts    Options
	hc      *http.Client
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	logger  logger.ILogger
}

type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
}

type summaryRequest struct {
	Query         string `json:"query"`
	UserID        string `json:"user_id,omitempty"`
	UseDeepSearch bool   `json:"use_deep_search,omitempty"`
	MaxDocuments  int    `json:"max_documents,omitempty"`
}

func New(opts Options) *Client {
	if opts.SimpleTimeout <= 0 {
		opts.SimpleTimeout = DefaultSimpleTimeout
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = DefaultSummaryTimeout
	}
	if opts.DeepSearchTimeout <= 0 {
		opts.DeepSearchTimeout = DefaultDeepSearchTimeout
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	hc := opts.HTTPClient
	if hc == nil {
		// deadlines come from the per-call context
		hc = &http.Client{}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		opts:    opts,
		hc:      hc,
		dialer:  dialer,
		limiter: limiter,
		logger:  opts.Logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SimpleQuery runs the quick single-pass pipeline.
func (c *Client) SimpleQuery(ctx context.Context, query, userID string) (*rag.Result, error) {
	var res rag.Result
	err := c.do(ctx, "simple_query", http.MethodPost, PathSimpleRAG, queryRequest{Query: query, UserID: userID}, c.opts.SimpleTimeout, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FullSummary runs the multi-stage summary pipeline, which can take minutes.
func (c *Client) FullSummary(ctx context.Context, query, userID string) (*rag.Result, error) {
	var res rag.Result
	err := c.do(ctx, "full_summary", http.MethodPost, PathRAGSummary, summaryRequest{Query: query, UserID: userID}, c.opts.SummaryTimeout, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DeepSearch asks the summary pipeline to also extract full text server-side.
func (c *Client) DeepSearch(ctx context.Context, req rag.DeepSearchRequest) (*rag.Result, error) {
	body := summaryRequest{
		Query:         req.Query,
		UserID:        req.UserID,
		UseDeepSearch: true,
		MaxDocuments:  req.MaxDocuments,
	}
	var res rag.Result
	if err := c.do(ctx, "deep_search", http.MethodPost, PathRAGSummary, body, c.opts.DeepSearchTimeout, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) HealthCheck(ctx context.Context) (*rag.Health, error) {
	var h rag.Health
	if err := c.do(ctx, "health_check", http.MethodGet, PathHealth, nil, c.opts.HealthTimeout, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, timeout time.Duration, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", op, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return c.classify(ctx, callCtx, op, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.classify(ctx, callCtx, op, timeout, err)
	}

	c.logger.Debug("RAGClient", "Backend responded", map[string]interface{}{
		"op":          op,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ParseBackendError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// classify maps a failed round trip to the error taxonomy: our own deadline
// is a timeout, a cancelled caller context passes through untouched, and
// anything else is a transport failure.
func (c *Client) classify(parent, callCtx context.Context, op string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: timeout}
	}
	return &TransportError{Op: op, Err: err}
}

// ParseBackendError reads a {"detail": "..."} body, falling back to the status code.
func ParseBackendError(statusCode int, body []byte) *BackendError {
	detail := gjson.GetBytes(body, "detail")
	if detail.Type == gjson.String && detail.Str != "" {
		return &BackendError{StatusCode: statusCode, Detail: detail.Str}
	}
	return &BackendError{StatusCode: statusCode, Detail: fmt.Sprintf("HTTP error! status: %d", statusCode)}
}
