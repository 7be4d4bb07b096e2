package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// AllowedForwardPrefix is the only backend path prefix Forward will reach.
const AllowedForwardPrefix = "/api/research/"

// AllowedEndpoint reports whether endpoint stays under AllowedForwardPrefix.
// Dot segments are refused, including percent-encoded ones, since the path is
// sent to the backend as written.
func AllowedEndpoint(endpoint string) bool {
	p := endpoint
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p, err := url.PathUnescape(p)
	if err != nil || strings.ContainsRune(p, '\\') {
		return false
	}
	if !strings.HasPrefix(p, AllowedForwardPrefix) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return strings.HasPrefix(path.Clean(p)+"/", AllowedForwardPrefix)
}

// ForwardResponse is a backend reply relayed byte for byte.
type ForwardResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// TimeoutFor returns the deadline applied to a call on path. Deep searches go
// through the summary endpoint and are recognised by their body.
func (c *Client) TimeoutFor(path string, body []byte) time.Duration {
	p := path
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	switch p {
	case PathRAGSummary:
		if gjson.GetBytes(body, "use_deep_search").Bool() {
			return c.opts.DeepSearchTimeout
		}
		return c.opts.SummaryTimeout
	case PathHealth:
		return c.opts.HealthTimeout
	default:
		return c.opts.SimpleTimeout
	}
}

// Forward relays a raw request to the backend. Non-2xx replies are returned
// as a ForwardResponse, not an error; errors are local failures only.
func (c *Client) Forward(ctx context.Context, method, path string, body []byte, contentType string) (*ForwardResponse, error) {
	if !AllowedEndpoint(path) {
		return nil, fmt.Errorf("forward: endpoint %q is not allowed", path)
	}

	timeout := c.TimeoutFor(path, body)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 && method != http.MethodGet {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("forward: create request: %w", err)
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, c.classify(ctx, callCtx, "forward", timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, callCtx, "forward", timeout, err)
	}
	return &ForwardResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// UpstreamDetail is the detail shown for a failed upstream reply: the body's
// detail field, else the HTTP status text.
func UpstreamDetail(statusCode int, body []byte) string {
	detail := gjson.GetBytes(body, "detail")
	if detail.Type == gjson.String && detail.Str != "" {
		return detail.Str
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP error! status: %d", statusCode)
}
