package orchestrator

import (
	"time"

	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/client"
)

// RetryPolicy bounds retries of failed backend calls. The delay before
// retry n (0-based) is BaseDelay * 2^n.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

// Retryable reports whether err is worth another attempt. Only network-level
// failures qualify. A timeout is retried for simple queries only.
func (p RetryPolicy) Retryable(mode rag.QueryMode, err error) bool {
	if client.IsTransport(err) {
		return true
	}
	return mode == rag.ModeSimple && client.IsTimeout(err)
}

// Delay returns the wait before retry n.
func (p RetryPolicy) Delay(n int) time.Duration {
	return p.BaseDelay << uint(n)
}
