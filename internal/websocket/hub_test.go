package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"compliance-assistant-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := NewHub(nil, "test", nil)
	go h.Run(ctx)
	return h
}

func attach(t *testing.T, h *Hub, userID string) *Client {
	t.Helper()
	c := NewClient(h, nil, userID, nil)
	require.True(t, h.join(c))
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for _, x := range h.clients[userID] {
			if x == c {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case data := <-c.Send:
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return envelope{}
	}
}

func TestNotifyTargetsRecipientDevices(t *testing.T) {
	h := startHub(t)
	phone := attach(t, h, "u1")
	laptop := attach(t, h, "u1")
	other := attach(t, h, "u2")

	require.NoError(t, h.Notify(context.Background(), events.VersionAdded("u1", "v1", "Draft")))

	for _, c := range []*Client{phone, laptop} {
		env := receive(t, c)
		assert.Equal(t, "notification", env.Type)
		assert.Equal(t, events.TypeVersionAdded, env.Data.Type)
	}
	assert.Len(t, other.Send, 0)
	assert.Equal(t, 2, h.ConnectedUsers())
}

func TestNotifyWithoutRecipientBroadcasts(t *testing.T) {
	h := startHub(t)
	a := attach(t, h, "u1")
	b := attach(t, h, "u2")

	require.NoError(t, h.Notify(context.Background(), events.BaseEvent{Type: "SYSTEM_NOTICE", OccurredAt: time.Now()}))

	assert.Equal(t, "SYSTEM_NOTICE", receive(t, a).Data.Type)
	assert.Equal(t, "SYSTEM_NOTICE", receive(t, b).Data.Type)
}

func TestLeaveClosesClient(t *testing.T) {
	h := startHub(t)
	c := attach(t, h, "u1")

	h.leave(c)
	require.Eventually(t, func() bool { return h.ConnectedUsers() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, c.Deliver([]byte("x")))
}
