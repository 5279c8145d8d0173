package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "session_42", SessionRoom(42))
	assert.Equal(t, "dashboard_7", DashboardRoom(7))
}

func TestHub_JoinLeaveMembers(t *testing.T) {
	hub := NewHub(nil)
	a, b := newTestClient(1), newTestClient(2)
	hub.Register(a)
	hub.Register(b)

	hub.Join(SessionRoom(1), a)
	hub.Join(SessionRoom(1), b)
	hub.Join(SessionRoom(1), a)

	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, hub.Members(SessionRoom(1)))

	hub.Leave(SessionRoom(1), a)
	assert.Equal(t, []string{b.ID()}, hub.Members(SessionRoom(1)))

	hub.Unregister(b)
	assert.Empty(t, hub.Members(SessionRoom(1)))
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil)
	a, b, outsider := newTestClient(1), newTestClient(2), newTestClient(3)
	hub.Join(SessionRoom(1), a)
	hub.Join(SessionRoom(1), b)
	hub.Join(SessionRoom(2), outsider)

	sent := hub.Broadcast(SessionRoom(1), EventUserLeft, userLeftPayload{UserID: 9})
	assert.Equal(t, 2, sent)

	for _, c := range []*Client{a, b} {
		f := only(t, c)
		assert.Equal(t, EventUserLeft, f.Event)
		assert.Equal(t, int64(9), decodeFrame[userLeftPayload](t, f).UserID)
	}
	assert.Empty(t, drain(t, outsider))

	sent = hub.BroadcastExcept(SessionRoom(1), a, EventNewOnlineUser, map[string]int64{"id": 1})
	assert.Equal(t, 1, sent)
	assert.Empty(t, drain(t, a))
	assert.Equal(t, EventNewOnlineUser, only(t, b).Event)
}

func TestHub_BroadcastSkipsClosedClients(t *testing.T) {
	hub := NewHub(nil)
	open, closed := newTestClient(1), newTestClient(2)
	hub.Join(SessionRoom(1), open)
	hub.Join(SessionRoom(1), closed)
	closed.Close()

	assert.Equal(t, 1, hub.Broadcast(SessionRoom(1), EventMessages, []string{}))
	assert.Empty(t, drain(t, closed))
}

func TestHub_EvictRoom(t *testing.T) {
	hub := NewHub(nil)
	a, b := newTestClient(1), newTestClient(2)
	hub.Join(SessionRoom(5), a)
	hub.Join(SessionRoom(5), b)
	hub.Join(DashboardRoom(1), a)

	evicted := hub.EvictRoom(SessionRoom(5))
	require.Len(t, evicted, 2)
	assert.Empty(t, hub.Members(SessionRoom(5)))
	assert.Equal(t, []string{a.ID()}, hub.Members(DashboardRoom(1)))

	assert.Zero(t, hub.Broadcast(SessionRoom(5), EventSessionData, nil))
}

func TestClient_FullBufferClosesConnection(t *testing.T) {
	cfg := testWebSocketConfig()
	cfg.SendBuffer = 1
	c := newClient("slow", 1, nil, nil, cfg)

	assert.True(t, c.enqueue([]byte(`{}`)))
	assert.False(t, c.enqueue([]byte(`{}`)))

	select {
	case <-c.done:
	default:
		t.Fatal("slow connection was not closed")
	}
	assert.False(t, c.enqueue([]byte(`{}`)))
}
