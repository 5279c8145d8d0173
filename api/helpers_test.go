package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth/db"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/ai"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func testWebSocketConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		PingInterval:    time.Second,
		PongWait:        2 * time.Second,
		WriteWait:       time.Second,
		MaxMessageSize:  1 << 20,
		SendBuffer:      64,
		EventsPerSecond: 1000,
		Burst:           1000,
	}
}

// newTestClient builds a connection without a socket; frames stay in its send buffer
func newTestClient(userID int64) *Client {
	return newClient(uuid.New().String(), userID, nil, http.Header{}, testWebSocketConfig())
}

// frame is a decoded outbound envelope
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// drain returns every frame queued for c
func drain(t *testing.T, c *Client) []frame {
	t.Helper()

	var frames []frame
	for {
		select {
		case msg := <-c.send:
			var f frame
			require.NoError(t, json.Unmarshal(msg, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

// only asserts that exactly one frame is queued for c and returns it
func only(t *testing.T, c *Client) frame {
	t.Helper()
	frames := drain(t, c)
	require.Len(t, frames, 1, "frames: %+v", frames)
	return frames[0]
}

func events(frames []frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func decodeFrame[T any](t *testing.T, f frame) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(f.Data, &v))
	return v
}

type fakeLLM struct {
	reply string
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLLM) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.reply, nil
}

// gatewayFixture is a gateway over an in-memory database with socketless clients
type gatewayFixture struct {
	t      *testing.T
	tdb    *db.TestDB
	stores *Stores
	gw     *Gateway
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	return newGatewayFixtureWithSessions(t, func(stores *Stores) presence.SessionGetter {
		return stores.Sessions
	})
}

// newGatewayFixtureWithSessions lets presence read sessions through a wrapper
func newGatewayFixtureWithSessions(t *testing.T, sessions func(*Stores) presence.SessionGetter) *gatewayFixture {
	t.Helper()

	tdb := db.MustCreateTestDB(t)
	stores := NewGormStores(tdb.DB)
	gw := NewGateway(GatewayOptions{
		Stores:    stores,
		Presence:  presence.NewService(presence.NewStateStore(), stores.UserSessions, sessions(stores)),
		AI:        ai.NewService(&fakeLLM{reply: "Polished text."}, stores.AiUsage, time.Second),
		WebSocket: testWebSocketConfig(),
	})

	return &gatewayFixture{t: t, tdb: tdb, stores: stores, gw: gw}
}

// connect attaches a socketless client for userID
func (f *gatewayFixture) connect(userID int64) *Client {
	c := newTestClient(userID)
	f.gw.attach(c)
	return c
}

// send dispatches an event from c as if it arrived on the socket
func (f *gatewayFixture) send(c *Client, event string, data any) {
	f.t.Helper()
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	require.NoError(f.t, err)
	f.gw.router.Dispatch(c, msg)
}

// member seeds a user with perms on session
func (f *gatewayFixture) member(email string, sessionID int64, perms ...models.Permission) *models.User {
	user := f.tdb.SeedUser(f.t, email, email)
	f.tdb.SeedMembership(f.t, user.ID, sessionID, perms...)
	return user
}

// joined connects a user and joins it to session, discarding the join frames
func (f *gatewayFixture) joined(userID, sessionID int64) *Client {
	f.t.Helper()
	c := f.connect(userID)
	f.send(c, EventJoinSession, map[string]int64{"sessionId": sessionID})
	frames := drain(f.t, c)
	require.NotEmpty(f.t, frames)
	require.Equal(f.t, EventTotalSessionData, frames[0].Event)
	return c
}
