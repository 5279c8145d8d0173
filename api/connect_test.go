package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth/db"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/ai"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-for-gateway-handshakes"

type serverFixture struct {
	tdb     *db.TestDB
	gw      *Gateway
	tokens  *auth.Service
	server  *httptest.Server
	wsURL   string
	cookies auth.CookieSettings
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	keys, err := auth.NewJWTKeyManager(testSecret, "HS256")
	require.NoError(t, err)
	tokens := auth.NewService(keys, auth.NewRefreshStore(rdb, time.Hour), auth.NewTokenBlacklist(rdb), 15*time.Minute)
	cookies := auth.CookieSettings{AccessTTL: 15 * time.Minute, RefreshTTL: time.Hour}

	tdb := db.MustCreateTestDB(t)
	stores := NewGormStores(tdb.DB)
	gw := NewGateway(GatewayOptions{
		Stores:    stores,
		Presence:  presence.NewService(presence.NewStateStore(), stores.UserSessions, stores.Sessions),
		AI:        ai.NewService(nil, stores.AiUsage, time.Second),
		Tokens:    tokens,
		Cookies:   cookies,
		WebSocket: testWebSocketConfig(),
	})

	router := gin.New()
	gw.RegisterRoutes(router, auth.NewMiddleware(tokens).AuthRequired())
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
		server.Close()
	})

	return &serverFixture{
		tdb:     tdb,
		gw:      gw,
		tokens:  tokens,
		server:  server,
		wsURL:   "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
		cookies: cookies,
	}
}

func cookieHeader(pairs ...*http.Cookie) http.Header {
	h := http.Header{}
	parts := make([]string, 0, len(pairs))
	for _, c := range pairs {
		parts = append(parts, c.Name+"="+c.Value)
	}
	h.Set("Cookie", strings.Join(parts, "; "))
	return h
}

func (f *serverFixture) login(t *testing.T, userID int64) auth.TokenPair {
	t.Helper()
	pair, err := f.tokens.GenerateTokens(context.Background(), userID)
	require.NoError(t, err)
	return pair
}

func (f *serverFixture) expiredToken(t *testing.T, userID int64) string {
	t.Helper()
	keys, err := auth.NewJWTKeyManager(testSecret, "HS256")
	require.NoError(t, err)
	token, err := keys.CreateToken(&auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "collab",
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)
	return token
}

func (f *serverFixture) dial(t *testing.T, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.wsURL, header)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func accessCookie(value string) *http.Cookie {
	return &http.Cookie{Name: auth.AccessTokenCookie, Value: value}
}

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{Name: auth.RefreshTokenCookie, Value: value}
}

func TestHandleWS_Handshake(t *testing.T) {
	f := newServerFixture(t)
	user := f.tdb.SeedUser(t, "alice@example.com", "Alice")

	t.Run("MissingCookieIsUnauthorized", func(t *testing.T) {
		_, resp, err := f.dial(t, nil)
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("GarbageTokenIsUnauthorized", func(t *testing.T) {
		_, resp, err := f.dial(t, cookieHeader(accessCookie("not-a-jwt")))
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ValidTokenConnects", func(t *testing.T) {
		pair := f.login(t, user.ID)
		conn, resp, err := f.dial(t, cookieHeader(accessCookie(pair.AccessToken)))
		require.NoError(t, err)
		assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
		assert.Empty(t, resp.Header.Values("Set-Cookie"))

		require.NoError(t, conn.WriteJSON(Envelope{Event: "bogus"}))
		got := readFrame(t, conn)
		assert.Equal(t, EventError, got.Event)
	})

	t.Run("ExpiredTokenRefreshesOnce", func(t *testing.T) {
		pair := f.login(t, user.ID)
		header := cookieHeader(accessCookie(f.expiredToken(t, user.ID)), refreshCookie(pair.RefreshToken))

		_, resp, err := f.dial(t, header)
		require.NoError(t, err)

		var names []string
		for _, c := range resp.Cookies() {
			names = append(names, c.Name)
			assert.NotEmpty(t, c.Value)
		}
		assert.ElementsMatch(t, []string{auth.AccessTokenCookie, auth.RefreshTokenCookie}, names)

		// the refresh token was consumed by the first handshake
		_, resp, err = f.dial(t, header)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("ExpiredTokenWithBadRefreshIsUnauthorized", func(t *testing.T) {
		header := cookieHeader(accessCookie(f.expiredToken(t, user.ID)), refreshCookie("unknown"))
		_, resp, err := f.dial(t, header)
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("RevokedTokenIsUnauthorized", func(t *testing.T) {
		pair := f.login(t, user.ID)
		require.NoError(t, f.tokens.Logout(context.Background(), pair.AccessToken, pair.RefreshToken))

		_, resp, err := f.dial(t, cookieHeader(accessCookie(pair.AccessToken)))
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestHandleWS_QueuedFramesAreSeparateMessages(t *testing.T) {
	f := newServerFixture(t)
	user := f.tdb.SeedUser(t, "alice@example.com", "Alice")
	conn, _, err := f.dial(t, cookieHeader(accessCookie(f.login(t, user.ID).AccessToken)))
	require.NoError(t, err)

	names := []string{"first", "second", "third"}
	for _, name := range names {
		require.NoError(t, conn.WriteJSON(Envelope{Event: name}))
	}
	for _, name := range names {
		got := readFrame(t, conn)
		require.Equal(t, EventError, got.Event)
		assert.Equal(t, "Unsupported event: "+name, decodeFrame[errorPayload](t, got).Message)
	}
}

func TestHandleWS_JoinOverSocket(t *testing.T) {
	f := newServerFixture(t)
	session := f.tdb.SeedSession(t, "Live")
	user := f.tdb.SeedUser(t, "alice@example.com", "Alice")
	f.tdb.SeedMembership(t, user.ID, session.ID, models.PermissionRead)

	pair := f.login(t, user.ID)
	conn, _, err := f.dial(t, cookieHeader(accessCookie(pair.AccessToken)))
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventJoinSession, Data: map[string]int64{"sessionId": session.ID}}))
	got := readFrame(t, conn)
	require.Equal(t, EventTotalSessionData, got.Event)
	snapshot := decodeFrame[presence.SessionTotalData](t, got)
	assert.Equal(t, session.ID, snapshot.Session.ID)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventGetDocument, Data: map[string]int64{"documentId": 999}}))
	got = readFrame(t, conn)
	require.Equal(t, EventInvalidDocument, got.Event)
	assert.Equal(t, "Document not found", decodeFrame[invalidDocumentPayload](t, got).Message)

	// closing the socket runs presence leave
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return f.gw.hub.ConnectionCount() == 0 && f.gw.presence.OnlineCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSessionRoutes(t *testing.T) {
	f := newServerFixture(t)
	user := f.tdb.SeedUser(t, "alice@example.com", "Alice")
	outsider := f.tdb.SeedUser(t, "eve@example.com", "Eve")
	pair := f.login(t, user.ID)

	do := func(method, path string, body []byte, token string) *http.Response {
		req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.AddCookie(accessCookie(token))
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodPost, "/api/sessions", []byte(`{"name":"Roadmap"}`), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(http.MethodPost, "/api/sessions", []byte(`{"name":"Roadmap"}`), pair.AccessToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Roadmap", created.Name)

	resp = do(http.MethodGet, "/api/sessions", nil, pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []models.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	path := "/api/sessions/" + strconv.FormatInt(created.ID, 10)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, path, nil, pair.AccessToken).StatusCode)
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, path, nil, f.login(t, outsider.ID).AccessToken).StatusCode)

	// a missing session is indistinguishable from one the caller cannot see
	missing := do(http.MethodGet, "/api/sessions/999", nil, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, missing.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(missing.Body).Decode(&body))
	assert.Equal(t, "You are not part of this session", body["error"])

	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/api/sessions", []byte(`{}`), pair.AccessToken).StatusCode)
}
