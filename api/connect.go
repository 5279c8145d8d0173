package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/uuidgen"
	"github.com/gin-gonic/gin"
)

// connectError is a handshake rejection with its metrics reason
type connectError struct {
	reason string
	err    error
}

func (e *connectError) Error() string {
	return e.reason + ": " + e.err.Error()
}

func (e *connectError) Unwrap() error {
	return e.err
}

// HandleWS authenticates the handshake from the credential cookies and
// upgrades it. Authentication failures are answered with 401 before any
// upgrade, so the client observes a connect error.
func (g *Gateway) HandleWS(c *gin.Context) {
	logger := slogging.GetContextLogger(c)

	accessToken, refreshToken := auth.TokensFromRequest(c.Request)
	userID, refreshed, err := g.authenticate(c.Request.Context(), accessToken, refreshToken)
	if err != nil {
		var cErr *connectError
		reason := telemetry.RejectInvalidToken
		if errors.As(err, &cErr) {
			reason = cErr.reason
		}
		if g.metrics != nil {
			g.metrics.ConnectRejected(reason)
		}
		logger.Warn("WebSocket handshake rejected: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	responseHeader := http.Header{}
	if len(refreshed) > 0 {
		auth.SetCookieHeader(responseHeader, refreshed)
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, responseHeader)
	if err != nil {
		// the upgrader has already written an HTTP error
		if g.metrics != nil {
			g.metrics.ConnectRejected(telemetry.RejectUpgradeFailure)
		}
		logger.Warn("Failed to upgrade connection: %v", err)
		return
	}

	client := newClient(uuidgen.NewConnectionID(), userID, conn, c.Request.Header.Clone(), g.cfg)
	g.attach(client)

	go client.writePump()
	go client.readPump(g)
}

// authenticate verifies the access token. An expired token, and only an
// expired one, is refreshed exactly once; the new cookies are returned so
// they can be set on the upgrade response.
func (g *Gateway) authenticate(ctx context.Context, accessToken, refreshToken string) (int64, []*http.Cookie, error) {
	if accessToken == "" {
		return 0, nil, &connectError{reason: telemetry.RejectMissingCookie, err: errors.New("missing access token cookie")}
	}

	var refreshed []*http.Cookie
	claims, err := g.tokens.ValidateToken(ctx, accessToken)
	if errors.Is(err, auth.ErrTokenExpired) {
		pair, refreshErr := g.tokens.RefreshToken(ctx, refreshToken)
		if refreshErr != nil {
			return 0, nil, &connectError{reason: telemetry.RejectRefreshFailed, err: refreshErr}
		}
		refreshed = g.cookies.Cookies(pair)
		claims, err = g.tokens.ValidateToken(ctx, pair.AccessToken)
	}
	if err != nil {
		reason := telemetry.RejectInvalidToken
		if errors.Is(err, auth.ErrTokenRevoked) {
			reason = telemetry.RejectRevokedToken
		}
		return 0, nil, &connectError{reason: reason, err: err}
	}

	userID, err := claims.UserID()
	if err != nil {
		return 0, nil, &connectError{reason: telemetry.RejectInvalidToken, err: err}
	}
	return userID, refreshed, nil
}

// originChecker allows same-host handshakes plus the configured origins
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := set[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
