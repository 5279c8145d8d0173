package api

import (
	"context"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/ai"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
	"github.com/gorilla/websocket"
)

// TokenVerifier is the credential collaborator used at connect time
type TokenVerifier interface {
	ValidateToken(ctx context.Context, token string) (*auth.Claims, error)
	RefreshToken(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// GatewayOptions holds the gateway's collaborators
type GatewayOptions struct {
	Stores    *Stores
	Presence  *presence.Service
	AI        *ai.Service
	Tokens    TokenVerifier
	Cookies   auth.CookieSettings
	WebSocket config.WebSocketConfig
	// AllowedOrigins restricts handshakes; empty allows every origin
	AllowedOrigins []string
	// Metrics may be nil
	Metrics *telemetry.GatewayMetrics
}

// Gateway is the real-time collaboration endpoint
type Gateway struct {
	hub       *Hub
	presence  *presence.Service
	resolver  *ContextResolver
	guard     *Guard
	router    *Router
	stores    *Stores
	documents *DocumentService
	ai        *ai.Service
	tokens    TokenVerifier
	cookies   auth.CookieSettings
	cfg       config.WebSocketConfig
	metrics   *telemetry.GatewayMetrics
	upgrader  websocket.Upgrader
}

// NewGateway wires the hub, router and guard and registers every event handler
func NewGateway(opts GatewayOptions) *Gateway {
	resolver := NewContextResolver(opts.Presence)
	guard := NewGuard(opts.Stores.UserSessions, resolver)

	g := &Gateway{
		hub:       NewHub(opts.Metrics),
		presence:  opts.Presence,
		resolver:  resolver,
		guard:     guard,
		router:    NewRouter(guard, opts.Metrics),
		stores:    opts.Stores,
		documents: NewDocumentService(opts.Stores.Documents, opts.Stores.Versions),
		ai:        opts.AI,
		tokens:    opts.Tokens,
		cookies:   opts.Cookies,
		cfg:       opts.WebSocket,
		metrics:   opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
	g.registerHandlers()
	return g
}

func (g *Gateway) registerHandlers() {
	r := g.router
	edit := models.PermissionEdit

	r.Handle(EventJoinSession, g.handleJoinSession)
	r.Handle(EventLeaveSession, g.handleLeaveSession)
	r.HandleForSession(EventDeleteSession, g.handleDeleteSession, models.PermissionAdmin)
	r.Handle(EventRenameSession, g.handleRenameSession, edit)
	r.Handle(EventChangePermissions, g.handleChangePermissions, edit)
	r.Handle(EventSendMessage, g.handleSendMessage)
	r.Handle(EventGetMessages, g.handleGetMessages)

	r.Handle(EventChangeDocumentTitle, g.handleChangeDocumentTitle, edit)
	r.Handle(EventCreateDocument, g.handleCreateDocument, edit)
	r.Handle(EventDeleteDocument, g.handleDeleteDocument, edit)
	r.Handle(EventDuplicateDocument, g.handleDuplicateDocument, edit)
	r.Handle(EventChangeContentAndSaveDocument, g.handleChangeContentAndSaveDocument, edit)
	r.Handle(EventApplyVersion, g.handleApplyVersion, edit)
	r.Handle(EventGetDocument, g.handleGetDocument)
	r.Handle(EventGetDocumentAiUsage, g.handleGetDocumentAiUsage)
	r.Handle(EventCreateDocumentAiUsage, g.handleCreateDocumentAiUsage, edit)
	r.Handle(EventGetVersions, g.handleGetVersions)
	r.HandleForSession(EventGetSessionDocuments, g.handleGetSessionDocuments, models.PermissionRead)

	r.Handle(EventJoinDashboard, g.handleJoinDashboard)
	r.Handle(EventCreateInvitation, g.handleCreateInvitation, models.PermissionAdmin)
	r.Handle(EventUpdateNotificationStatus, g.handleUpdateNotificationStatus)
	r.Handle(EventDeleteNotification, g.handleDeleteNotification)
	r.Handle(EventAcceptInvitation, g.handleAcceptInvitation)
	r.Handle(EventChangeInvitationRole, g.handleChangeInvitationRole)
	r.Handle(EventGetInvitations, g.handleGetInvitations)
}

// attach registers an authenticated connection and joins its dashboard room
func (g *Gateway) attach(c *Client) {
	g.hub.Register(c)
	g.hub.Join(DashboardRoom(c.UserID()), c)
	if g.metrics != nil {
		g.metrics.ConnectionOpened()
	}
	c.logger.Info("WebSocket connected user_id=%d", c.UserID())
}

// disconnect runs once per connection when its read pump ends
func (g *Gateway) disconnect(c *Client) {
	c.Close()
	g.leaveCurrentSession(context.Background(), c)
	g.hub.Unregister(c)

	if g.metrics != nil {
		g.metrics.ConnectionClosed(time.Since(c.connectedAt))
	}
	c.logger.Info("WebSocket disconnected after %s", time.Since(c.connectedAt).Round(time.Second))
}

// leaveCurrentSession leaves the connection's session, if any, and tells the
// remaining room members
func (g *Gateway) leaveCurrentSession(ctx context.Context, c *Client) (int64, bool) {
	sessionID, ok := g.presence.Leave(ctx, c.ID(), c.UserID())
	if !ok {
		return 0, false
	}

	g.leaveRoom(c, sessionID)
	g.updatePresenceGauge()
	return sessionID, true
}

// leaveRoom removes the connection from a session room and tells the rest of it
func (g *Gateway) leaveRoom(c *Client, sessionID int64) {
	room := SessionRoom(sessionID)
	g.hub.Leave(room, c)
	g.hub.Broadcast(room, EventUserLeft, userLeftPayload{UserID: c.UserID()})
}

func (g *Gateway) updatePresenceGauge() {
	if g.metrics != nil {
		g.metrics.SetOnlineUsers(g.presence.OnlineCount())
	}
}

// Shutdown closes every connection and waits for their disconnect paths to finish
func (g *Gateway) Shutdown(ctx context.Context) error {
	clients := g.hub.Clients()
	slogging.Get().Info("Closing %d WebSocket connections", len(clients))
	for _, c := range clients {
		c.Close()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for g.hub.ConnectionCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (g *Gateway) userEmail(ctx context.Context, userID int64) (string, error) {
	user, err := g.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
