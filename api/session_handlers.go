package api

import (
	"context"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
)

func (g *Gateway) handleJoinSession(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[sessionIDPayload](data)
	if err != nil {
		return err
	}
	if p.SessionID <= 0 {
		c.Emit(EventInvalidSession, errorPayload{Message: "Invalid session id"})
		return nil
	}

	result, err := g.presence.Join(ctx, c.Identity(), p.SessionID)
	if result != nil && result.PreviousSessionID != 0 {
		g.leaveRoom(c, result.PreviousSessionID)
	}
	if err != nil {
		g.updatePresenceGauge()
		return err
	}
	if !result.Allowed {
		c.Emit(EventInvalidSession, errorPayload{Message: "You do not have access to this session"})
		return nil
	}

	room := SessionRoom(p.SessionID)
	g.hub.Join(room, c)
	c.Emit(EventTotalSessionData, result.Snapshot)
	if result.IsFirstJoin {
		g.hub.BroadcastExcept(room, c, EventNewOnlineUser, result.NewUser)
	}
	g.updatePresenceGauge()
	return nil
}

func (g *Gateway) handleLeaveSession(ctx context.Context, c *Client, _ []byte) error {
	g.leaveCurrentSession(ctx, c)
	return nil
}

func (g *Gateway) handleDeleteSession(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[sessionIDPayload](data)
	if err != nil {
		return err
	}
	sessionID := p.SessionID
	if sessionID == 0 {
		if sessionID, err = g.resolver.SessionIDOrError(c); err != nil {
			return err
		}
	}

	if err := g.stores.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	room := SessionRoom(sessionID)
	g.hub.Broadcast(room, EventSessionDeleted, sessionDeletedPayload{
		SessionID: sessionID,
		Message:   "Session has been deleted",
		UserID:    c.UserID(),
	})

	evicted := g.presence.EvictSession(sessionID)
	g.hub.EvictRoom(room)
	g.updatePresenceGauge()

	c.logger.Info("Deleted session %d, evicted %d connections", sessionID, len(evicted))
	return nil
}

func (g *Gateway) handleRenameSession(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[renameSessionPayload](data)
	if err != nil {
		return err
	}
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	if _, err := g.stores.Sessions.Rename(ctx, sessionID, p.NewTitle); err != nil {
		return err
	}
	snapshot, err := g.presence.GetSessionTotalData(ctx, c.Identity(), sessionID)
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventSessionData, snapshot)
	return nil
}

func (g *Gateway) handleChangePermissions(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[changePermissionsPayload](data)
	if err != nil {
		return err
	}
	// the guard runs first, so this is only reached when it resolved the
	// session from the handshake header; nothing is joined and nothing changes
	sessionID, ok := g.presence.SessionIDForConnection(c.ID())
	if !ok {
		return nil
	}

	perm, err := models.ParsePermission(p.Permission)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	target, err := g.stores.UserSessions.Find(ctx, p.UserID, sessionID)
	if err != nil {
		return err
	}
	if target == nil {
		return &NotFoundError{Entity: "User session"}
	}

	updated, err := g.stores.UserSessions.UpdatePermissions(ctx, p.UserID, sessionID, models.WithRead(perm))
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventPermissionsChanged, permissionsChangedPayload{
		UserID:      p.UserID,
		Permissions: updated.Permissions,
	})
	return nil
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[sendMessagePayload](data)
	if err != nil {
		return err
	}
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	msg, err := g.stores.Messages.Create(ctx, sessionID, c.UserID(), SanitizeMessage(p.Message))
	if err != nil {
		return err
	}

	g.hub.Broadcast(SessionRoom(sessionID), EventNewMessage, msg)
	return nil
}

func (g *Gateway) handleGetMessages(ctx context.Context, c *Client, _ []byte) error {
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	messages, err := g.stores.Messages.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	c.Emit(EventMessages, messages)
	return nil
}
