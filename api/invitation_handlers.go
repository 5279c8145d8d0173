package api

import (
	"context"
	"errors"
	"strings"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
)

// receiverRoom returns the dashboard room of the invitation's receiver, or ""
// when the address has no account yet
func (g *Gateway) receiverRoom(ctx context.Context, email string) (string, error) {
	user, err := g.stores.Users.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return DashboardRoom(user.ID), nil
}

// notifyInvitation sends an invitation event to its session room and to the
// receiver's dashboard
func (g *Gateway) notifyInvitation(ctx context.Context, inv *models.Invitation, event string, payload any) error {
	g.hub.Broadcast(SessionRoom(inv.SessionID), event, payload)

	room, err := g.receiverRoom(ctx, inv.Email)
	if err != nil {
		return err
	}
	if room != "" {
		g.hub.Broadcast(room, event, payload)
	}
	return nil
}

// receivedInvitation loads an invitation addressed to the caller
func (g *Gateway) receivedInvitation(ctx context.Context, c *Client, invitationID int64) (*models.Invitation, error) {
	inv, err := g.stores.Invitations.Get(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(inv.Email, email) {
		return nil, ErrForbidden
	}
	return inv, nil
}

func (g *Gateway) handleJoinDashboard(ctx context.Context, c *Client, _ []byte) error {
	email, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	invitations, err := g.stores.Invitations.ListByEmail(ctx, email)
	if err != nil {
		return err
	}

	g.hub.Join(DashboardRoom(c.UserID()), c)
	c.Emit(EventNotifications, invitations)
	return nil
}

func (g *Gateway) handleCreateInvitation(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[createInvitationPayload](data)
	if err != nil {
		return err
	}
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	role, err := models.ParsePermission(p.Role)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	email := strings.TrimSpace(p.Email)

	receiver, err := g.stores.Users.GetByEmail(ctx, email)
	if err != nil && !IsNotFound(err) {
		return err
	}
	if receiver != nil {
		member, err := g.stores.UserSessions.Find(ctx, receiver.ID, sessionID)
		if err != nil {
			return err
		}
		if member != nil {
			return &ValidationError{Message: "User is already a member of this session"}
		}
	}

	inviter, err := g.userEmail(ctx, c.UserID())
	if err != nil {
		return err
	}

	inv, err := g.stores.Invitations.Create(ctx, &models.Invitation{
		SessionID:    sessionID,
		Email:        email,
		Role:         role,
		InviterEmail: inviter,
	})
	if err != nil {
		return err
	}

	if receiver != nil {
		g.hub.Broadcast(DashboardRoom(receiver.ID), EventNewInvitation, inv)
	}
	g.hub.Broadcast(SessionRoom(sessionID), EventNewInvitation, inv)

	c.logger.Info("Invited %s to session %d as %s", slogging.SanitizeLogMessage(email), sessionID, role)
	return nil
}

func (g *Gateway) handleUpdateNotificationStatus(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[notificationStatusPayload](data)
	if err != nil {
		return err
	}
	if _, err := g.receivedInvitation(ctx, c, p.InvitationID); err != nil {
		return err
	}

	inv, err := g.stores.Invitations.UpdateNotificationStatus(ctx, p.InvitationID, p.Status)
	if err != nil {
		return err
	}
	return g.notifyInvitation(ctx, inv, EventInvitationUpdated, inv)
}

func (g *Gateway) handleDeleteNotification(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[invitationIDPayload](data)
	if err != nil {
		return err
	}

	inv, err := g.receivedInvitation(ctx, c, p.InvitationID)
	if errors.Is(err, ErrForbidden) {
		// session admins may withdraw invitations they did not receive
		if inv, err = g.stores.Invitations.Get(ctx, p.InvitationID); err != nil {
			return err
		}
		err = g.guard.Authorize(ctx, c.UserID(), inv.SessionID, models.PermissionAdmin)
	}
	if err != nil {
		return err
	}

	if err := g.stores.Invitations.Delete(ctx, inv.ID); err != nil {
		return err
	}
	return g.notifyInvitation(ctx, inv, EventNotificationDeleted, notificationDeletedPayload{InvitationID: inv.ID})
}

func (g *Gateway) handleAcceptInvitation(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[invitationIDPayload](data)
	if err != nil {
		return err
	}
	inv, err := g.receivedInvitation(ctx, c, p.InvitationID)
	if err != nil {
		return err
	}

	if _, err := g.stores.UserSessions.Grant(ctx, c.UserID(), inv.SessionID, models.WithRead(inv.Role)); err != nil {
		return err
	}

	c.Emit(EventInvitationAccepted, invitationAcceptedPayload{
		InvitationID:        inv.ID,
		InvitationSessionID: inv.SessionID,
	})

	if err := g.stores.Invitations.Delete(ctx, inv.ID); err != nil {
		return err
	}
	g.hub.Broadcast(SessionRoom(inv.SessionID), EventNotificationDeleted, notificationDeletedPayload{InvitationID: inv.ID})
	return nil
}

// handleChangeInvitationRole authorises against the invitation's own session,
// which need not be the one the caller has joined
func (g *Gateway) handleChangeInvitationRole(ctx context.Context, c *Client, data []byte) error {
	p, err := decode[changeInvitationRolePayload](data)
	if err != nil {
		return err
	}
	role, err := models.ParsePermission(p.NewRole)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	current, err := g.stores.Invitations.Get(ctx, p.InvitationID)
	if err != nil {
		return err
	}
	if err := g.guard.Authorize(ctx, c.UserID(), current.SessionID, models.PermissionAdmin); err != nil {
		return err
	}

	inv, err := g.stores.Invitations.UpdateRole(ctx, p.InvitationID, role)
	if err != nil {
		return err
	}
	return g.notifyInvitation(ctx, inv, EventInvitationUpdated, inv)
}

func (g *Gateway) handleGetInvitations(ctx context.Context, c *Client, _ []byte) error {
	sessionID, err := g.resolver.SessionIDOrError(c)
	if err != nil {
		return err
	}

	invitations, err := g.stores.Invitations.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	c.Emit(EventInvitations, invitations)
	return nil
}
