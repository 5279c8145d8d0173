package api

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_FrameErrors(t *testing.T) {
	f := newGatewayFixture(t)
	c := f.connect(1)

	t.Run("InvalidJSON", func(t *testing.T) {
		f.gw.router.Dispatch(c, []byte(`{not json`))
		got := only(t, c)
		assert.Equal(t, EventError, got.Event)
		assert.Equal(t, "Invalid message format", decodeFrame[errorPayload](t, got).Message)
	})

	t.Run("UnsupportedEvent", func(t *testing.T) {
		f.send(c, "bogus", nil)
		got := only(t, c)
		assert.Equal(t, EventError, got.Event)
		assert.Equal(t, "Unsupported event: bogus", decodeFrame[errorPayload](t, got).Message)
	})

	t.Run("PanicBecomesErrorEvent", func(t *testing.T) {
		f.gw.router.Handle("explode", func(context.Context, *Client, []byte) error {
			panic("boom")
		})
		f.send(c, "explode", nil)
		got := only(t, c)
		assert.Equal(t, "Internal server error", decodeFrame[errorPayload](t, got).Message)

		// the connection keeps working
		f.send(c, "bogus", nil)
		assert.Equal(t, EventError, only(t, c).Event)
	})

	t.Run("HandlerErrorOnlyReachesCaller", func(t *testing.T) {
		other := f.connect(2)
		f.gw.router.Handle("fail", func(context.Context, *Client, []byte) error {
			return errors.New("nope")
		})
		f.send(c, "fail", nil)
		assert.Equal(t, "nope", decodeFrame[errorPayload](t, only(t, c)).Message)
		assert.Empty(t, drain(t, other))
	})
}

func TestGateway_JoinSession(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Planning")
	alice := f.member("alice@example.com", session.ID, models.PermissionRead, models.PermissionEdit)
	bob := f.member("bob@example.com", session.ID, models.PermissionRead)

	a := f.connect(alice.ID)
	f.send(a, EventJoinSession, map[string]int64{"sessionId": session.ID})

	got := only(t, a)
	require.Equal(t, EventTotalSessionData, got.Event)
	snapshot := decodeFrame[presence.SessionTotalData](t, got)
	assert.Equal(t, "Planning", snapshot.Session.Name)
	require.Len(t, snapshot.OnlineUsers, 1)
	assert.Equal(t, alice.ID, snapshot.OnlineUsers[0].ID)

	b := f.connect(bob.ID)
	f.send(b, EventJoinSession, map[string]int64{"sessionId": session.ID})
	assert.Equal(t, EventTotalSessionData, only(t, b).Event)

	announced := only(t, a)
	require.Equal(t, EventNewOnlineUser, announced.Event)
	assert.Equal(t, bob.ID, decodeFrame[presence.OnlineUser](t, announced).ID)

	// a second connection of the same user is not announced again
	b2 := f.connect(bob.ID)
	f.send(b2, EventJoinSession, map[string]int64{"sessionId": session.ID})
	assert.Equal(t, EventTotalSessionData, only(t, b2).Event)
	assert.Empty(t, drain(t, a))

	assert.ElementsMatch(t, []string{a.ID(), b.ID(), b2.ID()}, f.gw.hub.Members(SessionRoom(session.ID)))
}

func TestGateway_JoinSessionRejected(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Private")
	outsider := f.tdb.SeedUser(t, "eve@example.com", "Eve")
	c := f.connect(outsider.ID)

	f.send(c, EventJoinSession, map[string]int64{"sessionId": session.ID})
	got := only(t, c)
	assert.Equal(t, EventInvalidSession, got.Event)
	assert.Equal(t, "You do not have access to this session", decodeFrame[errorPayload](t, got).Message)
	assert.Empty(t, f.gw.hub.Members(SessionRoom(session.ID)))

	f.send(c, EventJoinSession, map[string]int64{"sessionId": 0})
	assert.Equal(t, "Invalid session id", decodeFrame[errorPayload](t, only(t, c)).Message)
}

func TestGateway_SwitchingSessionsLeavesThePreviousRoom(t *testing.T) {
	f := newGatewayFixture(t)
	first := f.tdb.SeedSession(t, "First")
	second := f.tdb.SeedSession(t, "Second")
	alice := f.member("alice@example.com", first.ID, models.PermissionRead)
	f.tdb.SeedMembership(t, alice.ID, second.ID, models.PermissionRead)
	bob := f.member("bob@example.com", first.ID, models.PermissionRead)

	b := f.joined(bob.ID, first.ID)
	a := f.joined(alice.ID, first.ID)
	drain(t, b)

	f.send(a, EventJoinSession, map[string]int64{"sessionId": second.ID})
	assert.Equal(t, EventTotalSessionData, only(t, a).Event)

	left := only(t, b)
	assert.Equal(t, EventUserLeft, left.Event)
	assert.Equal(t, alice.ID, decodeFrame[userLeftPayload](t, left).UserID)
	assert.Equal(t, []string{b.ID()}, f.gw.hub.Members(SessionRoom(first.ID)))
	assert.Equal(t, []string{a.ID()}, f.gw.hub.Members(SessionRoom(second.ID)))
}

func TestGateway_DisconnectAnnouncesUserLeft(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "S")
	alice := f.member("alice@example.com", session.ID, models.PermissionRead)
	bob := f.member("bob@example.com", session.ID, models.PermissionRead)

	a := f.joined(alice.ID, session.ID)
	b := f.joined(bob.ID, session.ID)
	drain(t, a)

	f.gw.disconnect(b)

	got := only(t, a)
	assert.Equal(t, EventUserLeft, got.Event)
	assert.Equal(t, bob.ID, decodeFrame[userLeftPayload](t, got).UserID)
	assert.Equal(t, []string{a.ID()}, f.gw.hub.Members(SessionRoom(session.ID)))
	assert.Equal(t, 1, f.gw.hub.ConnectionCount())

	_, ok := f.gw.presence.SessionIDForConnection(b.ID())
	assert.False(t, ok)
}

func TestGateway_RenameSessionIsIdempotent(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Old")
	alice := f.member("alice@example.com", session.ID, models.PermissionRead, models.PermissionEdit)
	a := f.joined(alice.ID, session.ID)

	for range 2 {
		f.send(a, EventRenameSession, map[string]string{"newTitle": "New Name"})
		got := only(t, a)
		require.Equal(t, EventSessionData, got.Event)
		assert.Equal(t, "New Name", decodeFrame[presence.SessionTotalData](t, got).Session.Name)
	}
}

func TestGateway_PermissionDenials(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "S")
	reader := f.member("reader@example.com", session.ID, models.PermissionRead)
	c := f.joined(reader.ID, session.ID)

	f.send(c, EventCreateDocument, map[string]string{"title": "Nope"})
	got := only(t, c)
	assert.Equal(t, EventError, got.Event)
	assert.Equal(t, "Insufficient permissions", decodeFrame[errorPayload](t, got).Message)

	f.send(c, EventDeleteSession, map[string]int64{"sessionId": session.ID})
	assert.Equal(t, "Insufficient permissions", decodeFrame[errorPayload](t, only(t, c)).Message)

	docs, err := f.stores.Documents.ListBySession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGateway_ChangePermissions(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "S")
	admin := f.member("admin@example.com", session.ID, models.PermissionRead, models.PermissionEdit, models.PermissionAdmin)
	bob := f.member("bob@example.com", session.ID, models.PermissionRead)
	a := f.joined(admin.ID, session.ID)

	f.send(a, EventChangePermissions, map[string]any{"userId": bob.ID, "permission": "ADMIN"})
	got := only(t, a)
	require.Equal(t, EventPermissionsChanged, got.Event)
	changed := decodeFrame[permissionsChangedPayload](t, got)
	assert.Equal(t, bob.ID, changed.UserID)
	assert.Equal(t, models.PermissionSet{models.PermissionRead, models.PermissionAdmin}, changed.Permissions)

	f.send(a, EventChangePermissions, map[string]any{"userId": bob.ID, "permission": "OWNER"})
	assert.Equal(t, EventError, only(t, a).Event)
}

func TestGateway_Messages(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Chat")
	alice := f.member("alice@example.com", session.ID, models.PermissionRead)
	bob := f.member("bob@example.com", session.ID, models.PermissionRead)
	a := f.joined(alice.ID, session.ID)
	b := f.joined(bob.ID, session.ID)
	drain(t, a)

	f.send(a, EventSendMessage, map[string]string{"message": "<b>hello</b> <script>x()</script>"})
	for _, c := range []*Client{a, b} {
		got := only(t, c)
		require.Equal(t, EventNewMessage, got.Event)
		msg := decodeFrame[models.Message](t, got)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, alice.ID, msg.Sender.ID)
	}

	f.send(b, EventGetMessages, nil)
	got := only(t, b)
	require.Equal(t, EventMessages, got.Event)
	assert.Len(t, decodeFrame[[]models.Message](t, got), 1)

	// without a joined session the resolver refuses
	lone := f.connect(alice.ID)
	f.send(lone, EventGetMessages, nil)
	assert.Equal(t, "Session ID not found for this socket", decodeFrame[errorPayload](t, only(t, lone)).Message)
}

func TestGateway_DeleteSession(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Doomed")
	admin := f.member("admin@example.com", session.ID, models.PermissionRead, models.PermissionAdmin)
	bob := f.member("bob@example.com", session.ID, models.PermissionRead)
	a := f.joined(admin.ID, session.ID)
	b := f.joined(bob.ID, session.ID)
	drain(t, a)

	f.send(a, EventDeleteSession, map[string]int64{"sessionId": session.ID})

	for _, c := range []*Client{a, b} {
		got := only(t, c)
		require.Equal(t, EventSessionDeleted, got.Event)
		deleted := decodeFrame[sessionDeletedPayload](t, got)
		assert.Equal(t, session.ID, deleted.SessionID)
		assert.Equal(t, admin.ID, deleted.UserID)
		assert.Equal(t, "Session has been deleted", deleted.Message)
	}

	assert.Empty(t, f.gw.hub.Members(SessionRoom(session.ID)))
	assert.Zero(t, f.gw.presence.OnlineCount())

	_, err := f.stores.Sessions.Get(context.Background(), session.ID)
	assert.True(t, IsNotFound(err))

	f.send(b, EventGetMessages, nil)
	assert.Equal(t, EventError, only(t, b).Event)
}

func TestGateway_Documents(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Docs")
	editor := f.member("editor@example.com", session.ID, models.PermissionRead, models.PermissionEdit)
	reader := f.member("reader@example.com", session.ID, models.PermissionRead)
	e := f.joined(editor.ID, session.ID)
	r := f.joined(reader.ID, session.ID)
	drain(t, e)

	f.send(e, EventCreateDocument, map[string]string{"title": "Brief"})
	var doc models.Document
	for _, c := range []*Client{e, r} {
		frames := drain(t, c)
		require.Equal(t, []string{EventDocumentCreated, EventVersionCreated}, events(frames))
		doc = decodeFrame[models.Document](t, frames[0])
		assert.Equal(t, "Brief", doc.Title)
		assert.Equal(t, "editor@example.com", decodeFrame[models.Version](t, frames[1]).UserEmail)
	}

	t.Run("ChangeContent", func(t *testing.T) {
		f.send(e, EventChangeContentAndSaveDocument, map[string]any{"documentId": doc.ID, "newContent": "<p>Body</p>"})
		frames := drain(t, r)
		require.Equal(t, []string{EventDocumentUpdated, EventVersionCreated}, events(frames))
		assert.Equal(t, "<p>Body</p>", decodeFrame[models.Document](t, frames[0]).RichContent)
		drain(t, e)
	})

	t.Run("GetDocument", func(t *testing.T) {
		f.send(r, EventGetDocument, map[string]int64{"documentId": doc.ID})
		frames := drain(t, r)
		require.Equal(t, []string{EventDocumentData, EventLastEditedDocument}, events(frames))
		assert.Equal(t, doc.ID, decodeFrame[models.Document](t, frames[0]).ID)
		assert.Empty(t, drain(t, e))
	})

	t.Run("GetMissingDocument", func(t *testing.T) {
		f.send(r, EventGetDocument, map[string]int64{"documentId": 999})
		got := only(t, r)
		require.Equal(t, EventInvalidDocument, got.Event)
		invalid := decodeFrame[invalidDocumentPayload](t, got)
		assert.Equal(t, "Document not found", invalid.Message)
		assert.Equal(t, int64(999), invalid.DocumentID)
	})

	t.Run("ForeignDocument", func(t *testing.T) {
		other := f.tdb.SeedSession(t, "Elsewhere")
		foreign := f.tdb.SeedDocument(t, other.ID, "Secret", "")

		f.send(r, EventGetDocument, map[string]int64{"documentId": foreign.ID})
		assert.Equal(t, "Document does not belong to this session",
			decodeFrame[invalidDocumentPayload](t, only(t, r)).Message)

		f.send(e, EventDeleteDocument, map[string]int64{"documentId": foreign.ID})
		assert.Equal(t, EventError, only(t, e).Event)
	})

	t.Run("Versions", func(t *testing.T) {
		f.send(r, EventGetVersions, map[string]int64{"documentId": doc.ID})
		got := only(t, r)
		require.Equal(t, EventVersionsData, got.Event)
		assert.Len(t, decodeFrame[[]models.Version](t, got), 2)
	})

	t.Run("SessionDocuments", func(t *testing.T) {
		f.send(r, EventGetSessionDocuments, map[string]int64{"sessionId": session.ID})
		got := only(t, r)
		require.Equal(t, EventSessionDocuments, got.Event)
		assert.Len(t, decodeFrame[[]models.Document](t, got), 1)
	})

	t.Run("Duplicate", func(t *testing.T) {
		f.send(e, EventDuplicateDocument, map[string]int64{"documentId": doc.ID})
		frames := drain(t, r)
		require.Equal(t, []string{EventDocumentDuplicated, EventVersionCreated}, events(frames))
		assert.Equal(t, "Copy of Brief", decodeFrame[models.Document](t, frames[0]).Title)
		drain(t, e)
	})

	t.Run("Rename", func(t *testing.T) {
		f.send(e, EventChangeDocumentTitle, map[string]any{"documentId": doc.ID, "newTitle": "Final"})
		got := only(t, r)
		require.Equal(t, EventDocumentUpdated, got.Event)
		assert.Equal(t, "Final", decodeFrame[models.Document](t, got).Title)
		drain(t, e)
	})

	t.Run("AiUsage", func(t *testing.T) {
		f.send(e, EventCreateDocumentAiUsage, map[string]any{
			"toolName":   "rephraseText",
			"text":       "make this nicer",
			"documentId": doc.ID,
		})
		got := only(t, r)
		require.Equal(t, EventDocumentAiUsageCreated, got.Event)
		usage := decodeFrame[models.AiToolUsage](t, got)
		assert.Equal(t, "Polished text.", usage.Result)
		assert.Equal(t, session.ID, usage.SessionID)
		drain(t, e)

		f.send(r, EventGetDocumentAiUsage, map[string]int64{"documentId": doc.ID})
		history := only(t, r)
		require.Equal(t, EventDocumentAiUsage, history.Event)
		assert.Len(t, decodeFrame[[]models.AiToolUsage](t, history), 1)
		drain(t, e)
	})

	t.Run("Delete", func(t *testing.T) {
		f.send(e, EventDeleteDocument, map[string]int64{"documentId": doc.ID})
		got := only(t, r)
		require.Equal(t, EventDocumentDeleted, got.Event)
		assert.Equal(t, doc.ID, decodeFrame[documentDeletedPayload](t, got).DocumentID)
	})
}

func TestGateway_Invitations(t *testing.T) {
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Team")
	admin := f.member("admin@example.com", session.ID, models.PermissionRead, models.PermissionAdmin)
	guest := f.tdb.SeedUser(t, "guest@example.com", "Guest")

	a := f.joined(admin.ID, session.ID)
	g := f.connect(guest.ID)

	f.send(a, EventCreateInvitation, map[string]string{"email": "Guest@example.com", "role": "edit"})
	created := only(t, g)
	require.Equal(t, EventNewInvitation, created.Event)
	inv := decodeFrame[models.Invitation](t, created)
	assert.Equal(t, models.PermissionEdit, inv.Role)
	assert.Equal(t, "admin@example.com", inv.InviterEmail)
	assert.Equal(t, EventNewInvitation, only(t, a).Event)

	t.Run("JoinDashboardListsNotifications", func(t *testing.T) {
		f.send(g, EventJoinDashboard, nil)
		got := only(t, g)
		require.Equal(t, EventNotifications, got.Event)
		assert.Len(t, decodeFrame[[]models.Invitation](t, got), 1)
	})

	t.Run("OnlyReceiverUpdatesStatus", func(t *testing.T) {
		f.send(a, EventUpdateNotificationStatus, map[string]any{"invitationId": inv.ID, "status": "read"})
		assert.Equal(t, "Forbidden resource", decodeFrame[errorPayload](t, only(t, a)).Message)

		f.send(g, EventUpdateNotificationStatus, map[string]any{"invitationId": inv.ID, "status": "read"})
		got := only(t, g)
		require.Equal(t, EventInvitationUpdated, got.Event)
		assert.Equal(t, models.NotificationRead, decodeFrame[models.Invitation](t, got).NotificationStatus)
		assert.Equal(t, EventInvitationUpdated, only(t, a).Event)
	})

	t.Run("UnknownStatusIsRejected", func(t *testing.T) {
		f.send(g, EventUpdateNotificationStatus, map[string]any{"invitationId": inv.ID, "status": "archived"})
		got := only(t, g)
		require.Equal(t, EventError, got.Event)
		assert.Equal(t, "Invalid notification status: archived", decodeFrame[errorPayload](t, got).Message)
		assert.Empty(t, drain(t, a))

		stored, err := f.stores.Invitations.Get(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, models.NotificationRead, stored.NotificationStatus)
	})

	t.Run("ChangeRoleRequiresAdmin", func(t *testing.T) {
		f.send(g, EventChangeInvitationRole, map[string]any{"invitationId": inv.ID, "newRole": "ADMIN"})
		assert.Equal(t, "You are not part of this session", decodeFrame[errorPayload](t, only(t, g)).Message)

		f.send(a, EventChangeInvitationRole, map[string]any{"invitationId": inv.ID, "newRole": "READ"})
		got := only(t, a)
		require.Equal(t, EventInvitationUpdated, got.Event)
		assert.Equal(t, models.PermissionRead, decodeFrame[models.Invitation](t, got).Role)
		drain(t, g)
	})

	t.Run("GetInvitations", func(t *testing.T) {
		f.send(a, EventGetInvitations, nil)
		got := only(t, a)
		require.Equal(t, EventInvitations, got.Event)
		assert.Len(t, decodeFrame[[]models.Invitation](t, got), 1)
	})

	t.Run("Accept", func(t *testing.T) {
		f.send(g, EventAcceptInvitation, map[string]int64{"invitationId": inv.ID})
		got := only(t, g)
		require.Equal(t, EventInvitationAccepted, got.Event)
		accepted := decodeFrame[invitationAcceptedPayload](t, got)
		assert.Equal(t, inv.ID, accepted.InvitationID)
		assert.Equal(t, session.ID, accepted.InvitationSessionID)

		assert.Equal(t, EventNotificationDeleted, only(t, a).Event)

		row, err := f.stores.UserSessions.Find(context.Background(), guest.ID, session.ID)
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, models.PermissionSet{models.PermissionRead}, row.Permissions)

		_, err = f.stores.Invitations.Get(context.Background(), inv.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("MembersCannotBeInvitedAgain", func(t *testing.T) {
		f.send(a, EventCreateInvitation, map[string]string{"email": "guest@example.com", "role": "EDIT"})
		assert.Equal(t, "User is already a member of this session", decodeFrame[errorPayload](t, only(t, a)).Message)
	})

	t.Run("AdminDeletesPendingInvitation", func(t *testing.T) {
		f.send(a, EventCreateInvitation, map[string]string{"email": "nobody@example.com", "role": "READ"})
		pending := decodeFrame[models.Invitation](t, only(t, a))

		f.send(a, EventDeleteNotification, map[string]int64{"invitationId": pending.ID})
		got := only(t, a)
		require.Equal(t, EventNotificationDeleted, got.Event)
		assert.Equal(t, pending.ID, decodeFrame[notificationDeletedPayload](t, got).InvitationID)
	})
}

func TestGateway_PayloadSessionMustMatchJoinedSession(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	target := f.tdb.SeedSession(t, "Target")
	own := f.tdb.SeedSession(t, "Own")
	mallory := f.member("mallory@example.com", target.ID, models.PermissionRead)
	f.tdb.SeedMembership(t, mallory.ID, own.ID, models.PermissionRead, models.PermissionEdit, models.PermissionAdmin)

	m := f.joined(mallory.ID, target.ID)

	t.Run("Rename", func(t *testing.T) {
		f.send(m, EventRenameSession, map[string]any{"newTitle": "pwned"})
		assert.Equal(t, "Insufficient permissions", decodeFrame[errorPayload](t, only(t, m)).Message)

		f.send(m, EventRenameSession, map[string]any{"newTitle": "pwned", "sessionId": own.ID})
		assert.Equal(t, "Forbidden resource", decodeFrame[errorPayload](t, only(t, m)).Message)

		for _, id := range []int64{target.ID, own.ID} {
			stored, err := f.stores.Sessions.Get(ctx, id)
			require.NoError(t, err)
			assert.NotEqual(t, "pwned", stored.Name)
		}
	})

	t.Run("CreateAdminInvitation", func(t *testing.T) {
		f.send(m, EventCreateInvitation, map[string]any{"email": "ally@example.com", "role": "ADMIN", "sessionId": own.ID})
		assert.Equal(t, "Forbidden resource", decodeFrame[errorPayload](t, only(t, m)).Message)

		invitations, err := f.stores.Invitations.ListBySession(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, invitations)
	})

	t.Run("CreateDocument", func(t *testing.T) {
		f.send(m, EventCreateDocument, map[string]any{"title": "Planted", "sessionId": own.ID})
		assert.Equal(t, "Forbidden resource", decodeFrame[errorPayload](t, only(t, m)).Message)

		docs, err := f.stores.Documents.ListBySession(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("MatchingSessionIsAllowed", func(t *testing.T) {
		f.send(m, EventGetSessionDocuments, map[string]int64{"sessionId": own.ID})
		assert.Equal(t, EventSessionDocuments, only(t, m).Event)

		f.send(m, EventSendMessage, map[string]any{"message": "hi", "sessionId": target.ID})
		assert.Equal(t, EventNewMessage, only(t, m).Event)
	})
}

func TestGateway_ChangePermissionsWithoutJoinedSession(t *testing.T) {
	ctx := context.Background()
	f := newGatewayFixture(t)
	session := f.tdb.SeedSession(t, "Header")
	editor := f.member("editor@example.com", session.ID, models.PermissionRead, models.PermissionEdit)
	reader := f.member("reader@example.com", session.ID, models.PermissionRead)

	c := f.connect(editor.ID)
	c.header.Set(SessionIDHeader, itoa(session.ID))

	f.send(c, EventChangePermissions, map[string]any{"userId": reader.ID, "permission": "EDIT"})
	assert.Empty(t, drain(t, c))

	row, err := f.stores.UserSessions.Find(ctx, reader.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionSet{models.PermissionRead}, row.Permissions)
}

// flakySessions fails lookups for the sessions marked down
type flakySessions struct {
	presence.SessionGetter
	mu   sync.Mutex
	down map[int64]bool
}

func (s *flakySessions) fail(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down[id] = true
}

func (s *flakySessions) Get(ctx context.Context, id int64) (*models.Session, error) {
	s.mu.Lock()
	down := s.down[id]
	s.mu.Unlock()
	if down {
		return nil, errors.New("session lookup failed")
	}
	return s.SessionGetter.Get(ctx, id)
}

func TestGateway_FailedJoinKeepsRoomsInStepWithPresence(t *testing.T) {
	var sessions *flakySessions
	f := newGatewayFixtureWithSessions(t, func(stores *Stores) presence.SessionGetter {
		sessions = &flakySessions{SessionGetter: stores.Sessions, down: map[int64]bool{}}
		return sessions
	})

	first := f.tdb.SeedSession(t, "First")
	second := f.tdb.SeedSession(t, "Second")
	alice := f.member("alice@example.com", first.ID, models.PermissionRead)
	f.tdb.SeedMembership(t, alice.ID, second.ID, models.PermissionRead)
	bob := f.member("bob@example.com", first.ID, models.PermissionRead)

	b := f.joined(bob.ID, first.ID)
	a := f.joined(alice.ID, first.ID)
	drain(t, b)

	t.Run("SwitchFails", func(t *testing.T) {
		sessions.fail(second.ID)
		f.send(a, EventJoinSession, map[string]int64{"sessionId": second.ID})
		assert.Equal(t, "session lookup failed", decodeFrame[errorPayload](t, only(t, a)).Message)

		assert.Equal(t, EventUserLeft, only(t, b).Event)
		_, joined := f.gw.presence.SessionIDForConnection(a.ID())
		assert.False(t, joined)
		assert.Equal(t, []string{b.ID()}, f.gw.hub.Members(SessionRoom(first.ID)))
		assert.Empty(t, f.gw.hub.Members(SessionRoom(second.ID)))
	})

	t.Run("RejoinFails", func(t *testing.T) {
		f.send(a, EventJoinSession, map[string]int64{"sessionId": first.ID})
		assert.Equal(t, EventTotalSessionData, only(t, a).Event)
		drain(t, b)

		sessions.fail(first.ID)
		f.send(a, EventJoinSession, map[string]int64{"sessionId": first.ID})
		assert.Equal(t, EventError, only(t, a).Event)
		assert.Empty(t, drain(t, b))

		sessionID, joined := f.gw.presence.SessionIDForConnection(a.ID())
		assert.True(t, joined)
		assert.Equal(t, first.ID, sessionID)
		assert.ElementsMatch(t, []string{a.ID(), b.ID()}, f.gw.hub.Members(SessionRoom(first.ID)))
	})
}
