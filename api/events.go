package api

import (
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
)

// Envelope is the frame shape in both directions: {"event": name, "data": payload}
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Inbound event names
const (
	EventJoinSession       = "joinSession"
	EventLeaveSession      = "leaveSession"
	EventDeleteSession     = "deleteSession"
	EventRenameSession     = "renameSession"
	EventChangePermissions = "changePermissions"
	EventSendMessage       = "sendMessage"
	EventGetMessages       = "getMessages"

	EventChangeDocumentTitle          = "changeDocumentTitle"
	EventCreateDocument               = "createDocument"
	EventDeleteDocument               = "deleteDocument"
	EventDuplicateDocument            = "duplicateDocument"
	EventChangeContentAndSaveDocument = "changeContentAndSaveDocument"
	EventApplyVersion                 = "applyVersion"
	EventGetDocument                  = "getDocument"
	EventGetDocumentAiUsage           = "getDocumentAiUsage"
	EventCreateDocumentAiUsage        = "createDocumentAiUsage"
	EventGetVersions                  = "getVersions"
	EventGetSessionDocuments          = "getSessionDocuments"

	EventJoinDashboard            = "joinDashboard"
	EventCreateInvitation         = "createInvitation"
	EventUpdateNotificationStatus = "updateNotificationStatus"
	EventDeleteNotification       = "deleteNotification"
	EventAcceptInvitation         = "acceptInvitation"
	EventChangeInvitationRole     = "changeInvitationRole"
	EventGetInvitations           = "getInvitations"
)

// Outbound event names
const (
	EventError              = "error"
	EventTotalSessionData   = "totalSessionData"
	EventNewOnlineUser      = "newOnlineUser"
	EventInvalidSession     = "invalidSession"
	EventUserLeft           = "userLeft"
	EventSessionDeleted     = "sessionDeleted"
	EventSessionData        = "sessionData"
	EventPermissionsChanged = "permissionsChanged"
	EventNewMessage         = "newMessage"
	EventMessages           = "messages"

	EventDocumentUpdated        = "documentUpdated"
	EventDocumentCreated        = "documentCreated"
	EventVersionCreated         = "versionCreated"
	EventDocumentDeleted        = "documentDeleted"
	EventDocumentDuplicated     = "documentDuplicated"
	EventDocumentData           = "documentData"
	EventLastEditedDocument     = "lastEditedDocument"
	EventInvalidDocument        = "invalidDocument"
	EventDocumentAiUsage        = "documentAiUsage"
	EventDocumentAiUsageCreated = "documentAiUsageCreated"
	EventVersionsData           = "versionsData"
	EventSessionDocuments       = "sessionDocuments"

	EventNotifications       = "notifications"
	EventNewInvitation       = "newInvitation"
	EventInvitationUpdated   = "invitationUpdated"
	EventNotificationDeleted = "notificationDeleted"
	EventInvitationAccepted  = "invitationAccepted"
	EventInvitations         = "invitations"
)

// Inbound payloads

type sessionIDPayload struct {
	SessionID int64 `json:"sessionId"`
}

type renameSessionPayload struct {
	NewTitle string `json:"newTitle"`
}

type changePermissionsPayload struct {
	UserID     int64  `json:"userId"`
	Permission string `json:"permission"`
}

type sendMessagePayload struct {
	Message string `json:"message"`
}

type documentIDPayload struct {
	DocumentID int64 `json:"documentId"`
}

type changeDocumentTitlePayload struct {
	DocumentID int64  `json:"documentId"`
	NewTitle   string `json:"newTitle"`
}

type createDocumentPayload struct {
	Title string `json:"title"`
}

type changeContentPayload struct {
	DocumentID int64  `json:"documentId"`
	NewContent string `json:"newContent"`
}

type applyVersionPayload struct {
	DocumentID int64 `json:"documentId"`
	VersionID  int64 `json:"versionId"`
}

type createAiUsagePayload struct {
	ToolName       string `json:"toolName"`
	Text           string `json:"text"`
	DocumentID     int64  `json:"documentId"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
}

type createInvitationPayload struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type invitationIDPayload struct {
	InvitationID int64 `json:"invitationId"`
}

type notificationStatusPayload struct {
	InvitationID int64  `json:"invitationId"`
	Status       string `json:"status"`
}

type changeInvitationRolePayload struct {
	InvitationID int64  `json:"invitationId"`
	NewRole      string `json:"newRole"`
}

// Outbound payloads

type errorPayload struct {
	Message string `json:"message"`
}

type userLeftPayload struct {
	UserID int64 `json:"userId"`
}

type sessionDeletedPayload struct {
	SessionID int64  `json:"sessionId"`
	Message   string `json:"message"`
	UserID    int64  `json:"userId"`
}

type permissionsChangedPayload struct {
	UserID      int64                `json:"userId"`
	Permissions models.PermissionSet `json:"permissions"`
}

type documentDeletedPayload struct {
	DocumentID int64 `json:"documentId"`
}

type invalidDocumentPayload struct {
	Message    string `json:"message"`
	DocumentID int64  `json:"documentId"`
}

type notificationDeletedPayload struct {
	InvitationID int64 `json:"invitationId"`
}

type invitationAcceptedPayload struct {
	InvitationID        int64 `json:"invitationId"`
	InvitationSessionID int64 `json:"invitationSessionId"`
}
