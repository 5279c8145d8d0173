// Package models defines GORM models for the collaboration database schema.
// The same models run on PostgreSQL and SQLite.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Invitation states
const (
	NotificationUnread = "unread"
	NotificationRead   = "read"

	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
)

// User represents a registered account
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Name         string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Avatar       *string   `gorm:"column:avatar;type:text" json:"avatar"`
	PasswordHash string    `gorm:"column:password_hash;type:text" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// Session is a named collaboration group of users and documents
type Session struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for Session
func (Session) TableName() string {
	return "sessions"
}

// UserSession is the permission row for one (user, session) pair
type UserSession struct {
	ID             int64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID         int64         `gorm:"column:user_id;not null;uniqueIndex:idx_user_session" json:"userId"`
	SessionID      int64         `gorm:"column:session_id;not null;uniqueIndex:idx_user_session;index" json:"sessionId"`
	Permissions    PermissionSet `gorm:"column:permissions;not null" json:"permissions"`
	TimeSpent      int64         `gorm:"column:time_spent;not null;default:0" json:"timeSpent"`
	LastInteracted time.Time     `gorm:"column:last_interacted;not null" json:"lastInteracted"`

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Session Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserSession
func (UserSession) TableName() string {
	return "user_sessions"
}

// BeforeCreate stamps the interaction time
func (us *UserSession) BeforeCreate(tx *gorm.DB) error {
	if us.LastInteracted.IsZero() {
		us.LastInteracted = time.Now().UTC()
	}
	if us.Permissions == nil {
		us.Permissions = PermissionSet{PermissionRead}
	}
	return nil
}

// Document is a rich-text document owned by a session
type Document struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID   int64     `gorm:"column:session_id;not null;index" json:"sessionId"`
	Title       string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	RichContent string    `gorm:"column:rich_content;type:text;not null;default:''" json:"richContent"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`
	LastUpdated time.Time `gorm:"column:last_updated;not null;autoUpdateTime" json:"lastUpdated"`

	Session Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Document
func (Document) TableName() string {
	return "documents"
}

// Version is an immutable snapshot of a document's content
type Version struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DocumentID  int64     `gorm:"column:document_id;not null;index" json:"documentId"`
	RichContent string    `gorm:"column:rich_content;type:text;not null;default:''" json:"richContent"`
	UserEmail   string    `gorm:"column:user_email;type:varchar(255);not null" json:"userEmail"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`

	Document Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Version
func (Version) TableName() string {
	return "versions"
}

// Message is a chat message posted in a session
type Message struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID int64     `gorm:"column:session_id;not null;index" json:"sessionId"`
	SenderID  int64     `gorm:"column:sender_id;not null" json:"senderId"`
	Text      string    `gorm:"column:text;type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"createdAt"`

	Sender  User    `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender"`
	Session Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}

// Invitation offers a role in a session to an email address
type Invitation struct {
	ID                 int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SessionID          int64      `gorm:"column:session_id;not null;index" json:"sessionId"`
	Email              string     `gorm:"column:email;type:varchar(255);not null;index" json:"email"`
	Role               Permission `gorm:"column:role;type:varchar(16);not null" json:"role"`
	InviterEmail       string     `gorm:"column:inviter_email;type:varchar(255);not null" json:"inviterEmail"`
	NotificationStatus string     `gorm:"column:notification_status;type:varchar(16);not null;default:unread" json:"notificationStatus"`
	InvitationStatus   string     `gorm:"column:invitation_status;type:varchar(16);not null;default:pending" json:"invitationStatus"`
	Date               time.Time  `gorm:"column:date;not null;autoCreateTime" json:"date"`

	Session Session `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"session"`
}

// TableName specifies the table name for Invitation
func (Invitation) TableName() string {
	return "invitations"
}

// AiToolUsage records one AI tool invocation on a document
type AiToolUsage struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"column:user_id;not null;index" json:"userId"`
	SessionID  int64     `gorm:"column:session_id;not null;index" json:"sessionId"`
	DocumentID int64     `gorm:"column:document_id;not null;index" json:"documentId"`
	ToolName   string    `gorm:"column:tool_name;type:varchar(64);not null" json:"toolName"`
	SentText   string    `gorm:"column:sent_text;type:text;not null" json:"sentText"`
	Result     string    `gorm:"column:result;type:text;not null" json:"result"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;autoCreateTime" json:"timestamp"`

	Document Document `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for AiToolUsage
func (AiToolUsage) TableName() string {
	return "ai_tool_usages"
}

// AllModels returns all models for migration
func AllModels() []any {
	return []any{
		&User{},
		&Session{},
		&UserSession{},
		&Document{},
		&Version{},
		&Message{},
		&Invitation{},
		&AiToolUsage{},
	}
}
