package api

import (
	"gorm.io/gorm"
)

// NewGormStores wires every collaborator store onto one database handle
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:        NewGormUserStore(db),
		Sessions:     NewGormSessionStore(db),
		UserSessions: NewGormUserSessionStore(db),
		Documents:    NewGormDocumentStore(db),
		Versions:     NewGormVersionStore(db),
		Messages:     NewGormMessageStore(db),
		Invitations:  NewGormInvitationStore(db),
		AiUsage:      NewGormAiUsageStore(db),
	}
}
