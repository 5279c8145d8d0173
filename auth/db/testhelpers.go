package db

import (
	"fmt"
	"testing"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB holds a test database connection and cleanup function
type TestDB struct {
	DB      *gorm.DB
	Cleanup func()
}

// NewTestDB creates a new in-memory SQLite database for testing.
// Each call gets its own named shared-cache database so goroutines see the same data.
func NewTestDB(t *testing.T) (*TestDB, error) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return nil, err
	}

	cleanup := func() {
		_ = sqlDB.Close()
	}

	return &TestDB{
		DB:      db,
		Cleanup: cleanup,
	}, nil
}

// MustCreateTestDB creates a test DB, failing the test on error.
// Cleanup is registered with t.
func MustCreateTestDB(t *testing.T) *TestDB {
	t.Helper()

	tdb, err := NewTestDB(t)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(tdb.Cleanup)

	return tdb
}

// SeedUser creates a test user and returns it.
func (tdb *TestDB) SeedUser(t *testing.T, email, name string) *models.User {
	t.Helper()

	user := &models.User{Email: email, Name: name}
	if err := tdb.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedSession creates a test session and returns it.
func (tdb *TestDB) SeedSession(t *testing.T, name string) *models.Session {
	t.Helper()

	session := &models.Session{Name: name}
	if err := tdb.DB.Create(session).Error; err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	return session
}

// SeedMembership grants perms on a session to a user.
func (tdb *TestDB) SeedMembership(t *testing.T, userID, sessionID int64, perms ...models.Permission) *models.UserSession {
	t.Helper()

	us := &models.UserSession{
		UserID:      userID,
		SessionID:   sessionID,
		Permissions: models.NewPermissionSet(perms...),
	}
	if err := tdb.DB.Create(us).Error; err != nil {
		t.Fatalf("failed to seed membership: %v", err)
	}
	return us
}

// SeedDocument creates a document inside a session.
func (tdb *TestDB) SeedDocument(t *testing.T, sessionID int64, title, content string) *models.Document {
	t.Helper()

	doc := &models.Document{SessionID: sessionID, Title: title, RichContent: content}
	if err := tdb.DB.Create(doc).Error; err != nil {
		t.Fatalf("failed to seed document: %v", err)
	}
	return doc
}
