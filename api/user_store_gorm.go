package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GormUserStore implements UserStore using GORM
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore creates a new GORM-backed user store
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// GetByID retrieves a user by ID
func (s *GormUserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "User"}
		}
		slogging.Get().Error("Failed to get user %d: %v", id, err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address, case-insensitively
func (s *GormUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "User"}
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// CreateUser stores a new account with a bcrypt password hash
func (s *GormUserStore) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	logger := slogging.Get()

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &ValidationError{Message: "A valid email is required"}
	}
	if len(password) < 6 {
		return nil, &ValidationError{Message: "Password must be at least 6 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		logger.Error("Failed to create user %s: %v", email, err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("Created user id=%d", user.ID)
	return &user, nil
}

