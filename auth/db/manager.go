package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manager handles database connections
type Manager struct {
	gorm  *GormDB
	redis *RedisDB
	mu    sync.Mutex
}

// NewManager creates a new database manager
func NewManager() *Manager {
	return &Manager{}
}

// InitGorm initializes the relational connection
func (m *Manager) InitGorm(cfg GormConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gorm != nil {
		return fmt.Errorf("gorm connection already initialized")
	}

	db, err := NewGormDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	m.gorm = db
	return nil
}

// InitRedis initializes the Redis connection
func (m *Manager) InitRedis(cfg RedisConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis != nil {
		return fmt.Errorf("redis connection already initialized")
	}

	db, err := NewRedisDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	m.redis = db
	return nil
}

// Gorm returns the relational connection
func (m *Manager) Gorm() *GormDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gorm
}

// Redis returns the Redis connection
func (m *Manager) Redis() *RedisDB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redis
}

// Close closes all database connections
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.gorm != nil {
		if err := m.gorm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ping checks if all database connections are alive
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.gorm != nil {
		if err := m.gorm.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database ping failed: %w", err))
		}
	}
	if m.redis != nil {
		if err := m.redis.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis ping failed: %w", err))
		}
	}
	return errors.Join(errs...)
}
