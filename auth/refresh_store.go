package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh_token:"

// RefreshStore maps opaque refresh tokens to user ids in Redis
type RefreshStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRefreshStore creates a refresh token store whose entries live for ttl
func NewRefreshStore(redisClient *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{redis: redisClient, ttl: ttl}
}

// Save stores token for userID
func (s *RefreshStore) Save(ctx context.Context, token string, userID int64) error {
	if err := s.redis.Set(ctx, refreshKeyPrefix+token, userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// Consume returns the owner of token and deletes it so it cannot be replayed
func (s *RefreshStore) Consume(ctx context.Context, token string) (int64, error) {
	value, err := s.redis.GetDel(ctx, refreshKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidRefreshToken
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read refresh token: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed owner", ErrInvalidRefreshToken)
	}
	return userID, nil
}

// Delete revokes token
func (s *RefreshStore) Delete(ctx context.Context, token string) error {
	return s.redis.Del(ctx, refreshKeyPrefix+token).Err()
}
