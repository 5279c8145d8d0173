package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/redis/go-redis/v9"
)

const blacklistKeyPrefix = "blacklist:token:"

// TokenBlacklist manages revoked access tokens using Redis
type TokenBlacklist struct {
	redis *redis.Client
}

// NewTokenBlacklist creates a new token blacklist service
func NewTokenBlacklist(redisClient *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{redis: redisClient}
}

// BlacklistToken revokes an access token until expiresAt
func (tb *TokenBlacklist) BlacklistToken(ctx context.Context, tokenString string, expiresAt time.Time) error {
	logger := slogging.Get()

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		logger.Debug("Token already expired, skipping blacklist expiration_time=%v", expiresAt)
		return nil
	}

	tokenHash := hashToken(tokenString)
	if err := tb.redis.Set(ctx, blacklistKeyPrefix+tokenHash, "blacklisted", ttl).Err(); err != nil {
		logger.Error("Failed to store token in blacklist token_hash=%v error=%v", tokenHash[:16]+"...", err)
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	logger.Info("Token blacklisted token_hash=%v ttl_seconds=%v", tokenHash[:16]+"...", int(ttl.Seconds()))
	return nil
}

// IsTokenBlacklisted checks if an access token was revoked
func (tb *TokenBlacklist) IsTokenBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	exists, err := tb.redis.Exists(ctx, blacklistKeyPrefix+hashToken(tokenString)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}

// hashToken creates a SHA-256 hash of the token for storage
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
