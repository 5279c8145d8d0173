package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Credential verification failures
var (
	// ErrTokenExpired is the only verification failure that permits a silent refresh
	ErrTokenExpired        = errors.New("access token expired")
	ErrInvalidToken        = errors.New("invalid access token")
	ErrTokenRevoked        = errors.New("access token revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

const issuer = "collab"

// TokenPair contains an access token and a refresh token
type TokenPair struct {
	AccessToken  string `json:"accessToken"`  //nolint:gosec // G117 - token pair field
	RefreshToken string `json:"refreshToken"` //nolint:gosec // G117 - token pair field
	ExpiresIn    int    `json:"expiresIn"`
}

// Claims represents the JWT claims; the subject is the numeric user id
type Claims struct {
	jwt.RegisteredClaims
}

// UserID parses the subject claim
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// Service issues, verifies, refreshes and revokes credentials
type Service struct {
	keyManager *JWTKeyManager
	refresh    *RefreshStore
	blacklist  *TokenBlacklist
	accessTTL  time.Duration
	now        func() time.Time
}

// NewService creates the credential service
func NewService(keyManager *JWTKeyManager, refresh *RefreshStore, blacklist *TokenBlacklist, accessTTL time.Duration) *Service {
	return &Service{
		keyManager: keyManager,
		refresh:    refresh,
		blacklist:  blacklist,
		accessTTL:  accessTTL,
		now:        time.Now,
	}
}

// AccessTTL returns the lifetime of issued access tokens
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateTokens issues a new access/refresh pair for userID
func (s *Service) GenerateTokens(ctx context.Context, userID int64) (TokenPair, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	tokenString, err := s.keyManager.CreateToken(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to create token: %w", err)
	}

	refreshToken := uuid.New().String()
	if err := s.refresh.Save(ctx, refreshToken, userID); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  tokenString,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

// ValidateToken verifies signature, expiry, issuer and revocation
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.keyManager.VerifyToken(tokenString, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Issuer != issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsTokenBlacklisted(ctx, tokenString)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// RefreshToken exchanges a refresh token for a new pair; the old refresh token is consumed
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	userID, err := s.refresh.Consume(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	slogging.Get().Debug("Refresh token exchanged user_id=%d", userID)
	return s.GenerateTokens(ctx, userID)
}

// RevokeToken revokes a refresh token
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.refresh.Delete(ctx, refreshToken)
}

// Logout revokes both halves of a pair; the access token must still verify
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken != "" {
		if err := s.RevokeToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
	}
	if accessToken == "" || s.blacklist == nil {
		return nil
	}

	claims, err := s.ValidateToken(ctx, accessToken)
	if err != nil {
		// expired or already revoked tokens need no blacklist entry
		if errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenRevoked) {
			return nil
		}
		return err
	}
	return s.blacklist.BlacklistToken(ctx, accessToken, claims.ExpiresAt.Time)
}
