package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// JWTKeyManager manages JWT signing and verification keys
type JWTKeyManager struct {
	key           []byte
	signingMethod jwt.SigningMethod
}

// NewJWTKeyManager creates a key manager for an HMAC signing method
func NewJWTKeyManager(secret, signingMethod string) (*JWTKeyManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("hmac secret is required for %s", signingMethod)
	}

	var method jwt.SigningMethod
	switch signingMethod {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing method: %s", signingMethod)
	}

	return &JWTKeyManager{key: []byte(secret), signingMethod: method}, nil
}

// CreateToken creates a new JWT token with the configured signing method
func (m *JWTKeyManager) CreateToken(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(m.signingMethod, claims)
	return token.SignedString(m.key)
}

// VerifyToken verifies a JWT token using the configured verification key
func (m *JWTKeyManager) VerifyToken(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != m.signingMethod {
			return nil, fmt.Errorf("unexpected signing method: %v (expected %v)", token.Header["alg"], m.signingMethod.Alg())
		}
		return m.key, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	return token, nil
}

// GetSigningMethod returns the current signing method
func (m *JWTKeyManager) GetSigningMethod() string {
	return m.signingMethod.Alg()
}
