package auth

import (
	"errors"
	"net/http"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/gin-gonic/gin"
)

// UserIDContextKey is the gin context key holding the authenticated user id
const UserIDContextKey = "userID"

// Middleware provides cookie authentication for the HTTP routes
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// AuthRequired rejects requests without a valid accessToken cookie
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := slogging.GetContextLogger(c)

		accessToken, _ := TokensFromRequest(c.Request)
		if accessToken == "" {
			logger.Warn("Authentication failed: missing access token cookie path=%v", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		claims, err := m.service.ValidateToken(c.Request.Context(), accessToken)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, ErrTokenExpired) {
				message = "Token expired"
			}
			logger.Warn("Authentication failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(UserIDContextKey, userID)
		c.Next()
	}
}

// UserIDFromContext returns the id stored by AuthRequired
func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDContextKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
