package auth

import (
	"errors"
	"net/http"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/gin-gonic/gin"
)

// Handlers exposes the cookie refresh and logout endpoints
type Handlers struct {
	service *Service
	cookies CookieSettings
}

// NewHandlers creates the auth HTTP handlers
func NewHandlers(service *Service, cookies CookieSettings) *Handlers {
	return &Handlers{service: service, cookies: cookies}
}

// RegisterRoutes mounts the auth endpoints under /api/auth
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/api/auth")
	group.POST("/refresh", h.Refresh)
	group.POST("/logout", h.Logout)
}

// Refresh rotates the credential cookies using the refreshToken cookie
func (h *Handlers) Refresh(c *gin.Context) {
	_, refreshToken := TokensFromRequest(c.Request)

	pair, err := h.service.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidRefreshToken) {
			status = http.StatusUnauthorized
		}
		slogging.GetContextLogger(c).Warn("Failed to refresh token: %v", err)
		SetCookieHeader(c.Writer.Header(), h.cookies.Expired())
		c.JSON(status, gin.H{"error": "Failed to refresh token"})
		return
	}

	SetCookieHeader(c.Writer.Header(), h.cookies.Cookies(pair))
	c.JSON(http.StatusOK, gin.H{"expiresIn": pair.ExpiresIn})
}

// Logout revokes the current credentials and clears the cookies
func (h *Handlers) Logout(c *gin.Context) {
	accessToken, refreshToken := TokensFromRequest(c.Request)

	if err := h.service.Logout(c.Request.Context(), accessToken, refreshToken); err != nil {
		slogging.GetContextLogger(c).Warn("Logout incomplete: %v", err)
	}

	SetCookieHeader(c.Writer.Header(), h.cookies.Expired())
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
