package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api/models"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/gin-gonic/gin"
)

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	Name string `json:"name" binding:"required"`
}

// RegisterRoutes mounts the WebSocket endpoint and the session routes.
// authRequired guards the session routes; /ws authenticates on its own.
func (g *Gateway) RegisterRoutes(router gin.IRouter, authRequired gin.HandlerFunc) {
	router.GET("/ws", g.HandleWS)

	sessions := router.Group("/api/sessions", authRequired)
	sessions.POST("", g.createSession)
	sessions.GET("", g.listSessions)
	sessions.GET("/:id", g.getSession)
}

func (g *Gateway) createSession(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := g.stores.Sessions.Create(c.Request.Context(), req.Name, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	slogging.GetContextLogger(c).Info("Created session %d for user %d", session.ID, userID)
	c.JSON(http.StatusCreated, session)
}

func (g *Gateway) listSessions(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	sessions, err := g.stores.Sessions.ListForUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (g *Gateway) getSession(c *gin.Context) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return
	}

	// authorise before loading so a missing id and a foreign one look the same
	ctx := c.Request.Context()
	if err := g.guard.Authorize(ctx, userID, sessionID, models.PermissionRead); err != nil {
		if errors.Is(err, ErrNotSessionMember) || errors.Is(err, ErrInsufficientPermissions) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		writeError(c, err)
		return
	}
	session, err := g.stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// writeError maps store errors onto HTTP statuses
func writeError(c *gin.Context, err error) {
	var validation *ValidationError
	switch {
	case IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	default:
		slogging.GetContextLogger(c).Error("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
