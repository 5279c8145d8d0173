package main

import (
	"context"
	"net/http"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/auth"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Pinger reports whether the backing stores are reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	gateway   *api.Gateway
	auth      *auth.Service
	cookies   auth.CookieSettings
	databases Pinger
	gatherer  prometheus.Gatherer
	isDev     bool
}

// newRouter builds the gin engine serving /ws, the session and auth routes,
// /healthz and /metrics
func newRouter(deps routerDeps) *gin.Engine {
	if !deps.isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(slogging.Recoverer())
	r.Use(slogging.RequestLogger())

	r.GET("/healthz", healthHandler(deps.databases))
	r.GET("/metrics", gin.WrapH(telemetry.Handler(deps.gatherer)))

	auth.NewHandlers(deps.auth, deps.cookies).RegisterRoutes(r)
	deps.gateway.RegisterRoutes(r, auth.NewMiddleware(deps.auth).AuthRequired())

	return r
}

func healthHandler(databases Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := databases.Ping(ctx); err != nil {
			slogging.GetContextLogger(c).Error("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
