// Package server assembles the gin engine: routes, tracing, and request
// telemetry.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"notifyd/internal/handler"
	"notifyd/internal/telemetry"
)

const serviceName = "notifyd"

// healthPath is excluded from request telemetry.
const healthPath = "/healthz"

// New builds the router. emitter may be nil; request telemetry then no-ops.
func New(h *handler.Handler, emitter telemetry.EventEmitter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(TelemetryMiddleware(emitter, map[string]bool{healthPath: true}))

	r.GET(healthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	{
		v1.POST("/notifications/dispatch", h.Dispatch)
		v1.POST("/notifications/:id/ack", h.Acknowledge)
		v1.GET("/notifications/recent", h.ListRecent)
		v1.GET("/notifications/:id", h.GetRecord)
		v1.POST("/login-attempts", h.LoginAttempt)
		v1.POST("/devices/bind", h.CompleteBinding)
		v1.GET("/users/:id/notifications", h.ListForUser)
		v1.PATCH("/users/:id/context", h.UpdateContext)
	}
	return r
}
