package server

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"notifyd/internal/telemetry"
	telemetrydomain "notifyd/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape stored in Event.Metadata for
// http_request events.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// TelemetryMiddleware emits one telemetry event per handled request.
// Best-effort: emit failures are logged downstream and never fail the request.
// If emitter is nil the middleware no-ops. skipPaths holds full route paths to
// not emit (e.g. the health check).
func TelemetryMiddleware(emitter telemetry.EventEmitter, skipPaths map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if emitter == nil || skipPaths[c.FullPath()] {
			return
		}
		meta := httpRequestMetadata{
			Method:     c.Request.Method,
			Path:       c.FullPath(),
			StatusCode: c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
		}
		metaJSON, _ := json.Marshal(meta)
		telemetry.EmitAsync(emitter, c.Request.Context(), &telemetrydomain.Event{
			ID:        uuid.New().String(),
			Action:    telemetrydomain.ActionHTTPRequest,
			Source:    "http_middleware",
			Metadata:  metaJSON,
			CreatedAt: time.Now().UTC(),
		})
	}
}
