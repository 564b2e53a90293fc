package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/observability"
	"messaging-service/internal/telemetry"
)

// EventPublisher is the domain event sink probed by the debug routes.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

var probeEvents = map[string]bool{
	observability.EventMessageSent:    true,
	observability.EventMessageEdited:  true,
	observability.EventMessageDeleted: true,
	observability.EventMessageRead:    true,
	observability.EventThreadRead:     true,
}

// RegisterDebugRoutes mounts probes for the audit and event pipelines. Nothing is
// mounted unless enabled.
func RegisterDebugRoutes(router gin.IRoutes, audit *telemetry.AuditEmitter, events EventPublisher, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-probe", func(c *gin.Context) {
		if audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		audit.Emit(c.Request.Context(), telemetry.AuditRecord{
			Level:     "INFO",
			Action:    "debug.audit_probe",
			Outcome:   "ok",
			RequestID: requestIDFromContext(c),
			UserID:    principal(c),
		})
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Publishes a synthetic event so consumers of a routing key can be checked end to end.
	router.POST("/debug/events/:name", func(c *gin.Context) {
		if events == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event publisher not configured"})
			return
		}
		name := c.Param("name")
		if !probeEvents[name] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event " + name})
			return
		}

		requestID := requestIDFromContext(c)
		headers := observability.BuildHeaders(requestID, "")
		event := observability.NewEvent(name, gin.H{"probe": true}, headers)
		if err := events.Publish(c.Request.Context(), name, event); err != nil {
			observability.IncAMQPPublishError()
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"event": name, "request_id": requestID})
	})
}
