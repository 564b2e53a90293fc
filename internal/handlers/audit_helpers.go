package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

// emitAudit records a write. messageID or peerID may be empty when the action
// does not target one.
func (h *MessageHandler) emitAudit(c *gin.Context, action, messageID, peerID string, err error) {
	if h.audit == nil {
		return
	}
	level, outcome := "INFO", "ok"
	if err != nil {
		level, outcome = "WARN", err.Error()
	}
	h.audit.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:     level,
		Action:    action,
		MessageID: messageID,
		PeerID:    peerID,
		IP:        observability.IPFromRequest(c.Request),
		Outcome:   outcome,
		RequestID: requestIDFromContext(c),
		UserID:    principal(c),
	})
}
