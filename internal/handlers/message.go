package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/errs"
	"messaging-service/internal/messaging"
	"messaging-service/internal/middleware"
	"messaging-service/internal/models"
	"messaging-service/internal/telemetry"
)

// MessageService is the set of messaging operations exposed over HTTP.
type MessageService interface {
	SendMessage(ctx context.Context, in messaging.SendInput) (models.Message, error)
	GetThread(ctx context.Context, a, b string, q messaging.ThreadQuery) ([]models.Message, error)
	GetChatHistory(ctx context.Context, a, b string, page int) ([]models.Message, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	MarkMessageRead(ctx context.Context, id string) (models.Message, error)
	MarkThreadRead(ctx context.Context, me, peer string) (models.ThreadReadResult, error)
	GetUnreadCount(ctx context.Context, me, peer string) (int, error)
	EditMessage(ctx context.Context, id, actorID, body string) (models.Message, error)
	DeleteMessage(ctx context.Context, id, actorID string) (messaging.DeleteResult, error)
	SearchThread(ctx context.Context, me, peer, keyword string) ([]models.Message, error)
}

// MessageHandler serves the direct-message endpoints. The acting user always
// comes from the auth middleware, never from the request body.
type MessageHandler struct {
	service MessageService
	audit   *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler. audit may be nil.
func NewMessageHandler(service MessageService, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{service: service, audit: audit}
}

// Register mounts the routes on group.
func (h *MessageHandler) Register(group *gin.RouterGroup) {
	group.POST("", h.SendMessage)
	group.GET("/conversations", h.ListConversations)
	group.GET("/search", h.SearchThread)
	group.GET("/thread/:peer", h.GetThread)
	group.PATCH("/thread/:peer/read", h.MarkThreadRead)
	group.GET("/history/:peer/:page", h.GetChatHistory)
	group.GET("/unread/:peer", h.GetUnreadCount)
	group.PATCH("/:id/read", h.MarkMessageRead)
	group.PATCH("/:id", h.EditMessage)
	group.DELETE("/:id", h.DeleteMessage)
}

type attachmentRequest struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Type     string `json:"type"`
}

type sendRequest struct {
	RecipientID string             `json:"recipient_id" binding:"required"`
	Body        string             `json:"body"`
	Attachment  *attachmentRequest `json:"attachment"`
	// Flat form used by older clients.
	FileURL  string `json:"file_url"`
	FileType string `json:"file_type"`
}

func (r sendRequest) attachment() *messaging.AttachmentInput {
	switch {
	case r.Attachment != nil:
		return &messaging.AttachmentInput{URL: r.Attachment.URL, MimeType: r.Attachment.MimeType, Type: models.FileType(r.Attachment.Type)}
	case r.FileURL != "":
		return &messaging.AttachmentInput{URL: r.FileURL, Type: models.FileType(r.FileType)}
	default:
		return nil
	}
}

// SendMessage stores a message from the authenticated user.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), messaging.SendInput{
		SenderID:    principal(c),
		RecipientID: req.RecipientID,
		Body:        req.Body,
		Attachment:  req.attachment(),
	})
	h.emitAudit(c, "message.send", msg.ID, req.RecipientID, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// GetThread returns a page of the thread with :peer.
func (h *MessageHandler) GetThread(c *gin.Context) {
	q := messaging.ThreadQuery{
		Limit: queryInt(c, "limit"),
		Page:  queryInt(c, "page"),
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC3339 timestamp"})
			return
		}
		q.Before = &before
	}

	msgs, err := h.service.GetThread(c.Request.Context(), principal(c), c.Param("peer"), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// GetChatHistory returns the fixed-size page :page of the thread with :peer.
func (h *MessageHandler) GetChatHistory(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	msgs, err := h.service.GetChatHistory(c.Request.Context(), principal(c), c.Param("peer"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "page": page})
}

// ListConversations returns the authenticated user's conversation list.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	list, err := h.service.ListConversations(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// MarkMessageRead flags one message as read. The caller is not required to be
// the recipient; the audit record keeps who flipped it.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	id := c.Param("id")
	msg, err := h.service.MarkMessageRead(c.Request.Context(), id)
	h.emitAudit(c, "message.read", id, "", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// MarkThreadRead flags everything :peer sent to the authenticated user as read.
func (h *MessageHandler) MarkThreadRead(c *gin.Context) {
	peer := c.Param("peer")
	res, err := h.service.MarkThreadRead(c.Request.Context(), principal(c), peer)
	h.emitAudit(c, "thread.read", "", peer, err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetUnreadCount returns how many messages from :peer are unread.
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.service.GetUnreadCount(c.Request.Context(), principal(c), c.Param("peer"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// EditMessage replaces the body of a message the authenticated user sent.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	msg, err := h.service.EditMessage(c.Request.Context(), id, principal(c), req.Body)
	h.emitAudit(c, "message.edit", id, "", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage removes a message the authenticated user sent.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")
	res, err := h.service.DeleteMessage(c.Request.Context(), id, principal(c))
	h.emitAudit(c, "message.delete", id, "", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SearchThread finds messages in the thread with ?peer containing ?keyword.
func (h *MessageHandler) SearchThread(c *gin.Context) {
	msgs, err := h.service.SearchThread(c.Request.Context(), principal(c), c.Query("peer"), c.Query("keyword"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func principal(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return 0
	}
	return n
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var infra *errs.InfrastructureError
	switch {
	case errors.Is(err, errs.ErrInvalidMessage), errors.Is(err, errs.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender may change this message"})
	case errors.As(err, &infra), errs.IsRetryable(err):
		log.Printf("messaging store unavailable request_id=%s: %v", requestIDFromContext(c), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "message store unavailable, retry later"})
	default:
		log.Printf("messaging request failed request_id=%s: %v", requestIDFromContext(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
