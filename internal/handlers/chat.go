package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"geofriends-service/internal/chat"
	"geofriends-service/internal/repositories"
)

// ChatHandler exposes the chat lifecycle over HTTP.
type ChatHandler struct {
	engine *chat.Engine
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(engine *chat.Engine) *ChatHandler {
	return &ChatHandler{engine: engine}
}

// GeneralChat returns the single group chat, creating it on first access.
func (h *ChatHandler) GeneralChat(c *gin.Context) {
	chatDoc, err := h.engine.GeneralChat(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load general chat"})
		return
	}
	c.JSON(http.StatusOK, chatDoc)
}

// StartPrivateChat creates or returns the private chat with a partner.
func (h *ChatHandler) StartPrivateChat(c *gin.Context) {
	var req struct {
		PartnerID string `json:"partner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	chatDoc, err := h.engine.PrivateChat(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		h.renderError(c, err, "could not open chat")
		return
	}
	c.JSON(http.StatusOK, chatDoc)
}

// GetMessages opens a chat: returns its messages, marks it read and arms the
// caller's countdown for their latest message.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	msgs, err := h.engine.OpenChat(c.Request.Context(), chatID, userID)
	if err != nil {
		h.renderError(c, err, "failed to load messages")
		return
	}

	resp := gin.H{"messages": msgs}
	if wChatID, messageID, editLeft, deleteLeft, ok := h.engine.Windows().Remaining(userID); ok && wChatID == chatID {
		resp["countdown"] = gin.H{
			"message_id":  messageID,
			"edit_left":   editLeft,
			"delete_left": deleteLeft,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// PostMessage sends a message. Senders with chat disabled and blank texts are
// a silent no-op, reported as sent=false.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, sent, err := h.engine.SendMessage(c.Request.Context(), chatID, userID, req.Text)
	if err != nil {
		h.renderError(c, err, "failed to send message")
		return
	}
	if !sent {
		c.JSON(http.StatusOK, gin.H{"sent": false})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sent": true, "message": msg})
}

// EditMessage rewrites a message while the edit window is open.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.EditMessage(c.Request.Context(), chatID, messageID, userID, req.Text); err != nil {
		h.renderError(c, err, "could not edit message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "edited"})
}

// DeleteMessage soft-deletes a message while the delete window is open.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	messageID := c.Param("message_id")
	userID := c.GetString("userID")

	if err := h.engine.DeleteMessage(c.Request.Context(), chatID, messageID, userID); err != nil {
		h.renderError(c, err, "could not delete message")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkRead upserts the caller's last-read timestamp for the chat.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	if err := h.engine.MarkRead(c.Request.Context(), userID, chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark chat read"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Unread returns the unread flag per chat for the caller.
func (h *ChatHandler) Unread(c *gin.Context) {
	userID := c.GetString("userID")

	states, err := h.engine.UnreadStates(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute unread state"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": states})
}

// RequestClear records the caller's request to purge a private chat.
func (h *ChatHandler) RequestClear(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")

	if err := h.engine.RequestClear(c.Request.Context(), chatID, userID); err != nil {
		h.renderError(c, err, "could not request clear")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "clear requested"})
}

// ClearRequests lists chats with pending clear requests (admin view).
func (h *ChatHandler) ClearRequests(c *gin.Context) {
	chats, err := h.engine.ClearRequests(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load clear requests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// PurgeChat executes the admin-tier recursive delete.
func (h *ChatHandler) PurgeChat(c *gin.Context) {
	chatID := c.Param("chat_id")

	if err := h.engine.Purge(c.Request.Context(), chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear chat"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) renderError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrNotMember),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, chat.ErrEditWindowClosed),
		errors.Is(err, chat.ErrDeleteWindowClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrGroupClearRequest),
		errors.Is(err, chat.ErrSelfChat):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
