package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/dispatch"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/whatsapp"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/ws"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	Store      *chat.Store
	Dispatcher *dispatch.Dispatcher
	Hub        *ws.Hub
}

func NewDashboardHandler(store *chat.Store, dispatcher *dispatch.Dispatcher, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{Store: store, Dispatcher: dispatcher, Hub: hub}
}

func (h *DashboardHandler) GetConversations(c *gin.Context) {
	conversations, err := h.Store.ListConversations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, conversations)
}

func (h *DashboardHandler) GetMessages(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	if _, err := h.Store.Conversation(uint(id)); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	messages, err := h.Store.MessagesByConversation(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

type SendRequest struct {
	To      string `json:"to" binding:"required"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type"`
}

// SendMessage relays one outbound message through the dispatcher. A send
// that reached the provider but missed the local mirror answers 202 with
// persisted=false so the UI can warn instead of silently losing the copy.
func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	result, err := h.Dispatcher.Send(c.Request.Context(), req.To, req.Message, req.Type)
	if err != nil {
		var apiErr *whatsapp.APIError
		switch {
		case errors.Is(err, dispatch.ErrSentNotPersisted):
			c.JSON(http.StatusAccepted, gin.H{
				"success":             true,
				"persisted":           false,
				"whatsapp_message_id": result.ProviderMessageID,
				"error":               err.Error(),
			})
		case errors.As(err, &apiErr):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "provider rejected message",
				"details": apiErr.Body,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message", "details": err.Error()})
		}
		return
	}

	if h.Hub != nil && result.Message != nil {
		h.Hub.NotifyMessage(*result.Message)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"whatsapp_message_id": result.ProviderMessageID,
	})
}
