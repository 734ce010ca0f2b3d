package chat

import (
	"net/http"

	midsec "DChat/middleware/security"
	"DChat/module/chat/message"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler 薄查询面：消息记录与会话列表，只读。
type Handler struct {
	store *message.Store
}

func NewHandler(store *message.Store) *Handler {
	return &Handler{store: store}
}

// HandlerMessages GET /messages/:userId — 与某用户的全部往来消息，时间升序。
func (h *Handler) HandlerMessages(c *gin.Context) {
	peer, err := primitive.ObjectIDFromHex(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	self, err := primitive.ObjectIDFromHex(midsec.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	msgs, err := h.store.MessagesBetween(c.Request.Context(), self, peer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// HandlerConversations GET /conversations — 会话列表（对端 + 最近一条 + 未读数）。
func (h *Handler) HandlerConversations(c *gin.Context) {
	self, err := primitive.ObjectIDFromHex(midsec.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	rows, err := h.store.ConversationList(c.Request.Context(), self)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, rows)
}
