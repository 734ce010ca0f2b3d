package status

import (
	"net/http"

	midsec "DChat/middleware/security"
	"DChat/module/chat/message"
	chatsrv "DChat/service/chat"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler 消息状态的 HTTP 面。
// 与 socket 路径的差别（继承自既有接口，刻意保留）：条件更新未命中
// 这里报 404，socket 路径同样情形按成功空操作处理。
type Handler struct {
	engine *message.StatusEngine
	store  *message.Store
	gw     *chatsrv.Server
}

func NewHandler(engine *message.StatusEngine, store *message.Store, gw *chatsrv.Server) *Handler {
	return &Handler{engine: engine, store: store, gw: gw}
}

// HandlerMarkDelivered PUT /message-status/:messageId/delivered
func (h *Handler) HandlerMarkDelivered(c *gin.Context) {
	msgID, callerID, ok := h.params(c, "messageId")
	if !ok {
		return
	}

	msg, applied, err := h.engine.MarkDelivered(c.Request.Context(), msgID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Message not found or already delivered"})
		return
	}

	// 状态推进只有发送方需要知道
	h.gw.EmitToUser(msg.Sender.Hex(), chatsrv.EventMessageStatus, chatsrv.MessageStatusEvent{
		MessageID:   msg.ID.Hex(),
		Status:      string(msg.Status),
		Delivered:   true,
		DeliveredAt: msg.DeliveredAt,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message marked as delivered", "data": msg})
}

// HandlerMarkRead PUT /message-status/:messageId/read
func (h *Handler) HandlerMarkRead(c *gin.Context) {
	msgID, callerID, ok := h.params(c, "messageId")
	if !ok {
		return
	}

	msg, applied, err := h.engine.MarkRead(c.Request.Context(), msgID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Message not found or already read"})
		return
	}

	h.gw.EmitToUser(msg.Sender.Hex(), chatsrv.EventMessageStatus, chatsrv.MessageStatusEvent{
		MessageID: msg.ID.Hex(),
		Status:    string(msg.Status),
		ReadAt:    msg.ReadAt,
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message marked as read", "data": msg})
}

// HandlerMarkAllRead PUT /message-status/conversation/:conversationId/read-all
// 0 条是合法结果，不报错。
func (h *Handler) HandlerMarkAllRead(c *gin.Context) {
	convID, callerID, ok := h.params(c, "conversationId")
	if !ok {
		return
	}

	count, err := h.engine.MarkAllRead(c.Request.Context(), convID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No unread messages to mark as read", "readCount": 0})
		return
	}

	// 聚合已读事件发给对端（发送方）
	if conv, gerr := h.store.GetConversation(c.Request.Context(), convID); gerr == nil {
		peer := conv.Peer(callerID)
		if !peer.IsZero() {
			h.gw.EmitToUser(peer.Hex(), chatsrv.EventConversationRead, chatsrv.ConversationReadEvent{
				ConversationID: convID.Hex(),
				ReadCount:      count,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "messages marked as read", "readCount": count})
}

func (h *Handler) params(c *gin.Context, idParam string) (primitive.ObjectID, primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(idParam))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid id"})
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	caller, err := primitive.ObjectIDFromHex(midsec.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token"})
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return id, caller, true
}
