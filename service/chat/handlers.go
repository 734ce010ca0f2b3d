package chat

import (
	"context"
	"time"

	"DChat/logger"
	"DChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ===== 事件处理器 =====
//
// 所有存储/传输错误到处理器边界为止：记日志、必要时回 ack，
// 连接保持打开。

// handleUserConnect 连接认领身份并登记在线。
// 首条连接：先落库 online 标记，再广播给其他人 + 给自己回显。
func (s *Server) handleUserConnect(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[UserConnectPayload](f)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		return errs.ErrValidation.WrapMsg("no userId provided for connection")
	}

	// 同一连接二次认领不同身份：旧身份按断开处理（退房、注销、
	// 必要时广播下线），再登记新身份。
	if c.UserID != "" && c.UserID != p.UserID {
		s.rooms.LeaveAll(c.ConnID)
		if old, last := s.presence.Deregister(ctx, c.ConnID); last && old != "" {
			at := time.Now()
			s.BroadcastAll(EventUserStatus, UserStatusPayload{
				UserID:   old,
				Online:   false,
				LastSeen: &at,
			})
		}
	}
	c.UserID = p.UserID

	first := s.presence.Register(ctx, c)
	logger.Infof("[ws] user %s connected conn=%s first=%v", p.UserID, c.ConnID, first)

	if first {
		ev := UserStatusPayload{UserID: p.UserID, Online: true, LastSeen: nil}
		s.BroadcastExcept(c.ConnID, EventUserStatus, ev)
		s.EmitToConn(c, EventUserStatus, ev)
	}
	return nil
}

// handleUserStatus 点查某用户的持久化在线状态并回给发起连接。
func (s *Server) handleUserStatus(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[UserStatusPayload](f)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(p.UserID)
	if err != nil {
		return errs.ErrValidation.WrapMsg("bad user id", "id", p.UserID)
	}
	u, err := s.store.GetUser(ctx, oid)
	if err != nil {
		return err
	}
	s.EmitToConn(c, EventUserStatus, UserStatusPayload{
		UserID:   p.UserID,
		Online:   u.Online,
		LastSeen: u.LastSeenAt,
	})
	return nil
}

// handleJoin 进入会话：加入配对房间，并把对端发来的未读消息批量置已读。
func (s *Server) handleJoin(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[JoinPayload](f)
	if err != nil {
		return err
	}
	if p.UserID == "" {
		return errs.ErrValidation.WrapMsg("join missing userId")
	}
	if p.ChatUserID == "" {
		return nil
	}

	roomID := RoomID(p.UserID, p.ChatUserID)
	s.rooms.Join(roomID, c)
	logger.Infof("[ws] user %s joined room %s", p.UserID, roomID)

	userOID, err := primitive.ObjectIDFromHex(p.UserID)
	if err != nil {
		return errs.ErrValidation.WrapMsg("bad user id", "id", p.UserID)
	}
	peerOID, err := primitive.ObjectIDFromHex(p.ChatUserID)
	if err != nil {
		return errs.ErrValidation.WrapMsg("bad chat user id", "id", p.ChatUserID)
	}

	conv, err := s.store.FindConversation(ctx, userOID, peerOID)
	if err != nil || conv == nil {
		return err
	}
	count, err := s.status.MarkAllRead(ctx, conv.ID, userOID)
	if err != nil {
		logger.Errorf("[ws] mark read on join failed user=%s err=%v", p.UserID, err)
		return nil
	}
	if count > 0 {
		s.EmitToUser(p.ChatUserID, EventMessagesRead, MessagesReadEvent{
			ReaderID: p.UserID,
			ChatID:   p.ChatUserID,
			ReadAt:   time.Now(),
		})
	}
	return nil
}

func (s *Server) handleLeave(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[LeavePayload](f)
	if err != nil {
		return err
	}
	if p.UserID == "" || p.ChatUserID == "" {
		return nil
	}
	roomID := RoomID(p.UserID, p.ChatUserID)
	s.rooms.Leave(roomID, c.ConnID)
	logger.Infof("[ws] user %s left room %s", p.UserID, roomID)
	return nil
}

// handleTyping 纯转发，不落库不重试。对端收不到 stop 也没关系，
// 客户端 3 秒自清。
func (s *Server) handleTyping(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[TypingPayload](f)
	if err != nil {
		return err
	}
	if p.ChatID == "" || p.UserID == "" {
		return errs.ErrValidation.WrapMsg("missing fields for typing event")
	}
	p.Timestamp = time.Now().UnixMilli()
	roomID := RoomID(p.UserID, p.ChatID)
	s.EmitToRoomExcept(roomID, c.ConnID, EventTyping, *p)
	return nil
}

// handleMessageSend 发送入口：管道落库 → 房间广播 →（收端在线时）
// 顺手推进送达 → 回 ack。失败的 ack 里 Code 区分冲突与其他。
func (s *Server) handleMessageSend(ctx context.Context, c *Client, f *Frame) error {
	p, err := Decode[SendPayload](f)
	if err != nil {
		s.ack(c, f, AckPayload{OK: false, Code: errs.Code(err), Error: err.Error()})
		return nil
	}
	senderOID, err1 := primitive.ObjectIDFromHex(p.SenderID)
	receiverOID, err2 := primitive.ObjectIDFromHex(p.ReceiverID)
	if err1 != nil || err2 != nil {
		s.ack(c, f, AckPayload{OK: false, Code: errs.CodeValidation, Error: "bad sender/receiver id"})
		return nil
	}

	msg, err := s.sender.Send(ctx, senderOID, receiverOID, p.Text)
	if err != nil {
		code := errs.Code(err)
		errMsg := "Failed to send message"
		if code == errs.CodeConflict {
			errMsg = "Message conflict. Please try again."
		} else if code == errs.CodeValidation {
			errMsg = err.Error()
		}
		logger.Errorf("[ws] send failed sender=%s err=%v", p.SenderID, err)
		s.ack(c, f, AckPayload{OK: false, Code: code, Error: errMsg})
		return nil
	}

	view, err := s.store.GetMessageView(ctx, msg.ID)
	if err != nil {
		// 消息已提交；视图查不出来只影响本次广播
		logger.Errorf("[ws] reload message failed id=%s err=%v", msg.ID.Hex(), err)
		s.ack(c, f, AckPayload{OK: true})
		return nil
	}

	roomID := RoomID(p.SenderID, p.ReceiverID)
	s.EmitToRoom(roomID, EventMessageNew, MessageNewEvent{MessageView: *view, Type: "sender"})

	// 收端此刻在线就直接推进 delivered，让 ack 带回最终状态
	if s.presence.IsOnline(p.ReceiverID) {
		updated, ok, derr := s.status.MarkDelivered(ctx, msg.ID, receiverOID)
		if derr != nil {
			logger.Errorf("[ws] mark delivered failed id=%s err=%v", msg.ID.Hex(), derr)
		} else if ok {
			view.Message = *updated
			s.EmitToUser(p.SenderID, EventMessageStatus, MessageStatusEvent{
				MessageID:   updated.ID.Hex(),
				Status:      string(updated.Status),
				Delivered:   true,
				DeliveredAt: updated.DeliveredAt,
			})
		}
	}

	s.ack(c, f, AckPayload{OK: true, Message: view})
	return nil
}

// ack 仅当客户端带了 ack 序号才应答。
func (s *Server) ack(c *Client, f *Frame, p AckPayload) {
	if f.Ack <= 0 {
		return
	}
	payload, err := EncodeAck(f.Ack, p)
	if err != nil {
		logger.Errorf("[ws] encode ack failed: %v", err)
		return
	}
	c.Enqueue(payload)
}
