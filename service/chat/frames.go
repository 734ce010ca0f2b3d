package chat

import (
	"encoding/json"
	"time"

	"DChat/module/chat/message"
	"DChat/tools/errs"
)

// ===== 事件帧 =====
//
// 线上就这一套封闭的事件名集合；每个事件的字段固定，
// 处理器按事件名分派到强类型载荷，不信任松散结构。
const (
	EventUserConnect      = "user:connect"
	EventUserStatus       = "user:status"
	EventJoin             = "join"
	EventLeave            = "leave"
	EventTyping           = "typing"
	EventMessageSend      = "message:send"
	EventMessageNew       = "message:new"
	EventMessageStatus    = "message:status"
	EventMessagesRead     = "messages:read"
	EventConversationRead = "conversation:read"
	EventAck              = "ack"
)

// Frame 事件信封。Ack > 0 表示客户端要求回执（请求/应答式调用），
// 服务端用同一个 Ack 序号回 EventAck 帧。
type Frame struct {
	Event string          `json:"event"`
	Ack   int64           `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.ErrValidation.WrapMsg("unmarshal frame failed", "err", err)
	}
	if f.Event == "" {
		return nil, errs.ErrValidation.WrapMsg("frame missing event")
	}
	return &f, nil
}

// Decode 把帧载荷解到强类型结构。
func Decode[T any](f *Frame) (*T, error) {
	var v T
	if len(f.Data) == 0 {
		return nil, errs.ErrValidation.WrapMsg("frame missing data", "event", f.Event)
	}
	if err := json.Unmarshal(f.Data, &v); err != nil {
		return nil, errs.ErrValidation.WrapMsg("bad payload", "event", f.Event, "err", err)
	}
	return &v, nil
}

// EncodeEvent 组装一个下行事件帧。
func EncodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// ===== 载荷类型 =====

type UserConnectPayload struct {
	UserID string `json:"userId"`
}

// UserStatusPayload 既是查询请求（只带 userId）也是推送事件。
type UserStatusPayload struct {
	UserID   string     `json:"userId"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"lastSeen"`
}

type JoinPayload struct {
	UserID     string `json:"userId"`
	ChatUserID string `json:"chatUserId"`
}

type LeavePayload struct {
	UserID     string `json:"userId"`
	ChatUserID string `json:"chatUserId"`
}

type TypingPayload struct {
	ChatID    string `json:"chatId"` // 对端用户ID（单聊里会话即对端）
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp int64  `json:"timestamp,omitempty"` // 服务端补毫秒时间戳
}

type SendPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// MessageNewEvent 新消息广播：消息视图 + 相对收端的方向标记。
type MessageNewEvent struct {
	message.MessageView
	Type string `json:"type"` // "sender" | "receiver"
}

// MessageStatusEvent 单条消息状态推进，只发给发送方个人频道。
type MessageStatusEvent struct {
	MessageID   string     `json:"messageId"`
	Status      string     `json:"status"`
	Delivered   bool       `json:"delivered,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
}

// MessagesReadEvent 入会批量已读后通知对端。
type MessagesReadEvent struct {
	ReaderID string    `json:"readerId"`
	ChatID   string    `json:"chatId"`
	ReadAt   time.Time `json:"readAt"`
}

// ConversationReadEvent read-all 的聚合通知（带实际条数）。
type ConversationReadEvent struct {
	ConversationID string `json:"conversationId"`
	ReadCount      int64  `json:"readCount"`
}

// AckPayload message:send 的应答：成功带消息视图；
// 失败带错误码，Code 区分“冲突可重试”和“失败”。
type AckPayload struct {
	OK      bool                 `json:"ok"`
	Code    int                  `json:"code,omitempty"`
	Error   string               `json:"error,omitempty"`
	Message *message.MessageView `json:"message,omitempty"`
}

// EncodeAck 组装应答帧，沿用请求的 Ack 序号。
func EncodeAck(ackID int64, p AckPayload) ([]byte, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: EventAck, Ack: ackID, Data: raw})
}
