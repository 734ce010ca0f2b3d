package model

import (
	"time"

	"DChat/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Status 消息投递生命周期。
// sending 只存在于客户端本地（发送中占位），服务端落库起步就是 sent。
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// Rank 单调序：sending < sent < delivered < read。未知状态给 -1。
// UI 丢弃一切不比当前值更靠后的状态事件，靠它抗事件乱序/重放。
func (s Status) Rank() int {
	switch s {
	case StatusSending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	default:
		return -1
	}
}

// After 是否严格晚于 other（同级/倒退都算 false）。
func (s Status) After(other Status) bool {
	return s.Rank() > other.Rank()
}

// ReadReceipt readBy 列表项；只追加，不回收。
type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"read_at" json:"readAt"`
}

// Message 消息文档。创建后只有状态字段会被改，而且只会单调前进。
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"`
	Sender         primitive.ObjectID `bson:"sender" json:"sender"`
	Receiver       primitive.ObjectID `bson:"receiver" json:"receiver"`
	Text           string             `bson:"text" json:"text"`

	Status      Status        `bson:"status" json:"status"`
	Delivered   bool          `bson:"delivered" json:"delivered"`
	DeliveredAt *time.Time    `bson:"delivered_at" json:"deliveredAt"`
	Read        bool          `bson:"read" json:"read"`
	ReadAt      *time.Time    `bson:"read_at" json:"readAt"`
	ReadBy      []ReadReceipt `bson:"read_by" json:"readBy"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (m Message) GetTableName() string {
	return "message"
}

func (m Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

const (
	MessageFieldConversationID = "conversation_id"
	MessageFieldSender         = "sender"
	MessageFieldReceiver       = "receiver"
	MessageFieldStatus         = "status"
	MessageFieldDelivered      = "delivered"
	MessageFieldDeliveredAt    = "delivered_at"
	MessageFieldRead           = "read"
	MessageFieldReadAt         = "read_at"
	MessageFieldReadBy         = "read_by"
	MessageFieldCreatedAt      = "created_at"
	MessageFieldUpdatedAt      = "updated_at"
)
