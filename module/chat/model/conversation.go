package model

import (
	"time"

	"DChat/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UnreadCount 某个参与者在该会话的未读数；count 恒 >= 0。
type UnreadCount struct {
	User  primitive.ObjectID `bson:"user" json:"user"`
	Count int64              `bson:"count" json:"count"`
}

// Conversation 单聊会话文档。
// participants 固定为排序后的两个用户ID（规范对），一对用户只会有一个文档；
// 群聊字段是占位，行为未实现。
type Conversation struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants  []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage   *primitive.ObjectID  `bson:"last_message,omitempty" json:"lastMessage"`
	LastMessageAt time.Time            `bson:"last_message_at" json:"lastMessageAt"`

	IsGroup    bool                `bson:"is_group" json:"isGroup"`
	GroupName  string              `bson:"group_name,omitempty" json:"groupName,omitempty"`
	GroupAdmin *primitive.ObjectID `bson:"group_admin,omitempty" json:"groupAdmin,omitempty"`

	UnreadCounts []UnreadCount `bson:"unread_counts" json:"unreadCounts"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (c Conversation) GetTableName() string {
	return "conversation"
}

func (c Conversation) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(c.GetTableName())
}

const (
	ConversationFieldParticipants  = "participants"
	ConversationFieldLastMessage   = "last_message"
	ConversationFieldLastMessageAt = "last_message_at"
	ConversationFieldUnreadCounts  = "unread_counts"
	ConversationFieldUpdatedAt     = "updated_at"
)

// CanonicalPair 把两个用户ID排成固定顺序——会话去重和房间名都靠它。
func CanonicalPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if b.Hex() < a.Hex() {
		a, b = b, a
	}
	return []primitive.ObjectID{a, b}
}

// UnreadFor 读取某个参与者的未读数（找不到按 0 算）。
func (c *Conversation) UnreadFor(user primitive.ObjectID) int64 {
	for _, uc := range c.UnreadCounts {
		if uc.User == user {
			return uc.Count
		}
	}
	return 0
}

// Peer 返回单聊里 user 的对端；user 不在会话里时返回零值。
func (c *Conversation) Peer(user primitive.ObjectID) primitive.ObjectID {
	for _, p := range c.Participants {
		if p != user {
			return p
		}
	}
	return primitive.NilObjectID
}
