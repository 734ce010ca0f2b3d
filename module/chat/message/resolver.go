package message

import (
	"context"
	"time"

	chatmodel "DChat/module/chat/model"
	"DChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// resolveConversation 在事务内按规范对查找会话，没有就建一个。
// 两端首次互发同时到达时，两个事务都可能走到 insert——提交阶段
// 由 Mongo 的写冲突裁决，输家被调用方（发送管道）整体重试。
// 半创建状态不会泄漏到事务提交之外。
func (s *Store) resolveConversation(sc mongo.SessionContext, userA, userB primitive.ObjectID, now time.Time) (*chatmodel.Conversation, error) {
	pair := chatmodel.CanonicalPair(userA, userB)

	var conv chatmodel.Conversation
	err := s.ConvColl.FindOne(sc, bson.M{
		chatmodel.ConversationFieldParticipants: pair,
	}).Decode(&conv)
	if err == nil {
		return &conv, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	conv = chatmodel.Conversation{
		Participants:  pair,
		LastMessageAt: now,
		UnreadCounts: []chatmodel.UnreadCount{
			{User: pair[0], Count: 0},
			{User: pair[1], Count: 0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.ConvColl.InsertOne(sc, conv)
	if err != nil {
		return nil, err
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return &conv, nil
}

// FindConversation 纯查找（不创建），join/read-all 路径用。
func (s *Store) FindConversation(ctx context.Context, userA, userB primitive.ObjectID) (*chatmodel.Conversation, error) {
	pair := chatmodel.CanonicalPair(userA, userB)
	var conv chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{
		chatmodel.ConversationFieldParticipants: pair,
	}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetConversation 按ID取会话。
func (s *Store) GetConversation(ctx context.Context, id primitive.ObjectID) (*chatmodel.Conversation, error) {
	var conv chatmodel.Conversation
	err := s.ConvColl.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("conversation not found", "id", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
