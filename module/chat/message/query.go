package message

import (
	"context"

	chatmodel "DChat/module/chat/model"
	"DChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Party 事件里展开的参与者摘要（原文档只存ID）。
type Party struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
}

// MessageView 发给客户端的消息视图：文档 + 收发双方展开。
type MessageView struct {
	chatmodel.Message
	SenderInfo   Party `json:"senderInfo"`
	ReceiverInfo Party `json:"receiverInfo"`
}

// GetMessage 按ID取消息。
func (s *Store) GetMessage(ctx context.Context, id primitive.ObjectID) (*chatmodel.Message, error) {
	var m chatmodel.Message
	err := s.MsgColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("message not found", "id", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessageView 重新加载消息并展开收发双方的名字。
func (s *Store) GetMessageView(ctx context.Context, id primitive.ObjectID) (*MessageView, error) {
	m, err := s.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	view := MessageView{Message: *m}

	var u chatmodel.User
	if err := s.UserColl.FindOne(ctx, bson.M{"_id": m.Sender}).Decode(&u); err == nil {
		view.SenderInfo = Party{ID: u.ID, Name: u.Name}
	}
	if err := s.UserColl.FindOne(ctx, bson.M{"_id": m.Receiver}).Decode(&u); err == nil {
		view.ReceiverInfo = Party{ID: u.ID, Name: u.Name}
	}
	return &view, nil
}

// MessagesBetween 两人之间的全部消息，按创建时间升序。
func (s *Store) MessagesBetween(ctx context.Context, a, b primitive.ObjectID) ([]chatmodel.Message, error) {
	cur, err := s.MsgColl.Find(ctx, bson.M{
		"$or": bson.A{
			bson.M{chatmodel.MessageFieldSender: a, chatmodel.MessageFieldReceiver: b},
			bson.M{chatmodel.MessageFieldSender: b, chatmodel.MessageFieldReceiver: a},
		},
	}, options.Find().SetSort(bson.M{chatmodel.MessageFieldCreatedAt: 1}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []chatmodel.Message{}
	for cur.Next(ctx) {
		var m chatmodel.Message
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, cur.Err()
}

// lastMessageBetween 最近一条消息（没有则 nil）。
func (s *Store) lastMessageBetween(ctx context.Context, a, b primitive.ObjectID) (*chatmodel.Message, error) {
	var m chatmodel.Message
	err := s.MsgColl.FindOne(ctx, bson.M{
		"$or": bson.A{
			bson.M{chatmodel.MessageFieldSender: a, chatmodel.MessageFieldReceiver: b},
			bson.M{chatmodel.MessageFieldSender: b, chatmodel.MessageFieldReceiver: a},
		},
	}, options.FindOne().SetSort(bson.M{chatmodel.MessageFieldCreatedAt: -1})).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// PeerSummary 会话列表里的一行：对端用户 + 最近一条消息 + 未读数。
type PeerSummary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Online      bool               `json:"online"`
	LastMessage *string            `json:"lastMessage"`
	Unread      int64              `json:"unread"`
}

// ConversationList 除自己外所有用户，附最近一条互发消息和未读数。
func (s *Store) ConversationList(ctx context.Context, self primitive.ObjectID) ([]PeerSummary, error) {
	cur, err := s.UserColl.Find(ctx, bson.M{"_id": bson.M{"$ne": self}})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []PeerSummary{}
	for cur.Next(ctx) {
		var u chatmodel.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		row := PeerSummary{ID: u.ID, Name: u.Name, Online: u.Online}

		last, err := s.lastMessageBetween(ctx, self, u.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			row.LastMessage = &last.Text
		}

		conv, err := s.FindConversation(ctx, self, u.ID)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			row.Unread = conv.UnreadFor(self)
		}
		out = append(out, row)
	}
	return out, cur.Err()
}
