package message

import (
	"context"
	"time"

	chatmodel "DChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// statusColl 状态机触到的集合操作面；*mongo.Collection 天然满足，单测给桩。
type statusColl interface {
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateByID(ctx context.Context, id interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// StatusEngine 投递/已读状态机。
// 每个转移都是带前置条件的条件更新：前置条件不满足（已经到达或越过目标状态）
// 就什么都不改——并发调用由存储层线性化，状态只会单调前进。
// 重复调用是安全的空操作；客户端在入会、滚动、后台 resync 都会盲发回执。
type StatusEngine struct {
	msgs  statusColl
	convs statusColl
	now   func() time.Time
}

func NewStatusEngine(store *Store) *StatusEngine {
	return &StatusEngine{msgs: store.MsgColl, convs: store.ConvColl, now: time.Now}
}

// MarkDelivered 送达回执。收件人匹配且未送达时生效；
// 已送达/已读时返回 (nil, false, nil)，不算错误。
func (e *StatusEngine) MarkDelivered(ctx context.Context, messageID, recipientID primitive.ObjectID) (*chatmodel.Message, bool, error) {
	now := e.now()
	var msg chatmodel.Message
	err := e.msgs.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                          messageID,
			chatmodel.MessageFieldReceiver: recipientID,
			chatmodel.MessageFieldDelivered: bson.M{
				"$ne": true,
			},
		},
		bson.M{"$set": bson.M{
			chatmodel.MessageFieldDelivered:   true,
			chatmodel.MessageFieldDeliveredAt: now,
			chatmodel.MessageFieldStatus:      chatmodel.StatusDelivered,
			chatmodel.MessageFieldUpdatedAt:   now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	// 会话活跃时间戳顺带刷新；失败不回滚状态转移
	_, err = e.convs.UpdateByID(ctx, msg.ConversationID,
		bson.M{"$set": bson.M{chatmodel.ConversationFieldUpdatedAt: now}})
	if err != nil {
		return &msg, true, err
	}
	return &msg, true, nil
}

// MarkRead 已读回执。生效时把接收方未读数原子 -1（带用户键的数组元素更新），
// readBy 追加一条；重复调用命中不了过滤条件，readBy 不会出现重复项。
// delivered 标志一并补齐（read 蕴含 delivered）；直达已读的消息没有
// 送达时间戳，delivered_at 保持 null。
func (e *StatusEngine) MarkRead(ctx context.Context, messageID, recipientID primitive.ObjectID) (*chatmodel.Message, bool, error) {
	now := e.now()
	var msg chatmodel.Message
	err := e.msgs.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                          messageID,
			chatmodel.MessageFieldReceiver: recipientID,
			chatmodel.MessageFieldRead:     bson.M{"$ne": true},
		},
		bson.M{
			"$set": bson.M{
				chatmodel.MessageFieldRead:      true,
				chatmodel.MessageFieldReadAt:    now,
				chatmodel.MessageFieldDelivered: true,
				chatmodel.MessageFieldStatus:    chatmodel.StatusRead,
				chatmodel.MessageFieldUpdatedAt: now,
			},
			"$push": bson.M{
				chatmodel.MessageFieldReadBy: chatmodel.ReadReceipt{User: recipientID, ReadAt: now},
			},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := e.decrementUnread(ctx, msg.ConversationID, recipientID, 1, now); err != nil {
		return &msg, true, err
	}
	return &msg, true, nil
}

// MarkAllRead 批量已读：会话内所有 receiver=caller 且未读的消息一次转移，
// 返回实际改动条数（0 合法）。未读数按实际条数扣减，绝不无条件置零——
// 并发进来的新消息随时会给计数 +1。
func (e *StatusEngine) MarkAllRead(ctx context.Context, conversationID, recipientID primitive.ObjectID) (int64, error) {
	now := e.now()
	res, err := e.msgs.UpdateMany(ctx,
		bson.M{
			chatmodel.MessageFieldConversationID: conversationID,
			chatmodel.MessageFieldReceiver:       recipientID,
			chatmodel.MessageFieldRead:           false,
		},
		bson.M{
			"$set": bson.M{
				chatmodel.MessageFieldRead:      true,
				chatmodel.MessageFieldReadAt:    now,
				chatmodel.MessageFieldDelivered: true,
				chatmodel.MessageFieldStatus:    chatmodel.StatusRead,
				chatmodel.MessageFieldUpdatedAt: now,
			},
			"$push": bson.M{
				chatmodel.MessageFieldReadBy: chatmodel.ReadReceipt{User: recipientID, ReadAt: now},
			},
		},
	)
	if err != nil {
		return 0, err
	}
	if res.ModifiedCount == 0 {
		return 0, nil
	}

	if err := e.decrementUnread(ctx, conversationID, recipientID, res.ModifiedCount, now); err != nil {
		return res.ModifiedCount, err
	}
	return res.ModifiedCount, nil
}

// decrementUnread 扣减后立刻把可能出现的负值钳回 0。
// 扣减只发生在真正完成转移的消息上，负值只在与并发扣减竞争时短暂出现。
func (e *StatusEngine) decrementUnread(ctx context.Context, conversationID, userID primitive.ObjectID, n int64, now time.Time) error {
	_, err := e.convs.UpdateByID(ctx, conversationID,
		bson.M{
			"$set": bson.M{chatmodel.ConversationFieldUpdatedAt: now},
			"$inc": bson.M{chatmodel.ConversationFieldUnreadCounts + ".$[elem].count": -n},
		},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"elem.user": userID}},
		}),
	)
	if err != nil {
		return err
	}

	_, err = e.convs.UpdateOne(ctx,
		bson.M{
			"_id": conversationID,
			chatmodel.ConversationFieldUnreadCounts: bson.M{
				"$elemMatch": bson.M{"user": userID, "count": bson.M{"$lt": 0}},
			},
		},
		bson.M{"$set": bson.M{chatmodel.ConversationFieldUnreadCounts + ".$.count": 0}},
	)
	return err
}
