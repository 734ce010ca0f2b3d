package message

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	mongoutil "DChat/data/database/mgo/mongoutil"
	"DChat/logger"
	chatmodel "DChat/module/chat/model"
	"DChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// 首次尝试外最多再重试 3 次，总共 4 次
	maxSendRetries = 3
	// 第 n 次重试前退避 n*100ms
	retryBackoff = 100 * time.Millisecond

	maxTextRunes = 2000
)

// Sender 发送管道：校验 → 事务（找/建会话 + 落消息 + 推会话指针/未读） → 冲突重试。
type Sender struct {
	store *Store
	txn   mongoutil.TxnRunner

	sleep func(time.Duration) // 重试退避，单测注入
	now   func() time.Time
}

func NewSender(store *Store, txn mongoutil.TxnRunner) *Sender {
	return &Sender{
		store: store,
		txn:   txn,
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// ValidateText 发送文本校验：trim 后非空、不超过 2000 字符。
// 在开事务之前执行，不合法的输入不产生任何 I/O。
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.ErrValidation.WrapMsg("message text is required")
	}
	if utf8.RuneCountInString(text) > maxTextRunes {
		return "", errs.ErrValidation.WrapMsg("message text too long", "max", maxTextRunes)
	}
	return text, nil
}

// Send 持久化一条消息并返回落库后的文档。
// 写冲突（两端同时首次互发抢会话创建等）整体重试，退避线性递增；
// 重试耗尽返回 CodeConflict，其余错误原样上抛。
func (s *Sender) Send(ctx context.Context, senderID, receiverID primitive.ObjectID, text string) (*chatmodel.Message, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, errs.ErrValidation.WrapMsg("cannot message yourself")
	}

	var msg *chatmodel.Message
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			s.sleep(retryBackoff * time.Duration(attempt))
		}

		msg, err = s.trySend(ctx, senderID, receiverID, text)
		if err == nil {
			return msg, nil
		}
		if !mongoutil.IsWriteConflict(err) {
			return nil, err
		}
		if attempt >= maxSendRetries {
			logger.Warnf("[send] conflict retries exhausted sender=%s receiver=%s", senderID.Hex(), receiverID.Hex())
			return nil, errs.ErrConflict.WrapMsg("send retries exhausted", "attempts", attempt+1)
		}
		logger.Infof("[send] write conflict, retrying attempt=%d", attempt+1)
	}
}

// trySend 一次完整的事务尝试。
func (s *Sender) trySend(ctx context.Context, senderID, receiverID primitive.ObjectID, text string) (*chatmodel.Message, error) {
	var out chatmodel.Message
	err := s.txn(ctx, func(sc mongo.SessionContext) error {
		now := s.now()

		conv, err := s.store.resolveConversation(sc, senderID, receiverID, now)
		if err != nil {
			return err
		}

		msg := chatmodel.Message{
			ConversationID: conv.ID,
			Sender:         senderID,
			Receiver:       receiverID,
			Text:           text,
			Status:         chatmodel.StatusSent,
			Delivered:      false,
			Read:           false,
			ReadBy:         []chatmodel.ReadReceipt{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		res, err := s.store.MsgColl.InsertOne(sc, msg)
		if err != nil {
			return err
		}
		msg.ID = res.InsertedID.(primitive.ObjectID)

		// 会话指针 + 接收方未读 +1，同一事务内完成
		_, err = s.store.ConvColl.UpdateByID(sc, conv.ID,
			bson.M{
				"$set": bson.M{
					chatmodel.ConversationFieldLastMessage:   msg.ID,
					chatmodel.ConversationFieldLastMessageAt: now,
					chatmodel.ConversationFieldUpdatedAt:     now,
				},
				"$inc": bson.M{chatmodel.ConversationFieldUnreadCounts + ".$[elem].count": 1},
			},
			options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []interface{}{bson.M{"elem.user": receiverID}},
			}),
		)
		if err != nil {
			return err
		}

		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
