package message

import (
	"context"
	"testing"
	"time"

	chatmodel "DChat/module/chat/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collStub 记录调用的 statusColl 桩。
type collStub struct {
	findCalls []bson.M // FindOneAndUpdate 的 update 文档
	manyCalls []bson.M // UpdateMany 的 update 文档
	byIDCalls []bson.M // UpdateByID 的 update 文档
	oneCalls  []bson.M // UpdateOne 的 filter 文档

	findResult *mongo.SingleResult
	manyResult *mongo.UpdateResult
}

func (s *collStub) FindOneAndUpdate(_ context.Context, _ interface{}, update interface{}, _ ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	s.findCalls = append(s.findCalls, update.(bson.M))
	return s.findResult
}

func (s *collStub) UpdateMany(_ context.Context, _ interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	s.manyCalls = append(s.manyCalls, update.(bson.M))
	return s.manyResult, nil
}

func (s *collStub) UpdateByID(_ context.Context, _ interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	s.byIDCalls = append(s.byIDCalls, update.(bson.M))
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (s *collStub) UpdateOne(_ context.Context, filter interface{}, _ interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	s.oneCalls = append(s.oneCalls, filter.(bson.M))
	return &mongo.UpdateResult{}, nil
}

func newTestEngine(msgs, convs *collStub) *StatusEngine {
	return &StatusEngine{msgs: msgs, convs: convs, now: time.Now}
}

func resultDoc(m chatmodel.Message) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(m, nil, nil)
}

func resultNoDocs() *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func TestMarkDeliveredApplies(t *testing.T) {
	at := time.Now().UTC().Truncate(time.Millisecond)
	doc := chatmodel.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: primitive.NewObjectID(),
		Status:         chatmodel.StatusDelivered,
		Delivered:      true,
		DeliveredAt:    &at,
	}
	msgs := &collStub{findResult: resultDoc(doc)}
	convs := &collStub{}

	msg, applied, err := newTestEngine(msgs, convs).MarkDelivered(context.Background(), doc.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !applied || msg == nil {
		t.Fatal("matched transition must report applied with the updated doc")
	}
	if msg.Status != chatmodel.StatusDelivered || !msg.Delivered {
		t.Fatalf("unexpected message state: %+v", msg)
	}
	// 会话活跃时间戳刷新一次
	if len(convs.byIDCalls) != 1 {
		t.Fatalf("want 1 conversation touch, got %d", len(convs.byIDCalls))
	}
}

func TestMarkDeliveredAlreadyDeliveredIsNoop(t *testing.T) {
	msgs := &collStub{findResult: resultNoDocs()}
	convs := &collStub{}

	msg, applied, err := newTestEngine(msgs, convs).MarkDelivered(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("no-op must not be an error: %v", err)
	}
	if applied || msg != nil {
		t.Fatalf("unmatched precondition must report (nil, false), got (%+v, %v)", msg, applied)
	}
	if len(convs.byIDCalls) != 0 || len(convs.oneCalls) != 0 {
		t.Fatal("no-op must not touch the conversation")
	}
}

func TestMarkReadDecrementsOnceAndPromotesDelivered(t *testing.T) {
	doc := chatmodel.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: primitive.NewObjectID(),
		Status:         chatmodel.StatusRead,
		Read:           true,
	}
	msgs := &collStub{findResult: resultDoc(doc)}
	convs := &collStub{}
	e := newTestEngine(msgs, convs)

	msg, applied, err := e.MarkRead(context.Background(), doc.ID, primitive.NewObjectID())
	if err != nil || !applied || msg == nil {
		t.Fatalf("mark read failed: msg=%v applied=%v err=%v", msg, applied, err)
	}

	// read 蕴含 delivered：$set 必须带上 delivered 标志
	set := msgs.findCalls[0]["$set"].(bson.M)
	if set[chatmodel.MessageFieldDelivered] != true {
		t.Fatalf("read transition must set delivered, got %v", set)
	}
	if _, ok := msgs.findCalls[0]["$push"].(bson.M)[chatmodel.MessageFieldReadBy]; !ok {
		t.Fatal("read transition must append a readBy receipt")
	}

	// 未读数恰好 -1，随后钳位负值
	if len(convs.byIDCalls) != 1 {
		t.Fatalf("want exactly 1 decrement, got %d", len(convs.byIDCalls))
	}
	inc := convs.byIDCalls[0]["$inc"].(bson.M)
	if got := inc[chatmodel.ConversationFieldUnreadCounts+".$[elem].count"]; got != int64(-1) {
		t.Fatalf("want $inc -1, got %v", got)
	}
	if len(convs.oneCalls) != 1 {
		t.Fatalf("want 1 clamp update, got %d", len(convs.oneCalls))
	}

	// 重复已读：前置条件命中不了，没有第二次扣减、没有第二条回执
	msgs.findResult = resultNoDocs()
	msg, applied, err = e.MarkRead(context.Background(), doc.ID, primitive.NewObjectID())
	if err != nil || applied || msg != nil {
		t.Fatalf("re-read must be a no-op: msg=%v applied=%v err=%v", msg, applied, err)
	}
	if len(convs.byIDCalls) != 1 {
		t.Fatalf("re-read must not decrement again, got %d decrements", len(convs.byIDCalls))
	}
}

func TestMarkAllReadCountExact(t *testing.T) {
	msgs := &collStub{manyResult: &mongo.UpdateResult{MatchedCount: 3, ModifiedCount: 3}}
	convs := &collStub{}

	count, err := newTestEngine(msgs, convs).MarkAllRead(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("mark all read failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("want count 3, got %d", count)
	}

	// 批量转移同样补齐 delivered 标志
	set := msgs.manyCalls[0]["$set"].(bson.M)
	if set[chatmodel.MessageFieldDelivered] != true {
		t.Fatalf("bulk read transition must set delivered, got %v", set)
	}

	// 扣减量 = 实际改动条数，而不是无条件置零
	inc := convs.byIDCalls[0]["$inc"].(bson.M)
	if got := inc[chatmodel.ConversationFieldUnreadCounts+".$[elem].count"]; got != int64(-3) {
		t.Fatalf("want $inc -3, got %v", got)
	}
}

func TestMarkAllReadZeroModifiedIsNoop(t *testing.T) {
	msgs := &collStub{manyResult: &mongo.UpdateResult{}}
	convs := &collStub{}

	count, err := newTestEngine(msgs, convs).MarkAllRead(context.Background(), primitive.NewObjectID(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("zero-modified must not be an error: %v", err)
	}
	if count != 0 {
		t.Fatalf("want count 0, got %d", count)
	}
	if len(convs.byIDCalls) != 0 || len(convs.oneCalls) != 0 {
		t.Fatal("zero-modified must not touch the unread counter")
	}
}

func TestDecrementClampGuardsNegative(t *testing.T) {
	user := primitive.NewObjectID()
	convs := &collStub{}
	e := newTestEngine(&collStub{}, convs)

	if err := e.decrementUnread(context.Background(), primitive.NewObjectID(), user, 2, time.Now()); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}

	// 钳位只命中负值条目，绝不无条件置零
	elem := convs.oneCalls[0][chatmodel.ConversationFieldUnreadCounts].(bson.M)["$elemMatch"].(bson.M)
	if elem["user"] != user {
		t.Fatalf("clamp must key on the user, got %v", elem)
	}
	if lt := elem["count"].(bson.M)["$lt"]; lt != 0 {
		t.Fatalf("clamp must target counts below zero, got %v", lt)
	}
}
