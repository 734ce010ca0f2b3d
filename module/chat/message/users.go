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

// SetOnline 在线标记落库。userID 是连接层透传的 hex 字符串。
// lastSeenAt 上线时为 nil（约定“当前在线”），下线时为断开时刻。
func (s *Store) SetOnline(ctx context.Context, userID string, online bool, lastSeenAt *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return errs.ErrValidation.WrapMsg("bad user id", "id", userID)
	}
	res, err := s.UserColl.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		chatmodel.UserFieldOnline:     online,
		chatmodel.UserFieldLastSeenAt: lastSeenAt,
		chatmodel.UserFieldUpdatedAt:  time.Now(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrNotFound.WrapMsg("user not found", "id", userID)
	}
	return nil
}

// GetUser 按ID取用户。
func (s *Store) GetUser(ctx context.Context, id primitive.ObjectID) (*chatmodel.User, error) {
	var u chatmodel.User
	err := s.UserColl.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("user not found", "id", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
