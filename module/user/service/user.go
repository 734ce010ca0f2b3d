package service

import (
	"context"
	"time"

	chatmodel "DChat/module/chat/model"
	"DChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Users 账号存取，auth 路由专用；核心只通过 message.Store 碰用户文档。
type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection(chatmodel.User{}.GetTableName())}
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*chatmodel.User, error) {
	var u chatmodel.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Users) Create(ctx context.Context, name, email, passwordHash string) (*chatmodel.User, error) {
	now := time.Now()
	u := chatmodel.User{
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		Online:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return nil, err
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return &u, nil
}

func (s *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*chatmodel.User, error) {
	var u chatmodel.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrNotFound.WrapMsg("user not found", "id", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListExcept 除 self 外的全部用户（密码由 json:"-" 挡住）。
func (s *Users) ListExcept(ctx context.Context, self primitive.ObjectID) ([]chatmodel.User, error) {
	cur, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": self}})
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []chatmodel.User{}
	for cur.Next(ctx) {
		var u chatmodel.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, cur.Err()
}
