package model

import (
	"time"

	"DChat/service/mgo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// User 账号文档。凭据字段归 auth 模块管，核心只碰 online/last_seen_at。
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"` // bcrypt hash

	Online     bool       `bson:"online" json:"online"`
	LastSeenAt *time.Time `bson:"last_seen_at" json:"lastSeen"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (u User) GetTableName() string {
	return "user"
}

func (u User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}

// Field name 常量（filter/update 里复用，避免散落字符串）
const (
	UserFieldOnline     = "online"
	UserFieldLastSeenAt = "last_seen_at"
	UserFieldUpdatedAt  = "updated_at"
)
