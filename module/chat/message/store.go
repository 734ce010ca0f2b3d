package message

import (
	chatmodel "DChat/module/chat/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store 核心三集合。所有可变状态都在库里，进程内不缓存文档。
type Store struct {
	UserColl *mongo.Collection // user
	ConvColl *mongo.Collection // conversation
	MsgColl  *mongo.Collection // message
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		UserColl: db.Collection(chatmodel.User{}.GetTableName()),
		ConvColl: db.Collection(chatmodel.Conversation{}.GetTableName()),
		MsgColl:  db.Collection(chatmodel.Message{}.GetTableName()),
	}
}
