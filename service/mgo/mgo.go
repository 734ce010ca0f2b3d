package mgo

import (
	"context"
	"sync"

	mgo "DChat/data/database/mgo/mongoutil"

	"go.mongodb.org/mongo-driver/mongo"
)

// 进程生命周期内唯一的 Mongo 客户端；main() 启动时 Init，之后只读。
var (
	mu     sync.RWMutex
	client *mgo.Client
)

// Init 同步连接（带 mongoutil 内部的重试）；失败直接让进程退出。
func Init(ctx context.Context, cfg *mgo.Config) error {
	cli, err := mgo.NewMongoDB(ctx, cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	client = cli
	mu.Unlock()
	return nil
}

func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	if client == nil {
		panic("Mongo not ready: call Init() first")
	}
	return client.GetDB()
}

// WithTransaction 暴露给业务层的事务入口。
func WithTransaction(ctx context.Context, fn mgo.TxnFunc) error {
	mu.RLock()
	c := client
	mu.RUnlock()
	if c == nil {
		panic("Mongo not ready: call Init() first")
	}
	return c.WithTransaction(ctx, fn)
}
