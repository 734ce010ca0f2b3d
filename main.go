package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoutil "DChat/data/database/mgo/mongoutil"
	"DChat/global"
	"DChat/logger"
	mid "DChat/middleware"
	chatapi "DChat/module/chat"
	"DChat/module/chat/message"
	"DChat/module/status"
	"DChat/module/user"
	usersrv "DChat/module/user/service"
	chatsrv "DChat/service/chat"
	mgoSrv "DChat/service/mgo"
	"DChat/service/storage"
	"DChat/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	global.Load()
	ids.SetNodeID(global.Global.NodeID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := mgoSrv.Init(ctx, &mongoutil.Config{
		Uri:      global.Global.MongoURI,
		Database: global.Global.MongoDatabase,
	}); err != nil {
		logger.Errorf("mongo init failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("MongoDB connected")

	// redis 只承载在线镜像，连不上降级运行
	var mirror chatsrv.Mirror
	if err := storage.InitRedis(storage.Config{
		Addr:     global.Global.RedisAddr,
		Password: global.Global.RedisPassword,
		DB:       global.Global.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence mirror disabled: %v", err)
	} else {
		mirror = storage.NewPresence(fmt.Sprintf("node_%d", global.Global.NodeID), 5*time.Minute)
	}

	db := mgoSrv.GetDB()
	store := message.NewStore(db)
	sender := message.NewSender(store, mgoSrv.WithTransaction)
	engine := message.NewStatusEngine(store)
	gw := chatsrv.NewServer(store, sender, engine, mirror)

	mid.InitAuth(global.GetJwtSecret())

	r := gin.Default()
	r.Use(mid.Cors())

	userH := user.NewHandler(usersrv.NewUsers(db))
	chatH := chatapi.NewHandler(store)
	statusH := status.NewHandler(engine, store, gw)

	mid.POST(r, "/auth/register", userH.HandlerRegister, mid.RouteOpt{})
	mid.POST(r, "/auth/login", userH.HandlerLogin, mid.RouteOpt{})
	mid.GET(r, "/users", userH.HandlerList, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/messages/:userId", chatH.HandlerMessages, mid.RouteOpt{IsAuth: true})
	mid.GET(r, "/conversations", chatH.HandlerConversations, mid.RouteOpt{IsAuth: true})
	mid.PUT(r, "/message-status/:messageId/delivered", statusH.HandlerMarkDelivered, mid.RouteOpt{IsAuth: true})
	mid.PUT(r, "/message-status/:messageId/read", statusH.HandlerMarkRead, mid.RouteOpt{IsAuth: true})
	mid.PUT(r, "/message-status/conversation/:conversationId/read-all", statusH.HandlerMarkAllRead, mid.RouteOpt{IsAuth: true})

	r.GET("/ws", gw.HandleWS)

	addr := fmt.Sprintf(":%d", global.Global.Port)
	logger.Infof("server running on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}
