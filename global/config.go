package global

import (
	"os"
	"strconv"

	"DChat/logger"

	"github.com/joho/godotenv"
)

// AppConfig 进程级配置；默认值本地可跑，.env / 环境变量覆盖。
type AppConfig struct {
	Port int

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	NodeID int64 // 雪花ID节点
}

var Global = AppConfig{
	Port:          5000,
	MongoURI:      "mongodb://localhost:27017",
	MongoDatabase: "chat",
	RedisAddr:     "127.0.0.1:6379",
	RedisPassword: "",
	RedisDB:       0,
	JWTSecret:     "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=",
	NodeID:        1,
}

// Load 读取 .env（没有也不报错）并应用环境变量覆盖。
func Load() {
	if err := godotenv.Load(); err == nil {
		logger.Infof("loaded .env")
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			Global.Port = p
		}
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		Global.MongoURI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		Global.MongoDatabase = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		Global.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		Global.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			Global.RedisDB = n
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		Global.JWTSecret = v
	}
	if v := os.Getenv("NODE_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			Global.NodeID = n
		}
	}
}

func GetJwtSecret() []byte {
	return []byte(Global.JWTSecret)
}
