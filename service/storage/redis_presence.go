package storage

import (
	"time"

	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
)

// presence key: im:presence:<user>
// 值是节点ID；TTL 控制在线有效期。进程内的 presence map 才是权威，
// 这里只是给运维/旁路查询用的镜像，写失败不影响连接生命周期。
func presenceKey(user string) string { return "im:presence:" + user }

// Presence 是注入给网关的镜像实现。
type Presence struct {
	NodeID string
	TTL    time.Duration
}

func NewPresence(nodeID string, ttl time.Duration) *Presence {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Presence{NodeID: nodeID, TTL: ttl}
}

// Online 标记用户在线并续期 TTL。
func (p *Presence) Online(user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), p.NodeID, p.TTL).Err()
}

// Offline 主动下线（删 key）。
func (p *Presence) Offline(user string) error {
	if rdb == nil {
		return errors.New("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup 旁路查询用户是否在线（监控用；业务判定走内存 map）。
func (p *Presence) Lookup(user string) (nodeID string, online bool, err error) {
	if rdb == nil {
		return "", false, errors.New("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
