package chat

import (
	"context"
	"sync"
	"time"

	"DChat/logger"
)

// UserFlipStore 在线标记落库（module/chat/message.Store 实现；单测给桩）。
type UserFlipStore interface {
	SetOnline(ctx context.Context, userID string, online bool, lastSeenAt *time.Time) error
}

// Mirror 旁路在线镜像（redis），可为 nil。写失败只记日志。
type Mirror interface {
	Online(user string) error
	Offline(user string) error
}

// Presence 在线状态的唯一权威：userID -> 活跃连接集合。
// 进程内就这一份跨请求共享可变状态，单把锁护住；map 操作从不阻塞。
// 落库（online 标记翻转）发生在广播之前——调用方拿到 first/last
// 返回值后再广播，收到广播去回查的客户端看到的就是一致的值。
type Presence struct {
	mu     sync.RWMutex
	byConn map[string]*Client            // connID -> client
	byUser map[string]map[string]*Client // userID -> connID -> client

	store  UserFlipStore
	mirror Mirror
	now    func() time.Time
}

func NewPresence(store UserFlipStore, mirror Mirror) *Presence {
	return &Presence{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		store:  store,
		mirror: mirror,
		now:    time.Now,
	}
}

// Register 登记连接。返回该用户是否由离线转为在线（首条连接）。
// 首条连接时同步落库 online=true,last_seen_at=null；
// 落库失败不阻断登记——内存 map 始终是权威。
func (p *Presence) Register(ctx context.Context, c *Client) (first bool) {
	var prevUser string
	var prevLast bool

	p.mu.Lock()
	// 同一连接换身份重新认领：旧身份的索引条目先清掉，
	// 否则 Deregister 只认最新身份，旧用户会永远显示在线。
	if prev, ok := p.byConn[c.ConnID]; ok && prev.UserID != c.UserID {
		prevUser = prev.UserID
		if set, ok := p.byUser[prevUser]; ok {
			delete(set, c.ConnID)
			if len(set) == 0 {
				delete(p.byUser, prevUser)
				prevLast = true
			}
		}
	}
	p.byConn[c.ConnID] = c
	set, ok := p.byUser[c.UserID]
	if !ok {
		set = make(map[string]*Client)
		p.byUser[c.UserID] = set
	}
	set[c.ConnID] = c
	first = len(set) == 1
	p.mu.Unlock()

	if prevLast && prevUser != "" {
		at := p.now()
		if err := p.store.SetOnline(ctx, prevUser, false, &at); err != nil {
			logger.Errorf("[presence] persist offline failed user=%s err=%v", prevUser, err)
		}
		if p.mirror != nil {
			if err := p.mirror.Offline(prevUser); err != nil {
				logger.Warnf("[presence] mirror offline failed user=%s err=%v", prevUser, err)
			}
		}
	}
	if first {
		if err := p.store.SetOnline(ctx, c.UserID, true, nil); err != nil {
			logger.Errorf("[presence] persist online failed user=%s err=%v", c.UserID, err)
		}
		if p.mirror != nil {
			if err := p.mirror.Online(c.UserID); err != nil {
				logger.Warnf("[presence] mirror online failed user=%s err=%v", c.UserID, err)
			}
		}
	}
	return first
}

// Deregister 注销连接。返回所属用户和该用户是否就此离线（最后一条连接）。
// 离线时落库 online=false,last_seen_at=now；无论库成败，map 都会清掉。
func (p *Presence) Deregister(ctx context.Context, connID string) (userID string, last bool) {
	p.mu.Lock()
	c, ok := p.byConn[connID]
	if !ok {
		p.mu.Unlock()
		return "", false
	}
	delete(p.byConn, connID)
	userID = c.UserID
	if set, ok := p.byUser[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(p.byUser, userID)
			last = true
		}
	}
	p.mu.Unlock()

	if last && userID != "" {
		at := p.now()
		if err := p.store.SetOnline(ctx, userID, false, &at); err != nil {
			logger.Errorf("[presence] persist offline failed user=%s err=%v", userID, err)
		}
		if p.mirror != nil {
			if err := p.mirror.Offline(userID); err != nil {
				logger.Warnf("[presence] mirror offline failed user=%s err=%v", userID, err)
			}
		}
	}
	return userID, last
}

// IsOnline 查内存集合，不读库——反映的是本进程当下的视图。
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser[userID]) > 0
}

// Get 按连接ID取客户端。
func (p *Presence) Get(connID string) *Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byConn[connID]
}

// ClientsOf 某用户的全部活跃连接（个人频道的投递目标）。
func (p *Presence) ClientsOf(userID string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.byUser[userID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All 全部连接。
func (p *Presence) All() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Client, 0, len(p.byConn))
	for _, c := range p.byConn {
		out = append(out, c)
	}
	return out
}

// AllExcept 除指定连接外的全部连接（presence 广播去掉自环用）。
func (p *Presence) AllExcept(connID string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Client, 0, len(p.byConn))
	for id, c := range p.byConn {
		if id == connID {
			continue
		}
		out = append(out, c)
	}
	return out
}
