package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// flipRecorder 记录 SetOnline 调用的桩存储。
type flipRecorder struct {
	mu    sync.Mutex
	calls []flipCall
	err   error
}

type flipCall struct {
	userID string
	online bool
	last   *time.Time
}

func (f *flipRecorder) SetOnline(_ context.Context, userID string, online bool, lastSeenAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, flipCall{userID: userID, online: online, last: lastSeenAt})
	return f.err
}

func (f *flipRecorder) all() []flipCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]flipCall(nil), f.calls...)
}

func TestPresenceFirstAndLast(t *testing.T) {
	store := &flipRecorder{}
	p := NewPresence(store, nil)
	ctx := context.Background()

	c1 := testClient("c1", "u1")
	c2 := testClient("c2", "u1")

	if first := p.Register(ctx, c1); !first {
		t.Fatal("first connection should flip user online")
	}
	// 同一用户第二条连接不再触发上线
	if first := p.Register(ctx, c2); first {
		t.Fatal("second connection must not report first")
	}
	if !p.IsOnline("u1") {
		t.Fatal("u1 should be online")
	}
	if got := len(p.ClientsOf("u1")); got != 2 {
		t.Fatalf("want 2 clients for u1, got %d", got)
	}

	if _, last := p.Deregister(ctx, "c1"); last {
		t.Fatal("u1 still has a connection, must not report last")
	}
	if !p.IsOnline("u1") {
		t.Fatal("u1 should remain online after dropping one of two connections")
	}

	userID, last := p.Deregister(ctx, "c2")
	if userID != "u1" || !last {
		t.Fatalf("want (u1, last=true), got (%s, %v)", userID, last)
	}
	if p.IsOnline("u1") {
		t.Fatal("u1 should be offline after last connection closes")
	}

	calls := store.all()
	if len(calls) != 2 {
		t.Fatalf("want exactly 2 store flips, got %d", len(calls))
	}
	if !calls[0].online || calls[0].last != nil {
		t.Fatalf("first flip must be online with nil last_seen: %+v", calls[0])
	}
	if calls[1].online || calls[1].last == nil {
		t.Fatalf("second flip must be offline with last_seen set: %+v", calls[1])
	}
}

func TestPresenceStoreFailureDoesNotBlock(t *testing.T) {
	store := &flipRecorder{err: errors.New("db down")}
	p := NewPresence(store, nil)
	ctx := context.Background()

	c := testClient("c1", "u1")
	if first := p.Register(ctx, c); !first {
		t.Fatal("registration must succeed even when persistence fails")
	}
	// 内存视图仍是权威
	if !p.IsOnline("u1") {
		t.Fatal("in-memory state must reflect the connection despite store error")
	}

	if _, last := p.Deregister(ctx, "c1"); !last {
		t.Fatal("deregistration must succeed even when persistence fails")
	}
	if p.IsOnline("u1") {
		t.Fatal("u1 must be offline in memory")
	}
}

func TestPresenceReclaimCleansOldIdentity(t *testing.T) {
	store := &flipRecorder{}
	p := NewPresence(store, nil)
	ctx := context.Background()

	p.Register(ctx, testClient("c1", "u1"))
	// 同一连接换身份重新认领
	if first := p.Register(ctx, testClient("c1", "u2")); !first {
		t.Fatal("u2 has no other connection, re-claim must report first")
	}

	if p.IsOnline("u1") {
		t.Fatal("u1 must go offline when its only connection claims another identity")
	}
	if !p.IsOnline("u2") {
		t.Fatal("u2 must be online after the re-claim")
	}

	userID, last := p.Deregister(ctx, "c1")
	if userID != "u2" || !last {
		t.Fatalf("want (u2, last=true), got (%s, %v)", userID, last)
	}
	if p.IsOnline("u1") || p.IsOnline("u2") {
		t.Fatal("no user may remain online after the only connection closed")
	}

	// 落库翻转顺序：u1 上线、u1 下线、u2 上线、u2 下线
	want := []flipCall{
		{userID: "u1", online: true},
		{userID: "u1", online: false},
		{userID: "u2", online: true},
		{userID: "u2", online: false},
	}
	calls := store.all()
	if len(calls) != len(want) {
		t.Fatalf("want %d store flips, got %d: %+v", len(want), len(calls), calls)
	}
	for i, w := range want {
		if calls[i].userID != w.userID || calls[i].online != w.online {
			t.Fatalf("flip %d: want %s online=%v, got %+v", i, w.userID, w.online, calls[i])
		}
		if !w.online && calls[i].last == nil {
			t.Fatalf("flip %d: offline must carry last_seen", i)
		}
	}
}

func TestPresenceDeregisterUnknownConn(t *testing.T) {
	p := NewPresence(&flipRecorder{}, nil)
	userID, last := p.Deregister(context.Background(), "ghost")
	if userID != "" || last {
		t.Fatalf("unknown conn must be a no-op, got (%q, %v)", userID, last)
	}
}

func TestPresenceAllExcept(t *testing.T) {
	p := NewPresence(&flipRecorder{}, nil)
	ctx := context.Background()
	p.Register(ctx, testClient("c1", "u1"))
	p.Register(ctx, testClient("c2", "u2"))
	p.Register(ctx, testClient("c3", "u3"))

	if got := len(p.All()); got != 3 {
		t.Fatalf("want 3 connections, got %d", got)
	}
	for _, c := range p.AllExcept("c2") {
		if c.ConnID == "c2" {
			t.Fatal("AllExcept must exclude the given connection")
		}
	}
	if got := len(p.AllExcept("c2")); got != 2 {
		t.Fatalf("want 2 connections excluding c2, got %d", got)
	}
}
