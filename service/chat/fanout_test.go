package chat

import (
	"testing"
	"time"
)

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case raw := <-c.Send:
		return raw
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestFanoutDelivers(t *testing.T) {
	f := NewFanout(2, 16)
	c1 := testClient("c1", "u1")
	c2 := testClient("c2", "u2")

	payload := []byte(`{"event":"user:status"}`)
	f.Broadcast([]*Client{c1, c2}, payload)

	if got := recvFrame(t, c1); string(got) != string(payload) {
		t.Fatalf("c1 got %q", got)
	}
	if got := recvFrame(t, c2); string(got) != string(payload) {
		t.Fatalf("c2 got %q", got)
	}
}

func TestFanoutSlowClientDoesNotBlock(t *testing.T) {
	f := NewFanout(1, 16)
	slow := &Client{ConnID: "slow", UserID: "u1", Send: make(chan []byte, 1), done: make(chan struct{})}
	fast := testClient("fast", "u2")

	// 填满慢连接的队列，后续帧对它直接丢弃
	slow.Send <- []byte("backlog")

	payload := []byte("hello")
	f.Broadcast([]*Client{slow, fast}, payload)

	// 快连接必须按时收到，不被慢连接拖住
	if got := recvFrame(t, fast); string(got) != "hello" {
		t.Fatalf("fast got %q", got)
	}
	if got := <-slow.Send; string(got) != "backlog" {
		t.Fatalf("slow queue head changed: %q", got)
	}
}

func TestFanoutEmptyBroadcastIsNoop(t *testing.T) {
	f := NewFanout(1, 1)
	f.Broadcast(nil, []byte("x"))
	f.Broadcast([]*Client{testClient("c1", "u1")}, nil)
}
