package chat

import (
	"sync"
	"time"

	"DChat/logger"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize  = 256
	writeWait      = 10 * time.Second
	pingPeriod     = 25 * time.Second
	maxFrameLength = 64 * 1024
)

// Client represents one websocket connection.
// A single user may hold multiple connections (multi-device); each is
// tracked separately and has its own writer goroutine draining Send.
type Client struct {
	ConnID string
	UserID string // set by the user:connect event; empty until then

	WS   *websocket.Conn
	Send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(connID string, ws *websocket.Conn) *Client {
	return &Client{
		ConnID: connID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Enqueue 非阻塞投递；慢客户端直接丢帧（客户端靠 resync 补）。
func (c *Client) Enqueue(payload []byte) {
	select {
	case c.Send <- payload:
	case <-c.done:
	default:
		logger.Warnf("[ws] send queue full, drop frame conn=%s user=%s", c.ConnID, c.UserID)
	}
}

// Close 触发写协程收尾并关闭底层连接。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.WS.Close()
	})
}

// writePump 唯一的写者：业务帧 + 心跳 ping 都从这里出去。
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.Send:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write err conn=%s err=%v", c.ConnID, err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
