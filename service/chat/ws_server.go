package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"DChat/logger"
	"DChat/tools/ids"
	"DChat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS ===== WebSocket 入口 =====
// 升级连接，起写协程，读循环逐帧分派；读循环退出统一走收尾：
// 退房、注销在线（可能触发全局下线广播）、关连接。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws)
	safe.Go(client.writePump)

	ws.SetReadLimit(maxFrameLength)
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(3 * pingPeriod))
	})
	_ = ws.SetReadDeadline(time.Now().Add(3 * pingPeriod))

	logger.Infof("[ws] new connection conn=%s remote=%s", client.ConnID, ws.RemoteAddr())

	// ---- 读循环：只读不写，出错即退出 ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s err=%v", client.ConnID, rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		handler := s.disp.Get(frame.Event)
		if handler == nil {
			continue
		}
		if herr := handler(c.Request.Context(), client, frame); herr != nil {
			logger.Infof("[ws] handler err event=%s conn=%s err=%v", frame.Event, client.ConnID, herr)
		}
	}

	// ---- 收尾：退房 + 注销 + 下线广播 ----
	s.teardown(client)
}

func (s *Server) teardown(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s.rooms.LeaveAll(client.ConnID)

	userID, last := s.presence.Deregister(ctx, client.ConnID)
	if last && userID != "" {
		// 下线要全局可见：任何人的会话列表里都可能有这个用户
		at := time.Now()
		s.BroadcastAll(EventUserStatus, UserStatusPayload{
			UserID:   userID,
			Online:   false,
			LastSeen: &at,
		})
	}
	client.Close()
	logger.Infof("[ws] closed conn=%s user=%s last=%v", client.ConnID, userID, last)
}
