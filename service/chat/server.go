package chat

import (
	"DChat/logger"
	"DChat/module/chat/message"
)

const (
	fanoutWorkers = 4
	fanoutQueue   = 1024
)

// Server 网关：连接登记、房间、事件分派和扇出都挂在这里。
// 存储侧只依赖 message 包的三件套（Store / Sender / StatusEngine）。
type Server struct {
	presence *Presence
	rooms    *Rooms
	fanout   *Fanout
	disp     *Dispatcher

	store  *message.Store
	sender *message.Sender
	status *message.StatusEngine
}

func NewServer(store *message.Store, sender *message.Sender, status *message.StatusEngine, mirror Mirror) *Server {
	s := &Server{
		presence: NewPresence(store, mirror),
		rooms:    NewRooms(),
		fanout:   NewFanout(fanoutWorkers, fanoutQueue),
		disp:     NewDispatcher(),
		store:    store,
		sender:   sender,
		status:   status,
	}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.disp.Register(EventUserConnect, s.handleUserConnect)
	s.disp.Register(EventUserStatus, s.handleUserStatus)
	s.disp.Register(EventJoin, s.handleJoin)
	s.disp.Register(EventLeave, s.handleLeave)
	s.disp.Register(EventTyping, s.handleTyping)
	s.disp.Register(EventMessageSend, s.handleMessageSend)
}

func (s *Server) Presence() *Presence { return s.presence }

// ===== 投递 =====

// EmitToConn 单连接直投（不走扇出池）。
func (s *Server) EmitToConn(c *Client, event string, data any) {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		logger.Errorf("[emit] encode %s failed: %v", event, err)
		return
	}
	c.Enqueue(payload)
}

// EmitToUser 个人频道：该用户的全部活跃连接。
func (s *Server) EmitToUser(userID, event string, data any) {
	s.emit(s.presence.ClientsOf(userID), event, data)
}

// EmitToRoom 会话房间多播。
func (s *Server) EmitToRoom(roomID, event string, data any) {
	s.emit(s.rooms.Members(roomID), event, data)
}

// EmitToRoomExcept 房间多播，排除发起连接（typing 用）。
func (s *Server) EmitToRoomExcept(roomID, connID, event string, data any) {
	s.emit(s.rooms.MembersExcept(roomID, connID), event, data)
}

// BroadcastAll 全局广播（下线通知要让所有人看见）。
func (s *Server) BroadcastAll(event string, data any) {
	s.emit(s.presence.All(), event, data)
}

// BroadcastExcept 全局广播但排除自己（上线通知防自环）。
func (s *Server) BroadcastExcept(connID, event string, data any) {
	s.emit(s.presence.AllExcept(connID), event, data)
}

func (s *Server) emit(conns []*Client, event string, data any) {
	if len(conns) == 0 {
		return
	}
	payload, err := EncodeEvent(event, data)
	if err != nil {
		logger.Errorf("[emit] encode %s failed: %v", event, err)
		return
	}
	s.fanout.Broadcast(conns, payload)
}
