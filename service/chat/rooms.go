package chat

import (
	"sync"
)

// RoomID 规范房间名：两个用户ID排序后用 "_" 拼接。
// 顺序无关，双方各自算出来的房间名必然一致，无需协商。
func RoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "_" + b
}

// Rooms 房间成员表：roomID -> connID -> client，外加连接反查索引
// （连接断开时 LeaveAll 用）。
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]*Client
	joined  map[string]map[string]struct{} // connID -> roomIDs
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]*Client),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.members[roomID]
	if !ok {
		set = make(map[string]*Client)
		r.members[roomID] = set
	}
	set[c.ConnID] = c

	rooms, ok := r.joined[c.ConnID]
	if !ok {
		rooms = make(map[string]struct{})
		r.joined[c.ConnID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (r *Rooms) Leave(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, connID)
}

// LeaveAll 连接断开时清掉它加入过的所有房间。
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.joined[connID] {
		r.leaveLocked(roomID, connID)
	}
}

func (r *Rooms) leaveLocked(roomID, connID string) {
	if set, ok := r.members[roomID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, roomID)
		}
	}
	if rooms, ok := r.joined[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.joined, connID)
		}
	}
}

func (r *Rooms) Members(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[roomID]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// MembersExcept typing 转发用：房间内除发起连接外的成员。
func (r *Rooms) MembersExcept(roomID, connID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.members[roomID]
	out := make([]*Client, 0, len(set))
	for id, c := range set {
		if id == connID {
			continue
		}
		out = append(out, c)
	}
	return out
}
