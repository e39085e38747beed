package signaling

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

// participant is one connected client as seen by the coordinator.
type participant struct {
	id   string
	name string
	room string

	mu   sync.Mutex // guards writes to conn
	conn *websocket.Conn
}

// send writes one message to the participant, guarded by a mutex.
func (p *participant) send(msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(msg)
}

// hub owns room membership and relays negotiation messages between
// participants. Rooms are slices so room-users reflects join order.
type hub struct {
	mu    sync.Mutex
	rooms map[string][]*participant
}

func newHub() *hub {
	return &hub{rooms: make(map[string][]*participant)}
}

// dispatch routes one inbound message from p.
func (h *hub) dispatch(p *participant, msg *Message) {
	switch msg.Type {
	case MsgTypeJoinRoom:
		h.join(p, msg.RoomID, msg.DisplayName)

	case MsgTypeLeaveRoom:
		h.leave(p)

	case MsgTypeOffer, MsgTypeAnswer, MsgTypeCandidate:
		h.relay(p, msg)

	default:
		util.LogDebug("coordinator ignoring message type %q from %s", msg.Type, p.id)
	}
}

// join adds p to a room, replies with the occupant snapshot, and notifies
// everyone already present. A participant belongs to at most one room; joining
// a second room leaves the first.
func (h *hub) join(p *participant, roomID, name string) {
	if roomID == "" {
		util.LogWarning("join with empty room id from %s", p.id)
		return
	}

	h.mu.Lock()
	if p.room != "" {
		h.removeLocked(p)
	}
	members := h.rooms[roomID]
	users := make([]User, 0, len(members))
	others := make([]*participant, 0, len(members))
	for _, m := range members {
		users = append(users, User{ID: m.id, Name: m.name})
		others = append(others, m)
	}
	p.room = roomID
	p.name = name
	h.rooms[roomID] = append(members, p)
	h.mu.Unlock()

	util.LogInfo("[%s] %q joined room %q (%d already present)", p.id, name, roomID, len(users))

	if err := p.send(&Message{Type: MsgTypeRoomUsers, RoomID: roomID, Self: p.id, Users: users}); err != nil {
		util.LogWarning("[%s] room-users send failed: %v", p.id, err)
	}
	for _, other := range others {
		if err := other.send(&Message{Type: MsgTypeUserJoined, ID: p.id, Name: name}); err != nil {
			util.LogWarning("[%s] user-joined notify failed: %v", other.id, err)
		}
	}
}

// leave removes p from its room and broadcasts user-left. No-op when p is not
// in a room, so disconnect cleanup can call it unconditionally.
func (h *hub) leave(p *participant) {
	h.mu.Lock()
	if p.room == "" {
		h.mu.Unlock()
		return
	}
	room := p.room
	h.removeLocked(p)
	others := append([]*participant(nil), h.rooms[room]...)
	h.mu.Unlock()

	util.LogInfo("[%s] left room %q", p.id, room)

	for _, other := range others {
		if err := other.send(&Message{Type: MsgTypeUserLeft, ID: p.id}); err != nil {
			util.LogWarning("[%s] user-left notify failed: %v", other.id, err)
		}
	}
}

// removeLocked drops p from its room slice. Empty rooms are deleted.
// Caller holds h.mu.
func (h *hub) removeLocked(p *participant) {
	members := h.rooms[p.room]
	for i, m := range members {
		if m == p {
			h.rooms[p.room] = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(h.rooms[p.room]) == 0 {
		delete(h.rooms, p.room)
	}
	p.room = ""
}

// relay forwards an offer/answer/candidate to the addressed peer in the
// sender's room, stamping From with the sender's authoritative id. Messages
// for peers that already left are dropped.
func (h *hub) relay(p *participant, msg *Message) {
	h.mu.Lock()
	var target *participant
	for _, m := range h.rooms[p.room] {
		if m.id == msg.Target {
			target = m
			break
		}
	}
	h.mu.Unlock()

	if target == nil {
		util.LogDebug("[%s] %s for unknown target %q dropped", p.id, msg.Type, msg.Target)
		return
	}

	out := *msg
	out.From = p.id
	if err := target.send(&out); err != nil {
		util.LogWarning("[%s] relay %s to %s failed: %v", p.id, msg.Type, target.id, err)
	}
}
