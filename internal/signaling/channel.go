package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

// Handler receives inbound coordinator messages, one call per message in
// wire order. Implementations should return quickly; the read loop does not
// buffer or reorder.
type Handler interface {
	HandleRoomUsers(self string, users []User)
	HandlePeerJoined(id, name string)
	HandlePeerLeft(id string)
	HandleOffer(from, sdp string)
	HandleAnswer(from, sdp string)
	HandleCandidate(from string, candidate webrtc.ICECandidateInit)
}

// Channel is the client side of the coordinator connection. Writes are
// serialized by a mutex; reads happen in Run on the caller's goroutine.
type Channel struct {
	conn *websocket.Conn

	mu        sync.Mutex // guards writes
	connected atomic.Bool
}

// Dial connects to the coordinator's WebSocket endpoint, e.g.
//
//	wss://example.devtunnels.ms/ws
func Dial(ctx context.Context, url string) (*Channel, error) {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	c := &Channel{conn: conn}
	c.connected.Store(true)
	return c, nil
}

// Send writes a signaling message to the WebSocket, guarded by a mutex.
func (c *Channel) Send(msg Message) error {
	if !c.connected.Load() {
		return fmt.Errorf("signaling channel is closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Connected reports whether the channel is still usable for sending.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Run reads messages until the connection drops or ctx is cancelled, routing
// each one to h. Malformed message payloads are logged and skipped; they never
// abort the loop.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	done := make(chan struct{})
	defer close(done)

	// Close the connection when ctx is done so ReadJSON unblocks.
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.connected.Store(false)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("coordinator read: %w", err)
		}
		c.route(msg, h)
	}
}

// route dispatches one inbound message to the handler.
func (c *Channel) route(msg Message, h Handler) {
	switch msg.Type {
	case MsgTypeRoomUsers:
		h.HandleRoomUsers(msg.Self, msg.Users)

	case MsgTypeUserJoined:
		h.HandlePeerJoined(msg.ID, msg.Name)

	case MsgTypeUserLeft:
		h.HandlePeerLeft(msg.ID)

	case MsgTypeOffer:
		h.HandleOffer(msg.From, msg.SDP)

	case MsgTypeAnswer:
		h.HandleAnswer(msg.From, msg.SDP)

	case MsgTypeCandidate:
		var init webrtc.ICECandidateInit
		if err := json.Unmarshal([]byte(msg.Candidate), &init); err != nil {
			util.LogWarning("malformed ICE candidate from %s: %v", msg.From, err)
			return
		}
		h.HandleCandidate(msg.From, init)

	default:
		util.LogDebug("ignoring unknown signaling message type %q", msg.Type)
	}
}

// Close shuts down the WebSocket connection. Safe to call more than once.
func (c *Channel) Close() error {
	c.connected.Store(false)
	return c.conn.Close()
}
