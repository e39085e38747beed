package room

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/media"
	"github.com/1ureka/1ureka.net.call/internal/rtc"
	"github.com/1ureka/1ureka.net.call/internal/signaling"
	"github.com/1ureka/1ureka.net.call/internal/util"
)

// Channel is the outbound half of the coordinator connection the controller
// depends on. *signaling.Channel satisfies it.
type Channel interface {
	Send(msg signaling.Message) error
	Connected() bool
}

// CaptureFunc acquires the local audio source. Join uses it as a fallback
// when no source was attached beforehand.
type CaptureFunc func() (media.Source, error)

// Controller reacts to membership events (self-join, peer-joined, peer-left)
// and local lifecycle (join/leave), orchestrating the registry and the
// negotiation engine. It is the signaling message handler and the engine's
// outbound signaler.
type Controller struct {
	ch      Channel
	reg     *rtc.Registry
	engine  *rtc.Engine
	capture CaptureFunc

	mu           sync.Mutex
	phase        Phase
	roomID       string
	localID      string
	localName    string
	participants []Participant
	source       media.Source
	left         bool // a previous call ended; snapshot reports closed
}

var (
	_ signaling.Handler = (*Controller)(nil)
	_ rtc.Signaler      = (*Controller)(nil)
)

// NewController wires a controller to its coordinator channel and session
// registry. capture may be nil when the caller attaches a source before Join.
func NewController(ch Channel, reg *rtc.Registry, capture CaptureFunc) *Controller {
	c := &Controller{
		ch:      ch,
		reg:     reg,
		capture: capture,
	}
	c.engine = rtc.NewEngine(c)

	reg.OnLocalCandidate(c.SendCandidate)
	reg.OnConnStateChange(func(peerID string, state webrtc.PeerConnectionState) {
		util.LogDebug("[%s] connection state: %s", peerID, state)
	})

	return c
}

// AttachSource hands the controller an already-acquired capture source.
func (c *Controller) AttachSource(src media.Source) {
	c.mu.Lock()
	c.source = src
	c.mu.Unlock()
	c.reg.SetTrackSource(src.Tracks)
}

// ---------------------------------------------------------------------------
// Local lifecycle
// ---------------------------------------------------------------------------

// Join validates inputs, confirms local capture (acquiring it as a fallback
// when possible), and transmits the join request. Checks run in order:
// capture readiness, input validity, channel connectivity. On success the
// controller is joined; membership then arrives via HandleRoomUsers.
func (c *Controller) Join(roomID, displayName string) error {
	roomID = strings.TrimSpace(roomID)
	displayName = strings.TrimSpace(displayName)

	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrAlreadyJoined
	}

	if c.source == nil {
		if c.capture == nil {
			c.mu.Unlock()
			return ErrNotReady
		}
		src, err := c.capture()
		if err != nil {
			c.mu.Unlock()
			util.LogWarning("capture fallback failed: %v", err)
			return ErrNotReady
		}
		c.source = src
		c.reg.SetTrackSource(src.Tracks)
	}

	if roomID == "" || displayName == "" {
		c.mu.Unlock()
		return ErrInvalidInput
	}

	if !c.ch.Connected() {
		c.mu.Unlock()
		return ErrDisconnected
	}

	// Become joined before the request leaves: the coordinator's room-users
	// reply can race the send's return, and the handlers gate on the phase.
	c.phase = PhaseJoined
	c.roomID = roomID
	c.localName = displayName
	c.left = false
	c.mu.Unlock()

	err := c.ch.Send(signaling.Message{
		Type:        signaling.MsgTypeJoinRoom,
		RoomID:      roomID,
		DisplayName: displayName,
	})
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseIdle
		c.roomID = ""
		c.localName = ""
		c.mu.Unlock()
		return ErrDisconnected
	}

	util.LogInfo("joined room %q as %q", roomID, displayName)
	return nil
}

// Leave notifies the coordinator, closes every session, and clears the
// membership list. Safe to call at any point, including mid-negotiation: it
// never waits for in-flight negotiation steps, and it is idempotent.
func (c *Controller) Leave() {
	c.mu.Lock()
	if c.phase == PhaseIdle {
		c.mu.Unlock()
		return
	}
	roomID := c.roomID
	c.phase = PhaseIdle
	c.roomID = ""
	c.localID = ""
	c.participants = nil
	c.left = true
	c.mu.Unlock()

	if c.ch.Connected() {
		if err := c.ch.Send(signaling.Message{Type: signaling.MsgTypeLeaveRoom, RoomID: roomID}); err != nil {
			util.LogWarning("leave notification failed: %v", err)
		}
	}

	c.reg.Clear()
	util.LogInfo("left room %q", roomID)
}

// SetMuted flips the room-wide microphone flag across every active session.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	src := c.source
	c.mu.Unlock()

	if src == nil {
		return
	}
	src.SetMuted(muted)
	c.reg.SetMuted(muted)
}

// Snapshot returns the current observable room state. The aggregate status
// is derived from the live sessions on every call, except after Leave, when
// it reports the terminal closed value.
//
// The session states are read after releasing c.mu: sessions hold their own
// mutex through negotiation steps that call back into the controller, so
// reading them under c.mu would invert the lock order.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	closed := c.phase == PhaseIdle && c.left
	st := State{
		RoomID:       c.roomID,
		LocalID:      c.localID,
		LocalName:    c.localName,
		Participants: append([]Participant(nil), c.participants...),
		MicActive:    c.source != nil && !c.source.Muted(),
	}
	c.mu.Unlock()

	if closed {
		st.Status = rtc.Status{Kind: rtc.StatusClosed}
		return st
	}
	st.Status = rtc.Aggregate(c.reg.ConnStates())
	return st
}

// ---------------------------------------------------------------------------
// Membership events (coordinator → controller)
// ---------------------------------------------------------------------------

// HandleRoomUsers records the assigned local id and the occupants already in
// the room. Sessions are prepared for each occupant; the occupants offer to
// us on their user-joined notification, so the newcomer side waits as callee
// rather than racing a second offer into glare.
func (c *Controller) HandleRoomUsers(self string, users []signaling.User) {
	c.mu.Lock()
	if c.phase != PhaseJoined {
		c.mu.Unlock()
		return
	}
	if self != "" {
		c.localID = self
	}
	fresh := make([]signaling.User, 0, len(users))
	for _, u := range users {
		if c.addParticipantLocked(u.ID, u.Name) {
			fresh = append(fresh, u)
		}
	}
	c.mu.Unlock()

	for _, u := range fresh {
		if _, err := c.reg.Ensure(u.ID); err != nil {
			util.LogWarning("[%s] failed to prepare session: %v", u.ID, err)
		}
	}
}

// HandlePeerJoined adds the new participant and initiates as caller: the
// established member offers, the newcomer answers.
func (c *Controller) HandlePeerJoined(id, name string) {
	c.mu.Lock()
	if c.phase != PhaseJoined || !c.addParticipantLocked(id, name) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	util.LogInfo("[%s] %q joined", id, name)

	s, err := c.reg.Ensure(id)
	if err != nil {
		util.LogWarning("[%s] failed to create session: %v", id, err)
		return
	}
	c.engine.Initiate(s)
}

// HandlePeerLeft drops the participant and closes its session.
func (c *Controller) HandlePeerLeft(id string) {
	c.mu.Lock()
	c.removeParticipantLocked(id)
	c.mu.Unlock()

	util.LogInfo("[%s] left", id)
	c.reg.Remove(id)
}

// ---------------------------------------------------------------------------
// Negotiation messages (coordinator → controller)
// ---------------------------------------------------------------------------

// HandleOffer routes an inbound offer to the peer's session, creating it if
// this is the first message referencing the peer. Offers from senders not in
// the membership list (including peers that already left) are ignored.
func (c *Controller) HandleOffer(from, sdp string) {
	s := c.sessionFor(from)
	if s == nil {
		return
	}
	c.engine.HandleOffer(s, sdp)
}

// HandleAnswer routes an inbound answer. Unknown senders are ignored.
func (c *Controller) HandleAnswer(from, sdp string) {
	s := c.sessionFor(from)
	if s == nil {
		return
	}
	c.engine.HandleAnswer(s, sdp)
}

// HandleCandidate routes an inbound remote candidate; the engine buffers it
// when the remote description is not yet set.
func (c *Controller) HandleCandidate(from string, candidate webrtc.ICECandidateInit) {
	s := c.sessionFor(from)
	if s == nil {
		return
	}
	c.engine.HandleCandidate(s, candidate)
}

// sessionFor resolves the session for a negotiation message's sender. The
// membership list is the gate: the coordinator announces every peer before
// relaying its messages, so anything from an unlisted id is a straggler from
// a peer that already left.
func (c *Controller) sessionFor(from string) *rtc.Session {
	c.mu.Lock()
	member := c.phase == PhaseJoined && c.isParticipantLocked(from)
	c.mu.Unlock()

	if !member {
		util.LogDebug("[%s] message from non-member dropped", from)
		return nil
	}

	s, err := c.reg.Ensure(from)
	if err != nil {
		util.LogWarning("[%s] failed to create session: %v", from, err)
		return nil
	}
	return s
}

// ---------------------------------------------------------------------------
// Outbound signaling (engine → coordinator)
// ---------------------------------------------------------------------------

// SendOffer emits an offer addressed to target.
func (c *Controller) SendOffer(target, sdp string) {
	c.send(signaling.Message{
		Type:   signaling.MsgTypeOffer,
		Target: target,
		From:   c.localIDSnapshot(),
		SDP:    sdp,
	})
}

// SendAnswer emits an answer addressed to target.
func (c *Controller) SendAnswer(target, sdp string) {
	c.send(signaling.Message{
		Type:   signaling.MsgTypeAnswer,
		Target: target,
		From:   c.localIDSnapshot(),
		SDP:    sdp,
	})
}

// SendCandidate emits a locally gathered candidate addressed to target.
func (c *Controller) SendCandidate(target string, candidate webrtc.ICECandidateInit) {
	data, err := json.Marshal(candidate)
	if err != nil {
		util.LogWarning("[%s] candidate marshal failed: %v", target, err)
		return
	}
	c.send(signaling.Message{
		Type:      signaling.MsgTypeCandidate,
		Target:    target,
		From:      c.localIDSnapshot(),
		Candidate: string(data),
	})
	util.Stats.AddCandidateSent()
}

// send forwards one outbound message, logging failures. A send error is not
// fatal to the session: the channel's read loop surfaces disconnects.
func (c *Controller) send(msg signaling.Message) {
	if err := c.ch.Send(msg); err != nil {
		util.LogWarning("signaling send (%s to %s) failed: %v", msg.Type, msg.Target, err)
	}
}

func (c *Controller) localIDSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localID
}

// ---------------------------------------------------------------------------
// Membership helpers (caller holds c.mu)
// ---------------------------------------------------------------------------

func (c *Controller) addParticipantLocked(id, name string) bool {
	if id == "" || c.isParticipantLocked(id) {
		return false
	}
	c.participants = append(c.participants, Participant{ID: id, Name: name})
	return true
}

func (c *Controller) removeParticipantLocked(id string) {
	for i, p := range c.participants {
		if p.ID == id {
			c.participants = append(c.participants[:i], c.participants[i+1:]...)
			return
		}
	}
}

func (c *Controller) isParticipantLocked(id string) bool {
	for _, p := range c.participants {
		if p.ID == id {
			return true
		}
	}
	return false
}
