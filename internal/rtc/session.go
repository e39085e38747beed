package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

// Role records which side of the offer/answer exchange this session took.
type Role int

const (
	RoleUndetermined Role = iota
	RoleCaller
	RoleCallee
)

func (r Role) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	default:
		return "undetermined"
	}
}

// SignalingState follows the standard negotiation model: stable →
// have-local-offer → stable on the caller side, stable → have-remote-offer →
// stable on the callee side.
type SignalingState int

const (
	StateStable SignalingState = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
)

func (s SignalingState) String() string {
	switch s {
	case StateHaveLocalOffer:
		return "have-local-offer"
	case StateHaveRemoteOffer:
		return "have-remote-offer"
	default:
		return "stable"
	}
}

// outboundTrack pairs an RTP sender with the track it was created for, so a
// mute toggle can restore the original track.
type outboundTrack struct {
	sender TrackSender
	track  webrtc.TrackLocal
}

// Session owns one remote peer's negotiation state: the underlying
// connection, the signaling role, and remote candidates that arrived before
// the remote description. All negotiation steps against a session are
// serialized by its mutex; different sessions progress independently.
type Session struct {
	ID string

	mu        sync.Mutex
	conn      PeerConn
	role      Role
	sigState  SignalingState
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	outbound  []outboundTrack
	connState webrtc.PeerConnectionState

	closeOnce sync.Once
}

// Role returns the session's negotiated role.
func (s *Session) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SignalingState returns the current negotiation state.
func (s *Session) SignalingState() SignalingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sigState
}

// ConnState returns the last observed state of the underlying connection.
func (s *Session) ConnState() webrtc.PeerConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// PendingCandidates returns how many remote candidates are buffered waiting
// for the remote description.
func (s *Session) PendingCandidates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Session) setConnState(state webrtc.PeerConnectionState) {
	s.mu.Lock()
	s.connState = state
	s.mu.Unlock()
}

// drainPendingLocked applies the buffered remote candidates in arrival order
// and clears the buffer. It runs exactly once per session, right after the
// remote description is applied; every later candidate goes straight to the
// connection. A rejected candidate is a per-candidate warning, never fatal.
// Caller holds s.mu.
func (s *Session) drainPendingLocked() {
	s.remoteSet = true
	for _, cand := range s.pending {
		if err := s.conn.AddICECandidate(cand); err != nil {
			util.LogWarning("[%s] buffered candidate rejected: %v", s.ID, err)
			continue
		}
		util.Stats.AddCandidateApplied()
	}
	s.pending = nil
}

// setMuted swaps every outbound sender between its real track and nil.
func (s *Session) setMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.outbound {
		track := out.track
		if muted {
			track = nil
		}
		if err := out.sender.ReplaceTrack(track); err != nil {
			util.LogWarning("[%s] mute toggle failed: %v", s.ID, err)
		}
	}
}

// close shuts down the underlying connection exactly once. Closing an
// already-closed connection is not a failure.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			util.LogDebug("[%s] close: %v", s.ID, err)
		}
		util.Stats.RemoveSession()
	})
}
