package rtc

import (
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

// Signaler carries outbound negotiation messages to the coordinator. The
// room controller implements it, stamping the local id and wire encoding.
type Signaler interface {
	SendOffer(target, sdp string)
	SendAnswer(target, sdp string)
	SendCandidate(target string, c webrtc.ICECandidateInit)
}

// Engine drives the offer/answer/ICE exchange per session. Every step runs
// under the session's mutex, so offer, answer, and candidate application for
// one peer never interleave; sessions for different peers progress
// concurrently. A failing step is logged as a session-scoped warning and
// never takes down other sessions.
type Engine struct {
	sig Signaler
}

// NewEngine creates an engine emitting through sig.
func NewEngine(sig Signaler) *Engine {
	return &Engine{sig: sig}
}

// Initiate takes the caller role: create an offer, apply it locally, and send
// it to the peer. Valid only from stable; anything else is logged and
// dropped.
func (e *Engine) Initiate(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sigState != StateStable {
		util.LogWarning("[%s] cannot initiate offer in state %s", s.ID, s.sigState)
		return
	}

	offer, err := s.conn.CreateOffer()
	if err != nil {
		util.LogWarning("[%s] CreateOffer failed: %v", s.ID, err)
		return
	}
	if err := s.conn.SetLocalDescription(offer); err != nil {
		util.LogWarning("[%s] SetLocalDescription failed: %v", s.ID, err)
		return
	}

	s.role = RoleCaller
	s.sigState = StateHaveLocalOffer
	e.sig.SendOffer(s.ID, offer.SDP)
}

// HandleOffer takes the callee role for an inbound offer: apply it as the
// remote description, drain buffered candidates, then answer.
//
// An offer arriving while this side is not stable is glare — both peers
// offered at once. The incoming offer is dropped; the side with the
// outstanding local offer converges when the other peer's answer arrives.
func (e *Engine) HandleOffer(s *Session, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sigState != StateStable {
		util.LogWarning("[%s] offer glare in state %s — dropping remote offer", s.ID, s.sigState)
		return
	}

	if err := s.conn.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}); err != nil {
		util.LogWarning("[%s] SetRemoteDescription(offer) failed: %v", s.ID, err)
		return
	}

	s.role = RoleCallee
	s.sigState = StateHaveRemoteOffer
	s.drainPendingLocked()

	answer, err := s.conn.CreateAnswer()
	if err != nil {
		util.LogWarning("[%s] CreateAnswer failed: %v", s.ID, err)
		return
	}
	if err := s.conn.SetLocalDescription(answer); err != nil {
		util.LogWarning("[%s] SetLocalDescription(answer) failed: %v", s.ID, err)
		return
	}

	s.sigState = StateStable
	e.sig.SendAnswer(s.ID, answer.SDP)
}

// HandleAnswer applies an inbound answer. Valid only with an outstanding
// local offer; duplicate or late answers are silently discarded.
func (e *Engine) HandleAnswer(s *Session, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sigState != StateHaveLocalOffer {
		util.LogDebug("[%s] discarding answer in state %s", s.ID, s.sigState)
		return
	}

	if err := s.conn.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}); err != nil {
		util.LogWarning("[%s] SetRemoteDescription(answer) failed: %v", s.ID, err)
		return
	}

	s.sigState = StateStable
	s.drainPendingLocked()
}

// HandleCandidate applies an inbound remote candidate, or buffers it (FIFO)
// while the remote description is not yet set. A malformed candidate is a
// per-candidate warning; the session keeps going.
func (e *Engine) HandleCandidate(s *Session, candidate webrtc.ICECandidateInit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.remoteSet {
		s.pending = append(s.pending, candidate)
		return
	}

	if err := s.conn.AddICECandidate(candidate); err != nil {
		util.LogWarning("[%s] AddICECandidate failed: %v", s.ID, err)
		return
	}
	util.Stats.AddCandidateApplied()
}
