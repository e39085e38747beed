package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

// Registry maintains the peerID → Session route table; it is the single
// source of truth for which peers are part of the call. Iteration follows
// insertion order.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string

	newConn     ConnFactory
	trackSource func() []webrtc.TrackLocal
	onCandidate func(peerID string, c webrtc.ICECandidateInit)
	onConnState func(peerID string, s webrtc.PeerConnectionState)
}

// NewRegistry creates an empty registry. newConn is invoked once per peer to
// create the underlying connection.
func NewRegistry(newConn ConnFactory) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		newConn:  newConn,
	}
}

// SetTrackSource supplies the local capture tracks attached to every
// connection created from now on. All sessions share the same tracks.
func (r *Registry) SetTrackSource(fn func() []webrtc.TrackLocal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackSource = fn
}

// OnLocalCandidate registers the callback that forwards locally gathered
// candidates to the coordinator. Candidates are emitted as they are
// discovered, in gathering order.
func (r *Registry) OnLocalCandidate(fn func(peerID string, c webrtc.ICECandidateInit)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCandidate = fn
}

// OnConnStateChange registers the callback invoked on every underlying
// connection state transition.
func (r *Registry) OnConnStateChange(fn func(peerID string, s webrtc.PeerConnectionState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onConnState = fn
}

// Ensure returns the session for peerID, creating it when absent. Creation
// attaches the local tracks (when a source is present) and wires candidate
// and state routing. Calling Ensure twice with the same id never creates a
// second session or re-attaches tracks.
func (r *Registry) Ensure(peerID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[peerID]; ok {
		return s, nil
	}

	conn, err := r.newConn()
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        peerID,
		conn:      conn,
		connState: webrtc.PeerConnectionStateNew,
	}

	if r.trackSource != nil {
		for _, track := range r.trackSource() {
			sender, err := conn.AddTrack(track)
			if err != nil {
				util.LogWarning("[%s] failed to attach local track: %v", peerID, err)
				continue
			}
			s.outbound = append(s.outbound, outboundTrack{sender: sender, track: track})
		}
	}

	onCandidate := r.onCandidate
	conn.OnICECandidate(func(c webrtc.ICECandidateInit) {
		if onCandidate != nil {
			onCandidate(peerID, c)
		}
	})

	onConnState := r.onConnState
	conn.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.setConnState(state)
		if onConnState != nil {
			onConnState(peerID, state)
		}
	})

	r.sessions[peerID] = s
	r.order = append(r.order, peerID)
	util.Stats.AddSession()
	return s, nil
}

// Get looks up an existing session without creating one.
func (r *Registry) Get(peerID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[peerID]
	return s, ok
}

// Remove closes the session's connection and drops the entry. No-op when the
// id is absent; calling it twice never fails.
func (r *Registry) Remove(peerID string) {
	r.mu.Lock()
	s, ok := r.sessions[peerID]
	if ok {
		delete(r.sessions, peerID)
		for i, id := range r.order {
			if id == peerID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if ok {
		s.close()
	}
}

// All returns every session in insertion order.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// ConnStates returns the underlying connection state of every session, in
// insertion order. Input for Aggregate.
func (r *Registry) ConnStates() []webrtc.PeerConnectionState {
	states := make([]webrtc.PeerConnectionState, 0)
	for _, s := range r.All() {
		states = append(states, s.ConnState())
	}
	return states
}

// Clear closes every session and empties the registry. Close is idempotent
// per session and never blocks on in-flight negotiation.
func (r *Registry) Clear() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		sessions = append(sessions, r.sessions[id])
	}
	r.sessions = make(map[string]*Session)
	r.order = nil
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

// SetMuted flips the shared outbound-audio flag across every active session.
func (r *Registry) SetMuted(muted bool) {
	for _, s := range r.All() {
		s.setMuted(muted)
	}
}
