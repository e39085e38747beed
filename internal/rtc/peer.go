// Package rtc implements the peer-connection orchestration core: per-peer
// negotiation sessions, the session registry, offer/answer/ICE handling, and
// room-level connection state aggregation.
package rtc

import (
	"github.com/pion/webrtc/v4"
)

// TrackSender is the write side of one outbound track on a connection.
// *webrtc.RTPSender satisfies it; replacing the track with nil pauses sending.
type TrackSender interface {
	ReplaceTrack(track webrtc.TrackLocal) error
}

// PeerConn is the narrow capability surface the negotiation core needs from
// an underlying media connection. Production code backs it with a pion
// PeerConnection; tests substitute an in-process fake.
type PeerConn interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error
	AddTrack(webrtc.TrackLocal) (TrackSender, error)

	// OnICECandidate registers a callback invoked for every gathered local
	// candidate. The end-of-gathering marker is filtered out.
	OnICECandidate(func(webrtc.ICECandidateInit))
	OnConnectionStateChange(func(webrtc.PeerConnectionState))

	Close() error
}

// ConnFactory creates the underlying connection for a new peer session.
type ConnFactory func() (PeerConn, error)

// pionConn adapts *webrtc.PeerConnection to PeerConn.
type pionConn struct {
	pc *webrtc.PeerConnection
}

// NewPionFactory returns a ConnFactory producing pion PeerConnections with
// the given ICE configuration. populate registers the codecs the local media
// source encodes with; when nil, pion's default codecs are used.
func NewPionFactory(cfg webrtc.Configuration, populate func(*webrtc.MediaEngine)) ConnFactory {
	return func() (PeerConn, error) {
		engine := &webrtc.MediaEngine{}
		if populate != nil {
			populate(engine)
		} else if err := engine.RegisterDefaultCodecs(); err != nil {
			return nil, err
		}

		api := webrtc.NewAPI(webrtc.WithMediaEngine(engine))
		pc, err := api.NewPeerConnection(cfg)
		if err != nil {
			return nil, err
		}
		return &pionConn{pc: pc}, nil
	}
}

func (c *pionConn) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *pionConn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *pionConn) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sdp)
}

func (c *pionConn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sdp)
}

func (c *pionConn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

func (c *pionConn) AddTrack(track webrtc.TrackLocal) (TrackSender, error) {
	sender, err := c.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func (c *pionConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return // gathering complete
		}
		fn(cand.ToJSON())
	})
}

func (c *pionConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	c.pc.OnConnectionStateChange(fn)
}

func (c *pionConn) Close() error {
	return c.pc.Close()
}
