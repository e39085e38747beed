package rtc_test

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/rtc"
)

// Compile-time interface checks.
var (
	_ rtc.PeerConn    = (*fakeConn)(nil)
	_ rtc.TrackSender = (*fakeSender)(nil)
	_ rtc.Signaler    = (*fakeSignaler)(nil)
)

// fakeConn implements rtc.PeerConn for in-process testing. It records every
// description and candidate applied to it, and lets tests drive the
// connection state callback directly.
type fakeConn struct {
	offers  int
	answers int

	locals  []webrtc.SessionDescription
	remotes []webrtc.SessionDescription
	applied []webrtc.ICECandidateInit
	tracks  []webrtc.TrackLocal
	senders []*fakeSender
	closed  int

	offerErr     error
	answerErr    error
	setRemoteErr error
	applyErr     error
	closeErr     error

	onCandidate func(webrtc.ICECandidateInit)
	onState     func(webrtc.PeerConnectionState)
}

func (f *fakeConn) CreateOffer() (webrtc.SessionDescription, error) {
	if f.offerErr != nil {
		return webrtc.SessionDescription{}, f.offerErr
	}
	f.offers++
	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  fmt.Sprintf("v=0 offer-%d", f.offers),
	}, nil
}

func (f *fakeConn) CreateAnswer() (webrtc.SessionDescription, error) {
	if f.answerErr != nil {
		return webrtc.SessionDescription{}, f.answerErr
	}
	f.answers++
	return webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  fmt.Sprintf("v=0 answer-%d", f.answers),
	}, nil
}

func (f *fakeConn) SetLocalDescription(sdp webrtc.SessionDescription) error {
	f.locals = append(f.locals, sdp)
	return nil
}

func (f *fakeConn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	if f.setRemoteErr != nil {
		return f.setRemoteErr
	}
	f.remotes = append(f.remotes, sdp)
	return nil
}

func (f *fakeConn) AddICECandidate(c webrtc.ICECandidateInit) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, c)
	return nil
}

func (f *fakeConn) AddTrack(t webrtc.TrackLocal) (rtc.TrackSender, error) {
	f.tracks = append(f.tracks, t)
	s := &fakeSender{}
	f.senders = append(f.senders, s)
	return s, nil
}

func (f *fakeConn) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	f.onCandidate = fn
}

func (f *fakeConn) OnConnectionStateChange(fn func(webrtc.PeerConnectionState)) {
	f.onState = fn
}

func (f *fakeConn) Close() error {
	f.closed++
	if f.closed > 1 {
		return errors.New("connection already closed")
	}
	return f.closeErr
}

// fireState simulates an underlying connection state transition.
func (f *fakeConn) fireState(state webrtc.PeerConnectionState) {
	if f.onState != nil {
		f.onState(state)
	}
}

// fireCandidate simulates local ICE gathering producing a candidate.
func (f *fakeConn) fireCandidate(c webrtc.ICECandidateInit) {
	if f.onCandidate != nil {
		f.onCandidate(c)
	}
}

// fakeSender records track replacements from the mute toggle.
type fakeSender struct {
	replaced []webrtc.TrackLocal
}

func (f *fakeSender) ReplaceTrack(t webrtc.TrackLocal) error {
	f.replaced = append(f.replaced, t)
	return nil
}

// fakeSignaler collects outbound negotiation messages.
type fakeSignaler struct {
	offers     []sentSDP
	answers    []sentSDP
	candidates []sentCandidate
}

type sentSDP struct {
	target string
	sdp    string
}

type sentCandidate struct {
	target    string
	candidate webrtc.ICECandidateInit
}

func (f *fakeSignaler) SendOffer(target, sdp string) {
	f.offers = append(f.offers, sentSDP{target: target, sdp: sdp})
}

func (f *fakeSignaler) SendAnswer(target, sdp string) {
	f.answers = append(f.answers, sentSDP{target: target, sdp: sdp})
}

func (f *fakeSignaler) SendCandidate(target string, c webrtc.ICECandidateInit) {
	f.candidates = append(f.candidates, sentCandidate{target: target, candidate: c})
}

// newFakeFactory returns a ConnFactory handing out fresh fakeConns, plus the
// list of connections it created.
func newFakeFactory() (rtc.ConnFactory, *[]*fakeConn) {
	conns := &[]*fakeConn{}
	factory := func() (rtc.PeerConn, error) {
		c := &fakeConn{}
		*conns = append(*conns, c)
		return c, nil
	}
	return factory, conns
}

func candidate(s string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: s}
}
