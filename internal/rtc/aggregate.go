package rtc

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// StatusKind is the room-level connection status vocabulary.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusConnected
	StatusFailed
	StatusMixed
	StatusClosed
)

// Status is the aggregate connection state of the whole call. Detail is
// populated for failed and mixed statuses with a per-state breakdown.
type Status struct {
	Kind   StatusKind
	Detail string
}

func (s Status) String() string {
	switch s.Kind {
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed (" + s.Detail + ")"
	case StatusMixed:
		return "mixed (" + s.Detail + ")"
	case StatusClosed:
		return "closed"
	default:
		return "idle"
	}
}

// breakdownOrder fixes the order states appear in Detail strings.
var breakdownOrder = []webrtc.PeerConnectionState{
	webrtc.PeerConnectionStateNew,
	webrtc.PeerConnectionStateConnecting,
	webrtc.PeerConnectionStateConnected,
	webrtc.PeerConnectionStateDisconnected,
	webrtc.PeerConnectionStateFailed,
	webrtc.PeerConnectionStateClosed,
}

// Aggregate derives the room-level status from the given per-session
// connection states. It is a pure function of its input: no session set →
// idle; any failure dominates; a non-empty uniformly connected set is
// connected; everything else is mixed with a breakdown.
func Aggregate(states []webrtc.PeerConnectionState) Status {
	if len(states) == 0 {
		return Status{Kind: StatusIdle}
	}

	counts := make(map[webrtc.PeerConnectionState]int, len(states))
	for _, st := range states {
		counts[st]++
	}

	if counts[webrtc.PeerConnectionStateFailed] > 0 {
		return Status{Kind: StatusFailed, Detail: breakdown(counts)}
	}
	if counts[webrtc.PeerConnectionStateConnected] == len(states) {
		return Status{Kind: StatusConnected}
	}
	return Status{Kind: StatusMixed, Detail: breakdown(counts)}
}

// breakdown renders state counts like "1 connecting, 2 connected".
func breakdown(counts map[webrtc.PeerConnectionState]int) string {
	parts := make([]string, 0, len(counts))
	for _, st := range breakdownOrder {
		if n := counts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	return strings.Join(parts, ", ")
}
