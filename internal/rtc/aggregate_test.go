package rtc_test

import (
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/rtc"
)

func TestAggregate(t *testing.T) {
	connected := webrtc.PeerConnectionStateConnected
	connecting := webrtc.PeerConnectionStateConnecting
	failed := webrtc.PeerConnectionStateFailed
	disconnected := webrtc.PeerConnectionStateDisconnected

	tests := []struct {
		name       string
		states     []webrtc.PeerConnectionState
		wantKind   rtc.StatusKind
		wantString string
	}{
		{
			name:       "no sessions is idle",
			states:     nil,
			wantKind:   rtc.StatusIdle,
			wantString: "idle",
		},
		{
			name:       "single connected",
			states:     []webrtc.PeerConnectionState{connected},
			wantKind:   rtc.StatusConnected,
			wantString: "connected",
		},
		{
			name:       "all connected",
			states:     []webrtc.PeerConnectionState{connected, connected, connected},
			wantKind:   rtc.StatusConnected,
			wantString: "connected",
		},
		{
			name:       "any failure dominates",
			states:     []webrtc.PeerConnectionState{connected, failed, connecting},
			wantKind:   rtc.StatusFailed,
			wantString: "failed (1 connecting, 1 connected, 1 failed)",
		},
		{
			name:       "failure dominates even when all others connected",
			states:     []webrtc.PeerConnectionState{connected, connected, failed},
			wantKind:   rtc.StatusFailed,
			wantString: "failed (2 connected, 1 failed)",
		},
		{
			name:       "partial connectivity is mixed",
			states:     []webrtc.PeerConnectionState{connected, connecting},
			wantKind:   rtc.StatusMixed,
			wantString: "mixed (1 connecting, 1 connected)",
		},
		{
			name:       "disconnected without failure is mixed",
			states:     []webrtc.PeerConnectionState{connected, disconnected},
			wantKind:   rtc.StatusMixed,
			wantString: "mixed (1 connected, 1 disconnected)",
		},
		{
			name:       "all new is mixed",
			states:     []webrtc.PeerConnectionState{webrtc.PeerConnectionStateNew},
			wantKind:   rtc.StatusMixed,
			wantString: "mixed (1 new)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rtc.Aggregate(tt.states)
			if got.Kind != tt.wantKind {
				t.Errorf("Aggregate(%v).Kind = %v, want %v", tt.states, got.Kind, tt.wantKind)
			}
			if got.String() != tt.wantString {
				t.Errorf("Aggregate(%v).String() = %q, want %q", tt.states, got.String(), tt.wantString)
			}
		})
	}
}

func TestAggregateIsPure(t *testing.T) {
	states := []webrtc.PeerConnectionState{
		webrtc.PeerConnectionStateConnected,
		webrtc.PeerConnectionStateConnecting,
	}

	first := rtc.Aggregate(states)
	second := rtc.Aggregate(states)

	if first != second {
		t.Errorf("same input produced %v then %v", first, second)
	}
	if states[0] != webrtc.PeerConnectionStateConnected {
		t.Error("Aggregate mutated its input")
	}
}
