// Package room contains the top-level controller that reacts to membership
// events from the coordinator and drives per-peer negotiation.
package room

import (
	"errors"

	"github.com/1ureka/1ureka.net.call/internal/rtc"
)

// Join failure taxonomy. All are recovered locally and surfaced to the
// caller without changing controller state.
var (
	ErrNotReady      = errors.New("local media capture is not ready")
	ErrInvalidInput  = errors.New("room id and display name must not be empty")
	ErrDisconnected  = errors.New("signaling channel is not connected")
	ErrAlreadyJoined = errors.New("already joined a room")
)

// Phase is the controller lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseJoined
)

func (p Phase) String() string {
	switch p {
	case PhaseJoined:
		return "joined"
	default:
		return "idle"
	}
}

// Participant is one member of the joined room.
type Participant struct {
	ID   string
	Name string
}

// State is a read-only snapshot of the current call, safe to hand to a UI.
// Participants are listed in join order.
type State struct {
	RoomID       string
	LocalID      string
	LocalName    string
	Participants []Participant
	Status       rtc.Status
	MicActive    bool
}
