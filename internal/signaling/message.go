// Package signaling defines the coordinator wire contract and the
// WebSocket channel used to exchange membership and negotiation messages.
package signaling

// MessageType identifies the kind of signaling message.
type MessageType string

const (
	// Client → coordinator.
	MsgTypeJoinRoom  MessageType = "join-room"
	MsgTypeLeaveRoom MessageType = "leave-room"

	// Coordinator → client.
	MsgTypeRoomUsers  MessageType = "room-users"
	MsgTypeUserJoined MessageType = "user-joined"
	MsgTypeUserLeft   MessageType = "user-left"

	// Relayed peer-to-peer, both directions.
	MsgTypeOffer     MessageType = "offer"
	MsgTypeAnswer    MessageType = "answer"
	MsgTypeCandidate MessageType = "ice-candidate"
)

// User identifies one participant as known to the coordinator.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message is the JSON envelope exchanged over the WebSocket. Only the fields
// relevant to each Type are populated. The coordinator stamps From with the
// sender's assigned id on every relayed message, so clients never trust a
// self-reported origin.
type Message struct {
	Type        MessageType `json:"type"`
	RoomID      string      `json:"roomId,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
	Target      string      `json:"target,omitempty"`
	From        string      `json:"from,omitempty"`
	SDP         string      `json:"sdp,omitempty"`
	Candidate   string      `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
	Self        string      `json:"self,omitempty"`      // room-users: the joiner's own assigned id
	Users       []User      `json:"users,omitempty"`     // room-users: occupants already present
	ID          string      `json:"id,omitempty"`        // user-joined / user-left
	Name        string      `json:"name,omitempty"`      // user-joined
}
