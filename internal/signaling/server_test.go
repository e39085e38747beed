package signaling_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/1ureka.net.call/internal/signaling"
)

var _ signaling.Handler = (*recorder)(nil)

// event flattens every handler callback into one comparable record.
type event struct {
	kind  string
	self  string
	id    string
	name  string
	from  string
	sdp   string
	users []signaling.User
	cand  webrtc.ICECandidateInit
}

// recorder is a signaling.Handler that funnels callbacks into a channel.
type recorder struct {
	events chan event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event, 16)}
}

func (r *recorder) HandleRoomUsers(self string, users []signaling.User) {
	r.events <- event{kind: "room-users", self: self, users: users}
}

func (r *recorder) HandlePeerJoined(id, name string) {
	r.events <- event{kind: "user-joined", id: id, name: name}
}

func (r *recorder) HandlePeerLeft(id string) {
	r.events <- event{kind: "user-left", id: id}
}

func (r *recorder) HandleOffer(from, sdp string) {
	r.events <- event{kind: "offer", from: from, sdp: sdp}
}

func (r *recorder) HandleAnswer(from, sdp string) {
	r.events <- event{kind: "answer", from: from, sdp: sdp}
}

func (r *recorder) HandleCandidate(from string, candidate webrtc.ICECandidateInit) {
	r.events <- event{kind: "ice-candidate", from: from, cand: candidate}
}

func (r *recorder) next(t *testing.T, wantKind string) event {
	t.Helper()
	select {
	case ev := <-r.events:
		if ev.kind != wantKind {
			t.Fatalf("got %s event, want %s", ev.kind, wantKind)
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s event", wantKind)
		return event{}
	}
}

func (r *recorder) expectSilence(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.events:
		t.Fatalf("unexpected %s event", ev.kind)
	case <-time.After(300 * time.Millisecond):
	}
}

// client couples a dialed channel with its recorder.
type client struct {
	ch  *signaling.Channel
	rec *recorder
}

func dialClient(t *testing.T, ctx context.Context, url string) *client {
	t.Helper()
	ch, err := signaling.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { ch.Close() })

	c := &client{ch: ch, rec: newRecorder()}
	go func() { _ = ch.Run(ctx, c.rec) }()
	return c
}

func startCoordinator(t *testing.T) string {
	t.Helper()
	srv := signaling.NewServer()
	port, err := srv.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Close)
	return fmt.Sprintf("ws://127.0.0.1:%d/ws", port)
}

func TestCoordinatorRoomLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url := startCoordinator(t)

	// Alice joins an empty room.
	alice := dialClient(t, ctx, url)
	if err := alice.ch.Send(signaling.Message{
		Type:        signaling.MsgTypeJoinRoom,
		RoomID:      "lobby",
		DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("alice join: %v", err)
	}

	roster := alice.rec.next(t, "room-users")
	if roster.self == "" {
		t.Fatal("room-users did not carry the assigned id")
	}
	if len(roster.users) != 0 {
		t.Fatalf("empty room reported %d occupants", len(roster.users))
	}
	aliceID := roster.self

	// Bob joins: his roster lists Alice; Alice is notified.
	bob := dialClient(t, ctx, url)
	if err := bob.ch.Send(signaling.Message{
		Type:        signaling.MsgTypeJoinRoom,
		RoomID:      "lobby",
		DisplayName: "Bob",
	}); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	roster = bob.rec.next(t, "room-users")
	if len(roster.users) != 1 || roster.users[0].ID != aliceID || roster.users[0].Name != "Alice" {
		t.Fatalf("bob's roster = %+v, want just alice", roster.users)
	}
	bobID := roster.self

	joined := alice.rec.next(t, "user-joined")
	if joined.id != bobID || joined.name != "Bob" {
		t.Fatalf("user-joined = %+v, want bob", joined)
	}

	// Relayed offer arrives with the sender's authoritative id, regardless
	// of what the sender claims in From.
	if err := bob.ch.Send(signaling.Message{
		Type:   signaling.MsgTypeOffer,
		Target: aliceID,
		From:   "impostor",
		SDP:    "v=0 bob-offer",
	}); err != nil {
		t.Fatalf("bob offer: %v", err)
	}

	offer := alice.rec.next(t, "offer")
	if offer.from != bobID {
		t.Errorf("offer.from = %q, want bob's assigned id", offer.from)
	}
	if offer.sdp != "v=0 bob-offer" {
		t.Errorf("offer.sdp = %q", offer.sdp)
	}

	// Candidates survive the round trip through their JSON envelope.
	cand := webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2122260223 10.0.0.2 51000 typ host"}
	payload, err := json.Marshal(cand)
	if err != nil {
		t.Fatalf("marshal candidate: %v", err)
	}
	if err := alice.ch.Send(signaling.Message{
		Type:      signaling.MsgTypeCandidate,
		Target:    bobID,
		Candidate: string(payload),
	}); err != nil {
		t.Fatalf("alice candidate: %v", err)
	}

	got := bob.rec.next(t, "ice-candidate")
	if got.from != aliceID || got.cand.Candidate != cand.Candidate {
		t.Errorf("candidate = %+v, want from alice with original payload", got)
	}

	// A message for a peer that is not in the room vanishes.
	if err := alice.ch.Send(signaling.Message{
		Type:   signaling.MsgTypeOffer,
		Target: "nobody",
		SDP:    "v=0 stray",
	}); err != nil {
		t.Fatalf("alice stray offer: %v", err)
	}
	bob.rec.expectSilence(t)

	// Bob leaves; Alice is told.
	if err := bob.ch.Send(signaling.Message{Type: signaling.MsgTypeLeaveRoom}); err != nil {
		t.Fatalf("bob leave: %v", err)
	}
	left := alice.rec.next(t, "user-left")
	if left.id != bobID {
		t.Errorf("user-left.id = %q, want bob's id", left.id)
	}
}

func TestDisconnectBroadcastsUserLeft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url := startCoordinator(t)

	alice := dialClient(t, ctx, url)
	if err := alice.ch.Send(signaling.Message{
		Type: signaling.MsgTypeJoinRoom, RoomID: "lobby", DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	alice.rec.next(t, "room-users")

	bob := dialClient(t, ctx, url)
	if err := bob.ch.Send(signaling.Message{
		Type: signaling.MsgTypeJoinRoom, RoomID: "lobby", DisplayName: "Bob",
	}); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	roster := bob.rec.next(t, "room-users")
	bobID := roster.self
	alice.rec.next(t, "user-joined")

	// A dropped socket counts as leaving.
	bob.ch.Close()

	left := alice.rec.next(t, "user-left")
	if left.id != bobID {
		t.Errorf("user-left.id = %q, want bob's id", left.id)
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url := startCoordinator(t)

	alice := dialClient(t, ctx, url)
	if err := alice.ch.Send(signaling.Message{
		Type: signaling.MsgTypeJoinRoom, RoomID: "red", DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("alice join: %v", err)
	}
	alice.rec.next(t, "room-users")

	bob := dialClient(t, ctx, url)
	if err := bob.ch.Send(signaling.Message{
		Type: signaling.MsgTypeJoinRoom, RoomID: "blue", DisplayName: "Bob",
	}); err != nil {
		t.Fatalf("bob join: %v", err)
	}
	roster := bob.rec.next(t, "room-users")
	if len(roster.users) != 0 {
		t.Errorf("bob's roster crossed rooms: %+v", roster.users)
	}

	alice.rec.expectSilence(t)
}

func TestSendAfterCloseFails(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	url := startCoordinator(t)

	ch, err := signaling.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if !ch.Connected() {
		t.Fatal("fresh channel reports disconnected")
	}

	ch.Close()

	if ch.Connected() {
		t.Error("closed channel reports connected")
	}
	if err := ch.Send(signaling.Message{Type: signaling.MsgTypeLeaveRoom}); err == nil {
		t.Error("Send on a closed channel succeeded")
	}
}
