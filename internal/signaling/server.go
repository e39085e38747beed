package signaling

import (
	"fmt"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/1ureka/1ureka.net.call/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the coordinator: a WebSocket endpoint that assigns each
// connection an opaque id, tracks room membership, and relays negotiation
// messages to the addressed peer.
type Server struct {
	listener net.Listener
	hub      *hub
}

// NewServer creates a coordinator with no rooms.
func NewServer() *Server {
	return &Server{hub: newHub()}
}

// Start begins listening on addr (":0" picks a random port) and serves the
// /ws endpoint in the background. Returns the bound port number.
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start coordinator: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	p := &participant{id: uuid.NewString(), conn: conn}
	util.LogDebug("[%s] connected from %s", p.id, conn.RemoteAddr())

	// Read loop. Per-message decode errors end the connection: the contract
	// is JSON envelopes, anything else means the client is gone or broken.
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		s.hub.dispatch(p, &msg)
	}

	s.hub.leave(p)
	conn.Close()
	util.LogDebug("[%s] disconnected", p.id)
}

// Close shuts down the listener, preventing new connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}
