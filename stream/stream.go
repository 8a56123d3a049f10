// Package stream broadcasts simulation snapshots to websocket
// clients. The connection is one-way: clients only receive transforms
// and never mutate physics state, so a renderer stays a pure consumer.
package stream

import (
	"log"
	"net/http"
	"sync"

	ohao "github.com/Qervas/ohao-engine"
	"github.com/Qervas/ohao-engine/dynamics"
	"github.com/gorilla/websocket"
)

// BodyState is the per-body payload sent to clients.
type BodyState struct {
	ID       int        `json:"id"`
	Shape    string     `json:"shape"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // w, x, y, z
	Velocity [3]float64 `json:"velocity"`
	Sleeping bool       `json:"sleeping"`
}

// Snapshot is one frame of the simulation.
type Snapshot struct {
	Time   float64     `json:"time"`
	Bodies []BodyState `json:"bodies"`
}

// Capture builds a snapshot of the world's current state.
func Capture(world *ohao.World) Snapshot {
	snapshot := Snapshot{
		Time:   world.Elapsed(),
		Bodies: make([]BodyState, 0, len(world.Bodies)),
	}

	for i, body := range world.Bodies {
		var shape string
		switch body.Shape.Type() {
		case dynamics.ShapeTypeSphere:
			shape = "sphere"
		case dynamics.ShapeTypeBox:
			shape = "box"
		default:
			shape = "plane"
		}

		pos := body.Transform.Position
		rot := body.Transform.Rotation
		vel := body.Velocity

		snapshot.Bodies = append(snapshot.Bodies, BodyState{
			ID:       i,
			Shape:    shape,
			Position: [3]float64{pos.X(), pos.Y(), pos.Z()},
			Rotation: [4]float64{rot.W, rot.V.X(), rot.V.Y(), rot.V.Z()},
			Velocity: [3]float64{vel.X(), vel.Y(), vel.Z()},
			Sleeping: body.IsSleeping,
		})
	}

	return snapshot
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server fans snapshots out to connected websocket clients.
type Server struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewServer() *Server {
	return &Server{
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handler upgrades the request and registers the client. The read
// loop only watches for disconnects; incoming data is discarded.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[ws] = true
	s.mu.Unlock()

	go func() {
		defer s.remove(ws)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) remove(ws *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, ws)
	s.mu.Unlock()
	ws.Close()
}

// Broadcast sends the snapshot to every client, dropping clients whose
// writes fail.
func (s *Server) Broadcast(snapshot Snapshot) {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for ws := range s.clients {
		conns = append(conns, ws)
	}
	s.mu.Unlock()

	for _, ws := range conns {
		if err := ws.WriteJSON(snapshot); err != nil {
			log.Println("stream: WriteJSON error:", err)
			s.remove(ws)
		}
	}
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects all clients.
func (s *Server) Close() {
	s.mu.Lock()
	for ws := range s.clients {
		ws.Close()
	}
	clear(s.clients)
	s.mu.Unlock()
}
