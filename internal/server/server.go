// Package server exposes the renderer contract over a websocket: every
// state change is pushed as a full snapshot, and consume/action commands
// come back the other way, routed through the store's guarded commands.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/softclaw/hatchling/internal/creature"
	"github.com/softclaw/hatchling/internal/habitat"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// StateMessage is pushed to every client on connect and after each
// applied mutation.
type StateMessage struct {
	Type  string         `json:"type"`
	State creature.State `json:"state"`
}

// Command is a client request: a consume op or a player action.
type Command struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Trick string `json:"trick,omitempty"`
}

// Ack reports whether a command applied. Ineligible actions are no-ops,
// never errors, so applied=false is the only failure signal.
type Ack struct {
	Type    string `json:"type"`
	Op      string `json:"op"`
	Applied bool   `json:"applied"`
}

type Server struct {
	store    *habitat.Store
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func New(store *habitat.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:   store,
		log:     log,
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	store.SetOnChange(s.broadcast)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/state", s.serveState)
	return mux
}

// serveState is a plain one-shot JSON read for non-websocket consumers.
func (s *Server) serveState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StateMessage{Type: "state", State: s.store.Snapshot()})
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	// Full snapshot on connect.
	if data, err := json.Marshal(StateMessage{Type: "state", State: s.store.Snapshot()}); err == nil {
		c.send <- data
	}

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) writeLoop(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(c *client) {
	defer s.drop(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.log.Debug("bad command", "error", err)
			continue
		}
		applied := s.dispatch(cmd)
		if ack, err := json.Marshal(Ack{Type: "ack", Op: cmd.Op, Applied: applied}); err == nil {
			select {
			case c.send <- ack:
			default:
			}
		}
	}
}

// dispatch routes a renderer command to the store. Unknown ops simply do
// not apply.
func (s *Server) dispatch(cmd Command) bool {
	switch cmd.Op {
	case "feed":
		return s.store.Feed()
	case "water":
		return s.store.GiveWater()
	case "play":
		return s.store.Play()
	case "pet":
		return s.store.Pet()
	case "teach":
		return s.store.Teach(cmd.Trick)
	case "sleep":
		return s.store.Sleep()
	case "wake":
		return s.store.WakeUp()
	case "warm":
		return s.store.WarmEgg()
	case "talk":
		return s.store.TalkToEgg()
	case "sing":
		return s.store.SingToEgg()
	case "steady":
		return s.store.SteadyEgg()
	case "remove_particle":
		return s.store.RemoveParticle(cmd.ID)
	case "consume_event":
		_, ok := s.store.ConsumeEvent(cmd.ID)
		return ok
	case "mute":
		return s.store.SetMuted(true)
	case "unmute":
		return s.store.SetMuted(false)
	}
	s.log.Debug("unknown op", "op", cmd.Op)
	return false
}

func (s *Server) broadcast(state creature.State) {
	data, err := json.Marshal(StateMessage{Type: "state", State: state})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Slow consumer: skip this frame rather than block the store.
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()
	_ = c.conn.Close()
}
