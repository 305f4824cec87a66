package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/backdrop/internal/selection"
)

const (
	// writeWait bounds a single write to a client.
	writeWait = time.Second

	// sendBuffer is how many states may queue for a client before it is
	// dropped as too slow.
	sendBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// State is the selection state as seen by HTTP clients.
type State struct {
	selection.Snapshot
	ActiveName string `json:"active_name"`
	Enabled    bool   `json:"enabled"`
}

// StateHub keeps the latest published State and pushes every change to
// connected WebSocket clients. Each client has its own writer goroutine, so
// publishing never waits on the network.
type StateHub struct {
	clients map[*wsClient]bool
	latest  State
	has     bool
	mu      sync.Mutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStateHub creates an empty hub.
func NewStateHub() *StateHub {
	return &StateHub{
		clients: make(map[*wsClient]bool),
	}
}

// PublishState records s and queues it for every client. Clients whose
// queue is full are dropped.
func (h *StateHub) PublishState(s State) {
	msg, err := json.Marshal(s)
	if err != nil {
		log.Printf("encode state: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = s
	h.has = true

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.remove(c)
		}
	}
}

// Latest returns the most recently published state, if any.
func (h *StateHub) Latest() (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.has
}

// Clients returns the number of connected clients.
func (h *StateHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket, sends the current state
// and keeps the client registered until it disconnects.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.has {
		msg, _ := json.Marshal(h.latest)
		c.send <- msg
	}
	h.clients[c] = true
	h.mu.Unlock()

	go c.writeLoop()

	defer func() {
		h.mu.Lock()
		h.remove(c)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// remove unregisters c and stops its writer. h.mu must be held.
func (h *StateHub) remove(c *wsClient) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// writeLoop drains the send queue until it is closed or a write fails,
// then closes the connection, which also ends the read loop.
func (c *wsClient) writeLoop() {
	defer c.conn.Close()

	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
