package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/moodplayer/internal/reaction"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// boardMessage is the payload pushed to feed clients.
type boardMessage struct {
	Type      string            `json:"type"`
	Board     reaction.Snapshot `json:"board"`
	Timestamp int64             `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventsHandler pushes board snapshots to WebSocket clients. A client that
// falls behind loses intermediate snapshots; the next one is complete.
type EventsHandler struct {
	board  *reaction.Board
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	cancel  func()
}

// NewEventsHandler creates an EventsHandler subscribed to board.
func NewEventsHandler(board *reaction.Board, logger zerolog.Logger) *EventsHandler {
	h := &EventsHandler{
		board:   board,
		logger:  logger.With().Str("component", "events").Logger(),
		clients: make(map[*client]struct{}),
	}
	h.cancel = board.Subscribe(h.publish)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if msg, err := encode(h.board.Snapshot()); err == nil {
		c.send <- msg
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Int("clients", h.ClientCount()).Msg("client connected")

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	<-done
}

// ClientCount returns the number of connected clients.
func (h *EventsHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the board and disconnects every client.
func (h *EventsHandler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()

	// Outside h.mu: a publish in progress holds the board's subscriber lock.
	h.cancel()
}

func (h *EventsHandler) writeLoop(c *client, done chan<- struct{}) {
	defer close(done)
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

func (h *EventsHandler) publish(snap reaction.Snapshot) {
	msg, err := encode(snap)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode board")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug().Uint64("version", snap.Version).Msg("client behind, snapshot dropped")
		}
	}
}

func encode(snap reaction.Snapshot) ([]byte, error) {
	return json.Marshal(boardMessage{
		Type:      "board",
		Board:     snap,
		Timestamp: time.Now().UnixMilli(),
	})
}
