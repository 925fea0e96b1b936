package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// feedEvent is one message pushed to dashboard clients
type feedEvent struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// LiveFeed pushes report lifecycle events to connected admin dashboards.
// Slow clients are dropped rather than allowed to back up the broadcast.
type LiveFeed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan feedEvent
}

// NewLiveFeed creates the feed hub
func NewLiveFeed() *LiveFeed {
	return &LiveFeed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the dashboard is served from a different origin than the API
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan feedEvent),
	}
}

// ServeWS upgrades the connection and streams events until the client leaves
func (f *LiveFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("livefeed upgrade failed", "error", err)
		return
	}

	send := make(chan feedEvent, 16)
	f.mu.Lock()
	f.clients[conn] = send
	f.mu.Unlock()
	zap.S().Debugw("livefeed client connected", "remote", conn.RemoteAddr().String())

	go f.writeLoop(conn, send)
	f.readLoop(conn)
}

func (f *LiveFeed) writeLoop(conn *websocket.Conn, send chan feedEvent) {
	for event := range send {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			f.drop(conn)
			return
		}
	}
}

// readLoop discards client messages and notices disconnects
func (f *LiveFeed) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			f.drop(conn)
			return
		}
	}
}

func (f *LiveFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	if send, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		close(send)
	}
	f.mu.Unlock()
	conn.Close()
}

// BroadcastEvent fans an event out to every connected dashboard. Non-blocking;
// clients with a full buffer miss the event.
func (f *LiveFeed) BroadcastEvent(eventType string, data map[string]interface{}) {
	if f == nil {
		return
	}
	event := feedEvent{Type: eventType, Data: data, Timestamp: time.Now().UTC()}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, send := range f.clients {
		select {
		case send <- event:
		default:
		}
	}
}

// ClientCount returns the number of connected dashboards
func (f *LiveFeed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}
