// internal/ws/hub.go
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
	maxMessageSize  = 4 * 1024
)

// Event is the wire shape pushed to open console tabs.
type Event struct {
	Event string `json:"event"`
}

// EventSessionEnded tells every open tab of a session to bounce to the login
// page. Published on logout and on a 401-forced teardown.
const EventSessionEnded = "session_ended"

// tab is one open console connection. All writes go through its mutex: the
// ping pump and the event push can fire concurrently, and the connection
// supports only one writer at a time.
type tab struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *tab) write(messageType int, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(messageType, payload)
}

// Hub tracks the open websocket connections per browser session and pushes
// session lifecycle events to them. Tabs only listen; inbound frames are
// drained and dropped.
type Hub struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	tabs     map[string]map[*tab]bool
	logger   *zap.Logger

	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway serves the console itself; same-origin only.
			CheckOrigin: func(r *http.Request) bool {
				return r.Header.Get("Origin") == "" || r.Host == hostOf(r.Header.Get("Origin"))
			},
		},
		tabs:       make(map[string]map[*tab]bool),
		logger:     logger,
		pongWait:   defaultPongWait,
		pingPeriod: defaultPongWait * 9 / 10,
	}
}

// Handle upgrades the request and parks the connection until the tab closes
// or the session ends. A ping pump keeps idle tabs inside the pong deadline,
// so a tab that stays quiet for minutes still gets the session event.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	t := &tab{conn: conn}
	h.register(sessionID, t)
	defer h.unregister(sessionID, t)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go h.ping(t, stop)

	// Drain until the peer goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) ping(t *tab, stop <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := t.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SessionEnded pushes the terminal event to every tab of the session and
// closes the connections.
func (h *Hub) SessionEnded(sessionID string) {
	h.mu.Lock()
	tabs := h.tabs[sessionID]
	delete(h.tabs, sessionID)
	h.mu.Unlock()

	payload, err := json.Marshal(Event{Event: EventSessionEnded})
	if err != nil {
		h.logger.Error("failed to encode session event", zap.Error(err))
		return
	}

	for t := range tabs {
		if err := t.write(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("failed to push session event",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		t.conn.Close()
	}
}

func (h *Hub) register(sessionID string, t *tab) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tabs[sessionID] == nil {
		h.tabs[sessionID] = make(map[*tab]bool)
	}
	h.tabs[sessionID][t] = true
}

func (h *Hub) unregister(sessionID string, t *tab) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tabs, ok := h.tabs[sessionID]; ok {
		delete(tabs, t)
		if len(tabs) == 0 {
			delete(h.tabs, sessionID)
		}
	}
	t.conn.Close()
}

func hostOf(origin string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if len(origin) > len(prefix) && origin[:len(prefix)] == prefix {
			return origin[len(prefix):]
		}
	}
	return origin
}
