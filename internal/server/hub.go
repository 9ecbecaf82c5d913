package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

// Hub forwards bus events to every connected websocket client as JSON
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]bool
	subIDs  []events.SubscriptionID
	bus     events.EventBus
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// NewHub subscribes to every event type on bus
func NewHub(bus events.EventBus, logger *logging.Logger) *Hub {
	h := &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
		bus:     bus,
	}
	for _, t := range events.AllEventTypes {
		h.subIDs = append(h.subIDs, bus.Subscribe(t, h.Broadcast))
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues e for every client. Slow clients are dropped.
func (h *Hub) Broadcast(e events.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("Failed to encode event", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Dropping slow websocket client")
			delete(h.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the connection and streams events until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Error upgrading websocket connection", err)
		return
	}
	h.logger.InfoWithContext("Websocket connection established", logging.Fields{"remote": r.RemoteAddr})

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and unregisters on disconnect
func (h *Hub) readPump(c *client) {
	defer func() {
		h.mu.Lock()
		if h.clients[c] {
			delete(h.clients, c)
			c.close()
		}
		h.mu.Unlock()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Error("Error writing message to websocket", err)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Close unsubscribes from the bus and disconnects every client
func (h *Hub) Close() {
	for _, id := range h.subIDs {
		h.bus.Unsubscribe(id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
