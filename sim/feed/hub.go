// Package feed streams engine snapshots to WebSocket clients. Clients are
// read-only observers: nothing they send can mutate engine state.
package feed

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sugawarayuuta/sonnet"

	"github.com/latency-sim/latency-sim/sim"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming frames; clients only send control frames.
	maxMessageSize = 512

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope every frame carries.
type Message struct {
	Type    string `json:"type"` // "snapshot" or "status"
	Payload any    `json:"payload"`
}

// SnapshotPayload is the body of a "snapshot" message.
type SnapshotPayload struct {
	Latencies []sim.LatencySample `json:"latencies"`
	Alerts    []sim.AlertEvent    `json:"alerts"`
	Metrics   sim.Metrics         `json:"metrics"`
	Paused    bool                `json:"paused"`
}

// StatusPayload is sent once when a client connects.
type StatusPayload struct {
	Servers       int   `json:"servers"`
	Ticks         int64 `json:"ticks"`
	Paused        bool  `json:"paused"`
	UptimeSeconds int64 `json:"uptimeSeconds"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans engine snapshots out to connected WebSocket clients.
type Hub struct {
	engine    *sim.Engine
	startedAt time.Time
	log       *logrus.Entry

	mu      sync.RWMutex
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

// NewHub creates a hub bound to engine. Call Attach to subscribe it and Run to serve.
func NewHub(engine *sim.Engine) *Hub {
	return &Hub{
		engine:     engine,
		startedAt:  time.Now(),
		log:        logrus.WithField("component", "feed"),
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Attach subscribes the hub to the engine's snapshot stream.
func (h *Hub) Attach() {
	h.engine.Subscribe(h.Publish)
}

// Publish encodes snap as a "snapshot" message and queues it for broadcast.
// Drops the frame if the broadcast queue is full so the engine is never blocked.
func (h *Hub) Publish(snap sim.Snapshot) {
	msg, err := Encode(Message{Type: "snapshot", Payload: SnapshotPayload{
		Latencies: snap,
		Alerts:    h.engine.Alerts().Alerts(),
		Metrics:   sim.SummarizeSnapshot(snap, h.engine.Servers().Len()),
		Paused:    h.engine.Paused(),
	}})
	if err != nil {
		h.log.WithError(err).Error("encode snapshot")
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full; dropping snapshot")
	}
}

// Encode marshals a message envelope.
func Encode(m Message) ([]byte, error) {
	return sonnet.Marshal(m)
}

// Run handles registration and broadcasting until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.WithField("total_clients", h.ClientCount()).Info("client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.WithField("total_clients", h.ClientCount()).Info("client disconnected")

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Error("upgrade failed")
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}

	// Queue the status frame before the hub can see (and close) c.send.
	c.sendInitialStatus()
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) sendInitialStatus() {
	msg, err := Encode(Message{Type: "status", Payload: StatusPayload{
		Servers:       c.hub.engine.Servers().Len(),
		Ticks:         c.hub.engine.Ticks(),
		Paused:        c.hub.engine.Paused(),
		UptimeSeconds: int64(time.Since(c.hub.startedAt).Seconds()),
	}})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// readPump drains control frames so pongs are processed; payloads are ignored.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithError(err).Warn("unexpected close")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
