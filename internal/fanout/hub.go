// Package fanout hosts the browser-facing WebSocket server that groups
// subscribers into per-instance rooms and broadcasts envelopes to them.
// Room membership lives only here; the publisher reads sizes and emits,
// it never mutates membership.
package fanout

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/common/middleware"
	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/metrics"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

const (
	// outQueueSize bounds each client's outbound queue. Clients that
	// cannot keep up are disconnected rather than buffered without bound.
	outQueueSize = 64

	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = 30 * time.Second
	maxFrameSize = 4 << 10
)

type client struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	room string
	gone bool
}

// joinRequest is the only client-to-server message.
type joinRequest struct {
	Action   string `json:"action"`
	Instance string `json:"instance"`
}

// joinAck acknowledges a join request.
type joinAck struct {
	OK    bool   `json:"ok"`
	Room  string `json:"room,omitempty"`
	Error string `json:"error,omitempty"`
}

// frame is a server-to-client event message.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub tracks room membership and broadcasts frames to members.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	clients  int
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// NewHub constructs a Hub whose WebSocket handshake enforces the
// configured origin allow-list.
func NewHub(cfg config.FanoutConfig, log *logging.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		log:   log.With(logging.Stage("fanout")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(r.Header.Get("Origin"), cfg.AllowedOrigins)
			},
		},
	}
}

// RoomSize returns the number of active subscribers in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients
}

// Emit broadcasts an event frame to every member of room. Slow clients
// are dropped instead of blocking the broadcast.
func (h *Hub) Emit(room, event string, payload any) error {
	msg, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.out <- msg:
		default:
			h.log.Warn("dropping slow fanout client", logging.Room(room))
			h.remove(c)
			c.conn.Close()
		}
	}
	return nil
}

// ServeHTTP upgrades the connection and runs the subscription protocol:
// the client sends {"action":"join","instance":...} and receives an ack
// of {ok:true,room:...} or {ok:false,error:...}.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logging.Err(err))
		return
	}

	c := &client{
		conn: conn,
		out:  make(chan []byte, outQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients++
	metrics.FanoutClients.Set(float64(h.clients))
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req joinRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Action != "join" {
			h.send(c, joinAck{OK: false, Error: "unsupported request"})
			continue
		}
		if req.Instance == "" {
			h.send(c, joinAck{OK: false, Error: "instance is required"})
			continue
		}

		room := model.RoomKey(req.Instance)
		h.join(c, room)
		h.send(c, joinAck{OK: true, Room: room})
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) send(c *client, ack joinAck) {
	msg, err := json.Marshal(ack)
	if err != nil {
		return
	}
	select {
	case c.out <- msg:
	default:
	}
}

// join moves c into room, leaving any previous room first. A client
// subscribes to exactly one instance at a time.
func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room != "" {
		h.detach(c)
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.room = room
}

// remove takes c out of its room and the client count. Idempotent:
// both the read loop and a slow-client drop may race to call it.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.gone {
		return
	}
	c.gone = true
	h.detach(c)
	h.clients--
	metrics.FanoutClients.Set(float64(h.clients))
	close(c.done)
}

// detach removes c from its current room. Caller holds h.mu.
func (h *Hub) detach(c *client) {
	if c.room == "" {
		return
	}
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}
