package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cafein/cafein-backend/utils"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	EventOrdersSnapshot = "orders_snapshot"
	EventStaffNotif     = "staff_notification"
	EventActionResult   = "reservation_result"
	EventError          = "error"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub keeps every live staff connection.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{clients: make(map[string]*Client), log: utils.LoggerOrDefault(log)}
}

type Client struct {
	ID     string
	UserID uint
	Role   string

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       logrus.FieldLogger
}

func NewClient(conn *websocket.Conn, userID uint, role string, log logrus.FieldLogger) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		log:    utils.LoggerOrDefault(log).WithField("client", id),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"client": c.ID, "user_id": c.UserID, "role": c.Role, "clients": n}).
		Info("Live client connected")
}

// Unregister removes the client and closes its connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	h.mu.Unlock()

	c.Close()
	if ok {
		h.log.WithField("client", c.ID).Info("Live client disconnected")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast sends msg to every client. Clients whose queue is full are
// disconnected; they rebuild their view from a fresh snapshot on reconnect.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("Error marshaling broadcast")
		return
	}
	for _, c := range h.snapshot() {
		if !c.enqueue(payload) {
			h.log.WithField("client", c.ID).Warn("Client too slow, disconnecting")
			h.Unregister(c)
		}
	}
}

func (h *Hub) BroadcastStaffNotification(message string) {
	h.Broadcast(Message{Event: EventStaffNotif, Data: message})
}

// DisconnectUser closes every connection of a user and reports how many.
func (h *Hub) DisconnectUser(userID uint) int {
	n := 0
	for _, c := range h.snapshot() {
		if c.UserID == userID {
			h.Unregister(c)
			n++
		}
	}
	return n
}

// Send queues msg for this client only.
func (c *Client) Send(msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("Error marshaling message")
		return false
	}
	return c.enqueue(payload)
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WritePump drains the send queue to the socket and keeps it alive with
// pings. It returns when the client closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump hands every text frame to handle until the connection fails.
func (c *Client) ReadPump(handle func([]byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("Live client read error")
			}
			return
		}
		handle(data)
	}
}

// CloseAll disconnects every client. Used on shutdown, since hijacked
// connections outlive the HTTP server.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot() {
		h.Unregister(c)
	}
}
