package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tableside/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

// Client is one connected console. A client subscribes for a single
// restaurant and role; membership is set at connect time and never
// changes.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	restaurantID uuid.UUID
	role         string
}

type frame struct {
	restaurantID uuid.UUID
	role         string
	payload      []byte
}

// Hub routes notification frames to connected consoles by tenant and
// role. All membership mutation happens on the run loop goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan frame
	logger     *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan frame, 256),
		logger:     log,
	}
}

// Run processes membership and broadcast traffic until the channel-feeding
// goroutines stop. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("console_connected", "Console connected", "", map[string]interface{}{
				"restaurant_id": client.restaurantID,
				"role":          client.role,
				"consoles":      len(h.clients),
			})
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case f := <-h.broadcast:
			for client := range h.clients {
				if client.restaurantID != f.restaurantID || client.role != f.role {
					continue
				}
				select {
				case client.send <- f.payload:
				default:
					// Slow consumer; drop it rather than block the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast queues a frame for delivery to every console of the tenant
// subscribed under the role.
func (h *Hub) Broadcast(restaurantID uuid.UUID, role string, payload []byte) {
	h.broadcast <- frame{restaurantID: restaurantID, role: role, payload: payload}
}

// Register attaches a connection to the hub and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn, restaurantID uuid.UUID, role string) {
	client := &Client{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		restaurantID: restaurantID,
		role:         role,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames. Consoles never send application data;
// the read loop exists to process control frames and detect closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued frames and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
