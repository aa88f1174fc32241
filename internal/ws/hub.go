package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard origin is enforced by the reverse proxy
	},
}

// Client represents a connected WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts chat events to
// them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("websocket client registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug("websocket client unregistered")
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type WSEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Hub) BroadcastEvent(eventType string, data interface{}) {
	event := WSEvent{
		Type: eventType,
		Data: data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("websocket event not marshaled", zap.Error(err))
		return
	}
	h.broadcast <- payload
}

// NotifyMessage announces a newly persisted message.
func (h *Hub) NotifyMessage(msg models.Message) {
	h.BroadcastEvent("message.new", msg)
}

// NotifyStatus announces a delivery-status change.
func (h *Hub) NotifyStatus(waMessageID, status string) {
	h.BroadcastEvent("message.status", map[string]interface{}{
		"whatsapp_message_id": waMessageID,
		"status":              status,
	})
}

// NotifyNotification announces a dashboard-bell notification.
func (h *Hub) NotifyNotification(n models.Notification) {
	h.BroadcastEvent("notification.new", n)
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// We don't expect messages FROM the client, just heartbeats or nothing.
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
