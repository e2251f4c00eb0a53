package websocket

import (
	"context"

	"github.com/anjiri1684/stuplan/services"
	"go.uber.org/zap"
)

// Conn is the write side of a client connection.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type Client struct {
	UserID string
	Conn   Conn
}

// StateMessage is the frame pushed to clients on every profile transition.
type StateMessage struct {
	Type  string                `json:"type"`
	State services.ProfileState `json:"state"`
}

type broadcast struct {
	userID string
	state  services.ProfileState
}

// Hub fans profile snapshots out to every connection of a user. Only the
// hub goroutine writes to registered connections.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	clients    map[string]map[*Client]struct{}
	done       chan struct{}
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 64),
		clients:    make(map[string]map[*Client]struct{}),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Register adds a connection. After Run has returned the connection is
// closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Conn.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues a snapshot for the user's connections. It has the
// services.PublishFunc signature and drops the snapshot once Run has returned.
func (h *Hub) Publish(userID string, state services.ProfileState) {
	select {
	case h.broadcast <- broadcast{userID: userID, state: state}:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for client := range conns {
					client.Conn.Close()
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			return
		case client := <-h.register:
			conns, ok := h.clients[client.UserID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[client.UserID] = conns
			}
			conns[client] = struct{}{}
			h.log.Debug("client registered", zap.String("user_id", client.UserID), zap.Int("connections", len(conns)))
		case client := <-h.unregister:
			h.remove(client)
			h.log.Debug("client unregistered", zap.String("user_id", client.UserID))
		case msg := <-h.broadcast:
			frame := StateMessage{Type: "state", State: msg.state}
			for client := range h.clients[msg.userID] {
				if err := client.Conn.WriteJSON(frame); err != nil {
					h.log.Warn("error sending state to client", zap.String("user_id", msg.userID), zap.Error(err))
					client.Conn.Close()
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
}
