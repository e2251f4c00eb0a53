package handlers

import (
	"github.com/anjiri1684/stuplan/middleware"
	"github.com/anjiri1684/stuplan/services"
	"github.com/anjiri1684/stuplan/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type streamMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// StreamHandler pushes profile state snapshots over a websocket.
type StreamHandler struct {
	sessions  *services.SessionRegistry
	hub       *websocket.Hub
	jwtSecret string
	log       *zap.Logger
}

func NewStreamHandler(sessions *services.SessionRegistry, hub *websocket.Hub, jwtSecret string, log *zap.Logger) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamHandler{sessions: sessions, hub: hub, jwtSecret: jwtSecret, log: log}
}

// Upgrade rejects plain HTTP requests to the stream endpoint.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func (h *StreamHandler) Serve(c *websocketcontrib.Conn) {
	var auth streamMessage
	if err := c.ReadJSON(&auth); err != nil || auth.Type != "auth" {
		h.log.Info("websocket auth failed: missing auth message", zap.Error(err))
		_ = c.WriteJSON(fiber.Map{"type": "error", "message": "Invalid or missing auth message"})
		c.Close()
		return
	}

	userID, err := middleware.ParseToken(h.jwtSecret, auth.Token)
	if err != nil {
		h.log.Info("websocket auth failed: invalid token", zap.Error(err))
		_ = c.WriteJSON(fiber.Map{"type": "error", "message": "Invalid token"})
		c.Close()
		return
	}

	// The current snapshot goes out before registration; afterwards only the
	// hub writes to this connection.
	if err := c.WriteJSON(websocket.StateMessage{Type: "state", State: h.sessions.Get(userID).State()}); err != nil {
		c.Close()
		return
	}

	client := &websocket.Client{UserID: userID, Conn: c}
	h.hub.Register(client)
	defer func() {
		h.hub.Unregister(client)
		c.Close()
	}()

	for {
		var msg streamMessage
		if err := c.ReadJSON(&msg); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.log.Debug("websocket closed", zap.String("user_id", userID))
			} else {
				h.log.Debug("websocket read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case "clear_status":
			h.sessions.Get(userID).ClearStatus()
		default:
			h.log.Debug("ignoring websocket message", zap.String("user_id", userID), zap.String("type", msg.Type))
		}
	}
}
