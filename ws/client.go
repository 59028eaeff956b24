package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"platform_backend/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var (
	ErrClientClosed   = errors.New("websocket client closed")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Envelope - кадр, который уходит клиенту: {"event": "...", "data": ...}
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// IncomingMessage - кадр от клиента
type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ActionHandler выполняет действия, которые клиент присылает через сокет
type ActionHandler interface {
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

type Client struct {
	id       string
	userID   string
	conn     *websocket.Conn
	send     chan Envelope
	done     chan struct{}
	once     sync.Once
	registry *Registry
	actions  ActionHandler
}

func newClient(userID string, conn *websocket.Conn, registry *Registry, actions ActionHandler) *Client {
	return &Client{
		id:       uuid.NewString(),
		userID:   userID,
		conn:     conn,
		send:     make(chan Envelope, sendBuffer),
		done:     make(chan struct{}),
		registry: registry,
		actions:  actions,
	}
}

func (c *Client) SocketID() string { return c.id }

// Emit не блокируется: медленный клиент теряет сообщения, а не тормозит отправителя
func (c *Client) Emit(event string, data any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- Envelope{Event: event, Data: data}:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.registry.Remove(c.id)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msgBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithComponent("ws").Warn("websocket read error", "socket_id", c.id, "error", err)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			logger.WithComponent("ws").Debug("failed to parse client frame", "socket_id", c.id, "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.WithComponent("ws").Warn("websocket write error", "socket_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {
	case "ping":
		_ = c.Emit("pong", nil)

	case "mark_read":
		var payload struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ID == "" {
			_ = c.Emit("error", map[string]string{"message": "invalid mark_read payload"})
			return
		}
		if c.actions == nil {
			return
		}
		ctx := logger.WithUserID(context.Background(), c.userID)
		if err := c.actions.MarkAsRead(ctx, c.userID, payload.ID); err != nil {
			logger.CtxWarn(ctx, "mark_read via websocket failed", "notification_id", payload.ID, "error", err)
			_ = c.Emit("error", map[string]string{"message": "notification not found"})
			return
		}
		_ = c.Emit("notification_read", map[string]string{"id": payload.ID})

	default:
		logger.WithComponent("ws").Debug("unhandled action", "action", msg.Action)
	}
}
