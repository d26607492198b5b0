package ws

import (
	"encoding/json"
	"time"

	"task_manager/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendQueueSize  = 64
)

// Client is one websocket connection. It is owned by its pumps and removed
// from the hub when the read side ends.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	hub *Hub
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendQueueSize),
		hub:    hub,
	}
}

// Run registers the client, greets it and pumps until the connection closes.
func (c *Client) Run() {
	c.hub.Register(c)
	go c.writePump()

	if msg, err := encode(MsgReady, ReadyPayload{UserID: c.UserID}); err == nil {
		c.hub.sendTo(c, msg)
	}

	c.readPump()
}

//read
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		var in InboundMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			if msg, err := encode(MsgError, ErrorPayload{Message: "invalid message"}); err == nil {
				c.hub.sendTo(c, msg)
			}
			continue
		}
		// the channel is server push only; ping is the one request it answers
		if in.Type == MsgPing {
			if msg, err := encode(MsgPong, nil); err == nil {
				c.hub.sendTo(c, msg)
			}
		}
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
