package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// ConnState is the lifecycle stage of a realtime connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateJoined
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Client is one authenticated websocket connection.
type Client struct {
	ID       string
	UserID   string
	UserName string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// rooms is guarded by hub.mu
	rooms map[string]struct{}

	mu     sync.Mutex
	state  ConnState
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, userID, userName string, buffer int) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		UserName: userName,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, buffer),
		rooms:    make(map[string]struct{}),
		state:    StateAuthenticated,
	}
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// enqueue reports false when the send queue is full.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles inbound messages until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("realtime read failed", "conn_id", c.ID, "error", err)
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (c *Client) handleMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.hub.logger.Debug("ignoring malformed realtime message", "conn_id", c.ID, "error", err)
		return
	}

	switch msg.Event {
	case EventTaskSubscribe:
		if taskID, ok := decodeTaskID(msg.Data); ok {
			c.hub.Subscribe(c, taskID)
		}
	case EventTaskUnsubscribe:
		if taskID, ok := decodeTaskID(msg.Data); ok {
			c.hub.Unsubscribe(c, taskID)
		}
	case EventTaskTyping:
		var p typingPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil || p.TaskID == "" {
			return
		}
		c.hub.EmitToTask(p.TaskID, UserTyping{
			UserID:   c.UserID,
			UserName: c.UserName,
			IsTyping: p.IsTyping,
		}, c)
	default:
		c.hub.logger.Debug("ignoring unknown realtime event", "conn_id", c.ID, "event", msg.Event)
	}
}

// decodeTaskID accepts either a bare string or {"taskId": "..."}.
func decodeTaskID(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, id != ""
	}
	var obj struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.TaskID, obj.TaskID != ""
	}
	return "", false
}
