package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Window over which generic update events are batched before the client
	// is told to refetch.
	refreshWindow = 250 * time.Millisecond
)

// Client is one connected session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	userID    uint
	profileID uint
	send      chan []byte
	refresh   *Debouncer
	closeOnce sync.Once
	logger    *zap.Logger
}

// NewClient wraps an upgraded connection into a session and registers it
func NewClient(hub *Hub, conn *websocket.Conn, userID, profileID uint, logger *zap.Logger) *Client {
	c := &Client{
		hub:       hub,
		conn:      conn,
		userID:    userID,
		profileID: profileID,
		send:      make(chan []byte, 16),
		logger:    logger,
	}
	c.refresh = NewDebouncer(refreshWindow, func() {
		c.sendEvent(Event{Event: EventRefresh})
	})
	hub.register <- c
	return c
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.refresh.Stop()
		close(c.send)
	})
}

func (c *Client) sendEvent(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	defer func() {
		// Losing the race with close is fine, the event is fire-and-forget.
		recover()
	}()
	select {
	case c.send <- data:
	default:
	}
}

// ReadPump consumes inbound events until the connection drops. The only
// inbound event acted on is profile_activated, which re-keys the session.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("socket read failed", zap.Error(err))
			}
			return
		}
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			c.logger.Debug("ignoring malformed socket event", zap.Error(err))
			continue
		}
		if event.Event == EventProfileActivated && event.ProfileID != 0 {
			c.hub.activate <- activation{client: c, profileID: event.ProfileID}
		}
	}
}

// WritePump flushes outbound events and keeps the connection alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
