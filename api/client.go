package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/presence"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Client represents an authenticated connection
type Client struct {
	id     string
	userID int64
	// handshake headers, read by the guard for X-Session-Id
	header http.Header

	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	limiter *rate.Limiter
	cfg     config.WebSocketConfig
	logger  *slogging.ContextLogger

	closeOnce   sync.Once
	connectedAt time.Time
}

func newClient(id string, userID int64, conn *websocket.Conn, header http.Header, cfg config.WebSocketConfig) *Client {
	return &Client{
		id:          id,
		userID:      userID,
		header:      header,
		conn:        conn,
		send:        make(chan []byte, cfg.SendBuffer),
		done:        make(chan struct{}),
		limiter:     rate.NewLimiter(rate.Limit(cfg.EventsPerSecond), cfg.Burst),
		cfg:         cfg,
		logger:      slogging.Get().ForConnection(id, userID),
		connectedAt: time.Now(),
	}
}

// ID returns the connection id
func (c *Client) ID() string {
	return c.id
}

// UserID returns the authenticated user id
func (c *Client) UserID() int64 {
	return c.userID
}

// Identity returns the presence identity of the connection
func (c *Client) Identity() presence.Identity {
	return presence.Identity{ConnectionID: c.id, UserID: c.userID}
}

// Header returns a handshake header value
func (c *Client) Header(name string) string {
	if c.header == nil {
		return ""
	}
	return c.header.Get(name)
}

// Emit sends an event to this connection only
func (c *Client) Emit(event string, payload any) {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		c.logger.Error("Failed to marshal %s: %v", event, err)
		return
	}
	c.enqueue(msg)
}

// enqueue queues a frame; frames for closed connections are dropped and a
// connection whose buffer is full is closed
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("Send buffer full, closing slow connection")
		c.Close()
		return false
	}
}

// Close asks the write pump to send a close frame and drop the connection;
// the read pump then runs the disconnect path
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump reads frames and dispatches them serially, preserving per-connection order
func (c *Client) readPump(g *Gateway) {
	defer g.disconnect(c)

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error: %v", err)
			}
			return
		}

		if !c.limiter.Allow() {
			c.Emit(EventError, errorPayload{Message: "Too many events, slow down"})
			continue
		}

		g.router.Dispatch(c, message)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
