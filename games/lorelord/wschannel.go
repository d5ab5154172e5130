package lorelord

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 20
	sendBuffer     = 32
)

// WSChannel is a Channel over a WebSocket connection. Sends are queued for a
// dedicated writer goroutine, so a stalled peer fills its buffer and starts
// failing instead of blocking the sender.
type WSChannel struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewWSChannel wraps conn and starts its writer.
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	c := &WSChannel{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go c.writePump()

	return c
}

func (c *WSChannel) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.send <- b:
		return nil
	default:
		return ErrChannelFull
	}
}

// Close stops the writer after it flushes what is queued. The connection
// itself is closed by the writer.
func (c *WSChannel) Close() error {
	c.markClosed()

	return nil
}

func (c *WSChannel) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump delivers every inbound frame to handle until the connection fails
// or closes. It blocks; run it on the goroutine that owns the connection.
func (c *WSChannel) ReadPump(handle func([]byte)) error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.markClosed()

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		handle(msg)
	}
}

func (c *WSChannel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.markClosed()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markClosed()
				return
			}
		}
	}
}
