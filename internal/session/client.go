package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendQueueSize  = 64
	wsWriteTimeout = 5 * time.Second
)

// Client wraps one live WebSocket connection for a user. The buffered send
// queue decouples business goroutines from slow network writes; done is the
// single close signal both loops watch; once makes Close idempotent.
type Client struct {
	conn      *websocket.Conn
	userID    uint64
	sessionID string
	send      chan []byte
	done      chan struct{}
	once      sync.Once
}

func NewClient(conn *websocket.Conn, userID uint64) *Client {
	return &Client{
		conn:      conn,
		userID:    userID,
		sessionID: uuid.NewString(),
		send:      make(chan []byte, sendQueueSize),
		done:      make(chan struct{}),
	}
}

func (c *Client) UserID() uint64    { return c.userID }
func (c *Client) SessionID() string { return c.sessionID }

// Done exposes the close signal for lifecycle observers.
func (c *Client) Done() <-chan struct{} { return c.done }

// Enqueue offers a payload to the write queue. Returns false when the
// connection is closed or the queue is full; the caller treats both as a
// failed best-effort delivery.
func (c *Client) Enqueue(msg []byte) bool {
	if len(msg) == 0 {
		return true
	}
	cloned := append([]byte(nil), msg...)
	select {
	case <-c.done:
		return false
	case c.send <- cloned:
		return true
	default:
		return false
	}
}

// Run starts the write loop and blocks on the read loop until the connection
// dies, then guarantees cleanup via Close and onClose.
func (c *Client) Run(onClose func()) {
	defer func() {
		c.Close()
		if onClose != nil {
			onClose()
		}
	}()

	go c.writeLoop()
	c.readLoop()
}

// Close is idempotent: signal the loops first, then release the socket.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readLoop drains client frames. The engine has no upstream commands over the
// socket; reading only serves to detect disconnects promptly.
func (c *Client) readLoop() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return
			}
		}
	}
}
