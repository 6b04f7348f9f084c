package session_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlink/discovery/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// dial spins up a ws endpoint that registers the connection for userID and
// returns the client side of the socket.
func dial(t *testing.T, hub *session.Hub, userID uint64) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := session.NewClient(conn, userID)
		if !hub.Register(client) {
			client.Close()
			return
		}
		go client.Run(func() { hub.Unregister(client) })
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSendToUser(t *testing.T) {
	hub := session.NewHub()
	conn := dial(t, hub, 42)

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	sent := hub.SendToUser(42, []byte(`{"type":"LIKE"}`))
	assert.Equal(t, 1, sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LIKE"}`, string(msg))

	// nobody home for other users
	assert.Equal(t, 0, hub.SendToUser(99, []byte("x")))
}

func TestMultipleSessionsPerUser(t *testing.T) {
	hub := session.NewHub()
	c1 := dial(t, hub, 42)
	c2 := dial(t, hub, 42)

	require.Eventually(t, func() bool { return hub.Count() == 2 },
		2*time.Second, 10*time.Millisecond)

	sent := hub.SendToUser(42, []byte("hello"))
	assert.Equal(t, 2, sent)

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, "hello", string(msg))
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := session.NewHub()
	conn := dial(t, hub, 42)

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestShutdownRejectsNewSessions(t *testing.T) {
	hub := session.NewHub()
	_ = dial(t, hub, 42)

	require.Eventually(t, func() bool { return hub.Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Shutdown()
	assert.Equal(t, 0, hub.Count())

	// registrations after shutdown are refused at the handler, so a fresh
	// dial never shows up in the hub
	_ = dial(t, hub, 43)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.Count())
}
