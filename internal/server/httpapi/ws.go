package httpapi

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"eventcal-backend/internal/common"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS middleware on the rest of
	// the API; the socket itself is guarded by the token check below.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket connection to the registry's Conn interface.
// Pushes are queued on a buffered channel drained by a single writer
// goroutine; gorilla allows only one concurrent writer, and the queue keeps
// a stalled client from ever blocking the dispatcher.
type wsConn struct {
	wc   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSConn(wc *websocket.Conn) *wsConn {
	c := &wsConn{
		wc:   wc,
		send: make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
	go c.writeAll()
	return c
}

func (c *wsConn) writeAll() {
	for {
		select {
		case payload := <-c.send:
			if err := c.wc.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := c.wc.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Send queues the payload without blocking. A full queue means the client
// has stopped draining its socket; reporting it dead makes the registry drop
// the connection instead of waiting on it.
func (c *wsConn) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errors.New("connection closed")
	default:
		return errors.New("send queue full")
	}
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.wc.Close()
}

// handleNotificationsWS upgrades the connection and registers it for the
// authenticated user. The token travels in the "token" query parameter. The
// read loop exists only to detect the client going away, so disconnects
// unregister promptly instead of waiting for a failed push.
func (s *Server) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, common.ErrUnauthorized)
		return
	}
	user, err := s.auth.CurrentUser(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	wc, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		return
	}

	conn := newWSConn(wc)
	s.registry.Register(user.ID, conn)
	s.logger.Debug(r.Context(), "websocket connected", "user_id", user.ID)

	defer func() {
		s.registry.Unregister(user.ID, conn)
		_ = conn.Close()
		s.logger.Debug(r.Context(), "websocket disconnected", "user_id", user.ID)
	}()

	for {
		if _, _, err := wc.ReadMessage(); err != nil {
			return
		}
	}
}
