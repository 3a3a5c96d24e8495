package httpapi

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"eventcal-backend/internal/server/config"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/notify"
	"eventcal-backend/internal/server/services"
)

func newWSFixture(t *testing.T) (*httptest.Server, *notify.Registry) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	registry := notify.NewRegistry(testLogger())
	auth := &fakeAuth{
		user: &models.User{ID: "u1", Username: "alice", IsActive: true, Role: models.UserRoleUser},
		pair: &services.TokenPair{AccessToken: "valid-token", RefreshToken: "r"},
	}
	srv := NewServer(auth, &fakeEvents{}, &fakePerms{}, &fakeHistory{}, registry, cfg, testLogger())

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, registry
}

func wsURL(ts *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws/notifications"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func TestWS_ReceivesDispatchedNotification(t *testing.T) {
	ts, registry := newWSFixture(t)

	wc, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "valid-token"), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer wc.Close()

	// Registration happens in the handler goroutine after the upgrade.
	deadline := time.Now().Add(2 * time.Second)
	for registry.ConnCount("u1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	registry.Dispatch(context.Background(), []string{"u1"}, []byte(`{"type":"permission_granted"}`))

	_ = wc.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := wc.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(payload) != `{"type":"permission_granted"}` {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	ts, registry := newWSFixture(t)

	wc, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "valid-token"), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for registry.ConnCount("u1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	wc.Close()

	deadline = time.Now().Add(2 * time.Second)
	for registry.ConnCount("u1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never unregistered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWSConn_SendNeverBlocks(t *testing.T) {
	// No writer goroutine drains the queue here, standing in for a client
	// that stopped reading its socket.
	c := &wsConn{send: make(chan []byte, 1), done: make(chan struct{})}

	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("push into free queue should succeed: %v", err)
	}
	if err := c.Send([]byte("b")); err == nil {
		t.Fatal("push into full queue must report the connection dead, not wait")
	}
}

func TestWS_RejectsMissingToken(t *testing.T) {
	ts, _ := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, ""), nil)
	if err == nil {
		t.Fatal("dial should fail without a token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("want handshake 401, got %+v", resp)
	}
}

func TestWS_RejectsBadToken(t *testing.T) {
	ts, _ := newWSFixture(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "bogus"), nil)
	if err == nil {
		t.Fatal("dial should fail with a bad token")
	}
	if resp == nil || resp.StatusCode != 401 {
		t.Fatalf("want handshake 401, got %+v", resp)
	}
}
