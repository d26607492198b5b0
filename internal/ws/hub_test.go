package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"task_manager/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type stubTokens map[string]string

func (s stubTokens) Parse(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("invalid")
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", HandleWS(hub, stubTokens{"tok-a": "user-a", "tok-b": "user-b"}, []string{"http://localhost:5173"}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return env
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandshakeRequiresValidToken(t *testing.T) {
	srv := newTestServer(t, NewHub())
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	for _, url := range []string{base, base + "?token=wrong"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Fatalf("%s: expected handshake failure", url)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %v", url, resp)
		}
	}
}

func TestHandshakeRejectsForeignOrigin(t *testing.T) {
	srv := newTestServer(t, NewHub())
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=tok-a"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}
}

func TestPublishReachesOnlyRecipients(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)

	a := dial(t, srv, "tok-a")
	b := dial(t, srv, "tok-b")

	if env := readEnvelope(t, a); env["type"] != MsgReady {
		t.Fatalf("expected ready, got %v", env)
	}
	if env := readEnvelope(t, b); env["type"] != MsgReady {
		t.Fatalf("expected ready, got %v", env)
	}
	waitForClients(t, hub, 2)

	task := &domain.Task{ID: "t1", Title: "hello", CreatedByID: "user-a", AssignedToID: "user-a"}
	hub.Publish(domain.TaskEventFor(domain.EventTaskCreated, task, domain.NewTaskView(task, time.Now())))

	env := readEnvelope(t, a)
	if env["type"] != domain.EventTaskCreated {
		t.Fatalf("expected task:created, got %v", env)
	}
	payload, _ := env["payload"].(map[string]any)
	if payload["id"] != "t1" || payload["isOverdue"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}

	// b must not see a's task; a ping round trip proves nothing else is queued
	if err := b.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if env := readEnvelope(t, b); env["type"] != MsgPong {
		t.Fatalf("user-b received %v, expected only pong", env)
	}
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub)

	conn := dial(t, srv, "tok-a")
	readEnvelope(t, conn)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)

	// publishing to a user with no connections is a no-op
	hub.Publish(domain.TaskEvent{Type: domain.EventTaskDeleted, Payload: domain.DeletedPayload{ID: "x"}, UserIDs: []string{"user-a"}})
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: "u", Send: make(chan []byte, 1), hub: hub}
	hub.Register(c)
	defer hub.Unregister(c)

	ev := domain.TaskEvent{Type: domain.EventTaskDeleted, Payload: domain.DeletedPayload{ID: "x"}, UserIDs: []string{"u"}}

	done := make(chan struct{})
	go func() {
		hub.Publish(ev)
		hub.Publish(ev)
		hub.Publish(ev)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	if len(c.Send) != 1 {
		t.Fatalf("expected exactly one queued message, got %d", len(c.Send))
	}
}

func TestUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub()
	c := &Client{UserID: "u", Send: make(chan []byte, 1), hub: hub}
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	if hub.sendTo(c, []byte("x")) {
		t.Fatal("sendTo must refuse unregistered clients")
	}
}
