package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ws_smoke checks a running server end to end: it signs up a throwaway user,
// opens the realtime channel, creates a task over HTTP and waits for the
// matching task:created event.
func main() {
	base := flag.String("base", "http://127.0.0.1:5000", "server base URL")
	flag.Parse()

	email := "smoke-" + uuid.NewString()[:8] + "@example.com"
	password := "smoke-secret"

	if code, body := post(*base+"/api/auth/register", "", map[string]string{
		"name": "Smoke", "email": email, "password": password,
	}); code != http.StatusCreated {
		log.Fatalf("register: %d %s", code, body)
	}

	code, body := post(*base+"/api/auth/login", "", map[string]string{"email": email, "password": password})
	if code != http.StatusOK {
		log.Fatalf("login: %d %s", code, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		log.Fatalf("decode login: %v", err)
	}

	// use 127.0.0.1 in -base to prefer IPv4 (avoid resolving to [::1])
	wsURL := "ws" + strings.TrimPrefix(*base, "http") + "/ws?token=" + login.Token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(conn, "ready", "")

	code, body = post(*base+"/api/tasks", login.Token, map[string]string{"title": "smoke task", "priority": "HIGH"})
	if code != http.StatusCreated {
		log.Fatalf("create task: %d %s", code, body)
	}
	var task struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &task)

	waitFor(conn, "task:created", task.ID)

	req, _ := http.NewRequest(http.MethodDelete, *base+"/api/tasks/"+task.ID, nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	if res, err := http.DefaultClient.Do(req); err == nil {
		res.Body.Close()
	}
	waitFor(conn, "task:deleted", task.ID)

	log.Println("smoke test finished")
}

func post(url, token string, body any) (int, []byte) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(res.Body)
	return res.StatusCode, buf.Bytes()
}

// waitFor reads frames until one of msgType arrives (for taskID, if set).
func waitFor(conn *websocket.Conn, msgType, taskID string) {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("waiting for %s: %v", msgType, err)
		}
		var env struct {
			Type    string `json:"type"`
			Payload struct {
				ID string `json:"id"`
			} `json:"payload"`
		}
		if err := json.Unmarshal(msg, &env); err != nil {
			continue
		}
		if env.Type == msgType && (taskID == "" || env.Payload.ID == taskID) {
			fmt.Printf("got %s\n", msg)
			return
		}
	}
	log.Fatalf("timed out waiting for %s", msgType)
}
