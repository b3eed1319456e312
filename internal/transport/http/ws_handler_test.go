package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
	"chat-trivia-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketQuizFlow(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	host := dial(t, server, "chan-1", "u1")
	defer host.Close()
	guest := dial(t, server, "chan-1", "u2")
	defer guest.Close()

	readNext(host, t, "joined")
	readNext(guest, t, "joined")

	start := map[string]any{
		"type":    "start",
		"payload": map[string]any{"topic": "math", "count": 1, "policy": "open"},
	}
	if err := host.WriteJSON(start); err != nil {
		t.Fatalf("write start: %v", err)
	}

	_, intro := readNext(guest, t, "announce")
	if !strings.Contains(intro["text"].(string), "math") {
		t.Fatalf("unexpected intro %v", intro)
	}
	_, question := readNext(guest, t, "announce")
	if !strings.Contains(question["text"].(string), "Question 1/1") {
		t.Fatalf("unexpected question %v", question)
	}
	readNext(host, t, "announce")
	readNext(host, t, "announce")

	if err := guest.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"answer": "four"}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	readNext(guest, t, "error")

	if err := guest.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"answer": "b"}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, correct := readNext(host, t, "announce")
	if !strings.Contains(correct["text"].(string), "<@u2>") {
		t.Fatalf("expected guest credited, got %v", correct)
	}
	_, final := readNext(host, t, "announce")
	if !strings.Contains(final["text"].(string), "Quiz over!") {
		t.Fatalf("expected final standings, got %v", final)
	}
}

func TestWebSocketAcknowledgesOnlyRequester(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	host := dial(t, server, "chan-1", "u1")
	defer host.Close()
	readNext(host, t, "joined")

	if err := host.WriteJSON(map[string]any{"type": "start", "payload": map[string]any{"topic": "unknown", "count": 1}}); err != nil {
		t.Fatalf("write start: %v", err)
	}
	_, ack := readNext(host, t, "ack")
	if !strings.Contains(ack["text"].(string), "Could not generate") {
		t.Fatalf("unexpected ack %v", ack)
	}

	if err := host.WriteJSON(map[string]any{"type": "stop"}); err != nil {
		t.Fatalf("write stop: %v", err)
	}
	readNext(host, t, "error")
}

func TestWebSocketStandings(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "chan-1", "u1")
	defer conn.Close()
	readNext(conn, t, "joined")

	if err := conn.WriteJSON(map[string]any{"type": "standings"}); err != nil {
		t.Fatalf("write standings: %v", err)
	}
	_, payload := readNext(conn, t, "error")
	if !strings.Contains(payload["message"].(string), "not kept") {
		t.Fatalf("unexpected error %v", payload)
	}
}

func TestHubCountsClientsPerChannel(t *testing.T) {
	hub := NewHub()
	a := &client{channelID: "chan-1", userID: "u1", send: make(chan outboundMessage[any], 4)}
	b := &client{channelID: "chan-1", userID: "u2", send: make(chan outboundMessage[any], 4)}
	hub.register(a, outboundMessage[any]{Type: "joined"})
	hub.register(b, outboundMessage[any]{Type: "joined"})

	if got := hub.Clients("chan-1"); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	hub.unregister(a)
	if got := hub.Clients("chan-1"); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}
	if got := hub.Clients("chan-2"); got != 0 {
		t.Fatalf("expected empty channel, got %d", got)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?channelId=chan-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	hub := NewHub()
	bank := memory.NewQuestionBank(memory.NewStaticBankLoader(map[string][]domain.Question{
		"math": {{
			Prompt:  "What is 2 + 2?",
			Answer:  "4",
			Options: map[string]string{"A": "3", "B": "4", "C": "5", "D": "22"},
			Correct: "B",
		}},
	}), time.Minute)
	service := app.NewQuizService(app.Config{
		Sessions:      memory.NewSessionStore(),
		Generator:     bank,
		Notifier:      hub,
		AnswerTimeout: time.Minute,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service, hub).ServeWS)
	return httptest.NewServer(mux)
}

func dial(t *testing.T, server *httptest.Server, channelID, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?channelId=" + channelID + "&userId=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
