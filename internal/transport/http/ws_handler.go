package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic  string `json:"topic"`
	Count  int    `json:"count"`
	Policy string `json:"policy"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type textPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	ChannelID string                  `json:"channelId"`
	Session   *domain.SessionSnapshot `json:"session,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and attaches the connection to a chat channel.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	channelID := r.URL.Query().Get("channelId")
	userID := r.URL.Query().Get("userId")
	if channelID == "" || userID == "" {
		http.Error(w, "missing channelId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{channelID: channelID, userID: userID, send: make(chan outboundMessage[any], 16)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	joined := joinedPayload{ChannelID: channelID}
	if snapshot, ok := h.service.Snapshot(channelID); ok {
		joined.Session = &snapshot
	}
	h.hub.register(c, outboundMessage[any]{Type: "joined", Payload: joined})
	log.Printf("ws client joined channel=%s user=%s clients=%d", channelID, userID, h.hub.Clients(channelID))

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.handle(r, channelID, userID, inbound); ok {
			select {
			case c.send <- msg:
			default:
			}
		}
	}

	h.hub.unregister(c)
	close(c.send)
	<-writerDone
	log.Printf("ws client left channel=%s user=%s clients=%d", channelID, userID, h.hub.Clients(channelID))
}

// handle runs one inbound command; the returned message, if any, goes to the sender only.
func (h *WSHandler) handle(r *http.Request, channelID, userID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid start payload"), true
		}
		// failures are acknowledged through the hub
		_, _ = h.service.Start(ctx, app.StartRequest{
			ChannelID:   channelID,
			RequesterID: userID,
			Topic:       payload.Topic,
			Count:       payload.Count,
			Policy:      payload.Policy,
		})
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload"), true
		}
		_, err := h.service.SubmitAnswer(ctx, channelID, userID, payload.Answer)
		if errors.Is(err, domain.ErrInvalidAnswer) {
			return errorMessage("answer with A, B, C or D"), true
		}
	case "stop":
		if err := h.service.Stop(ctx, channelID); errors.Is(err, domain.ErrNoActiveSession) {
			return errorMessage("no quiz is running in this channel"), true
		}
	case "standings":
		lb, err := h.service.Standings(ctx, channelID, app.DefaultStandingsLimit)
		switch {
		case errors.Is(err, domain.ErrStandingsUnavailable):
			return errorMessage("standings are not kept on this server"), true
		case err != nil:
			log.Printf("ws standings channel=%s: %v", channelID, err)
			return errorMessage("could not load standings"), true
		}
		return outboundMessage[any]{Type: "standings", Payload: lb}, true
	default:
		return errorMessage("unsupported message type"), true
	}
	return outboundMessage[any]{}, false
}

func errorMessage(text string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: text}}
}
