package http

import (
	"context"
	"log"
	"sync"
)

// Hub tracks websocket clients per chat channel and implements app.Notifier.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*client]struct{}
}

type client struct {
	channelID string
	userID    string
	send      chan outboundMessage[any]
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[*client]struct{})}
}

// register queues greeting ahead of any broadcast the client can observe.
func (h *Hub) register(c *client, greeting outboundMessage[any]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.send <- greeting
	clients, ok := h.channels[c.channelID]
	if !ok {
		clients = make(map[*client]struct{})
		h.channels[c.channelID] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.channels[c.channelID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.channels, c.channelID)
	}
}

// Announce sends text to every client in the channel.
func (h *Hub) Announce(_ context.Context, channelID, text string) error {
	h.deliver(channelID, "", outboundMessage[any]{Type: "announce", Payload: textPayload{Text: text}})
	return nil
}

// Acknowledge sends text only to the participant's own connections.
func (h *Hub) Acknowledge(_ context.Context, channelID, participantID, text string) error {
	h.deliver(channelID, participantID, outboundMessage[any]{Type: "ack", Payload: textPayload{Text: text}})
	return nil
}

// Clients reports how many connections are attached to the channel.
func (h *Hub) Clients(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

func (h *Hub) deliver(channelID, userID string, msg outboundMessage[any]) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[channelID] {
		if userID != "" && c.userID != userID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// slow clients lose messages rather than stall the quiz
			log.Printf("ws client buffer full channel=%s user=%s", c.channelID, c.userID)
		}
	}
}
