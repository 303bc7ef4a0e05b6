package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/fulin-pos/panel/internal/service"
)

// Event is one message pushed to the admin live feed.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub maintains the set of connected admin panels and broadcasts
// order events to all of them. There is a single feed; every admin
// sees every order.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and drop it.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an event for every connected panel.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}

// NotifyOrderCreated pushes a freshly submitted order to the feed so
// open admin panels see it without refreshing.
func (h *Hub) NotifyOrderCreated(summary service.OrderSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		log.Printf("ERROR: marshal order event: %v", err)
		return
	}
	h.Broadcast(Event{Type: "order_created", Payload: payload})
}
