package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
)

// clientBuffer is how many events a slow client may lag behind before the
// oldest ones are dropped.
const clientBuffer = 64

var (
	ErrHubClosed       = errors.New("hub closed")
	ErrNoStreaming     = errors.New("streaming unsupported")
	ErrDuplicateClient = errors.New("client id already connected")
)

// Event is one server-sent event.
type Event struct {
	Type   string `json:"type"`
	Flight string `json:"flight"`
	State  string `json:"state,omitempty"`
	Error  string `json:"error,omitempty"`
	Extent any    `json:"extent,omitempty"`
}

// Client represents a connected event stream client
type Client struct {
	id     string
	events chan []byte
	done   chan struct{}
	once   sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub fans events out to every connected client
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe registers a client. The returned client is closed by Close or
// removed with Unsubscribe. An id that is already connected is refused.
func (h *Hub) Subscribe(clientID string) (*Client, error) {
	client := &Client{
		id:     clientID,
		events: make(chan []byte, clientBuffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	if _, ok := h.clients[clientID]; ok {
		return nil, ErrDuplicateClient
	}
	h.clients[clientID] = client
	log.Printf("📊 client added: %s (%d connected)", clientID, len(h.clients))
	return client, nil
}

// Unsubscribe removes a client
func (h *Hub) Unsubscribe(clientID string) {
	h.mu.Lock()
	client, ok := h.clients[clientID]
	delete(h.clients, clientID)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.close()
		log.Printf("📊 client removed: %s (%d connected)", clientID, count)
	}
}

// Broadcast sends ev to every client without blocking
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("❌ encode event: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.events <- data:
		default:
			// Buffer full, drop oldest event
			select {
			case <-client.events:
			default:
			}
			select {
			case client.events <- data:
			default:
			}
		}
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Serve streams events to w until the request ends or the client is closed
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, clientID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrNoStreaming
	}

	client, err := h.Subscribe(clientID)
	if err != nil {
		return err
	}
	defer h.Unsubscribe(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-client.done:
			return nil
		case data := <-client.events:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}
