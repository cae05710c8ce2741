package stubserver

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
)

// Client represents one connected push consumer (SSE or WebSocket).
// The hub hands it raw JSON record payloads; the owning handler wraps
// them in the transport's framing.
type Client struct {
	receiver int64
	send     chan []byte
}

// Hub manages all connected push consumers, keyed by receiver.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64][]*Client
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[int64][]*Client)}
}

// Register adds a consumer for the receiver.
func (h *Hub) Register(receiver int64, send chan []byte) *Client {
	c := &Client{receiver: receiver, send: send}

	h.mu.Lock()
	h.clients[receiver] = append(h.clients[receiver], c)
	h.mu.Unlock()

	log.Debug().Int64("receiver", receiver).Msg("push client connected")
	return c
}

// Unregister removes a consumer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.receiver]
	updated := make([]*Client, 0, len(clients))
	for _, existing := range clients {
		if existing != c {
			updated = append(updated, existing)
		}
	}

	if len(updated) == 0 {
		delete(h.clients, c.receiver)
	} else {
		h.clients[c.receiver] = updated
	}

	log.Debug().Int64("receiver", c.receiver).Msg("push client disconnected")
}

// Broadcast delivers a record to every consumer of its receiver.
func (h *Hub) Broadcast(rec domain.Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Msg("marshal push payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[rec.ReceiverID] {
		select {
		case c.send <- payload:
		default:
			// Client is slow/disconnected, skip
			log.Warn().Int64("receiver", rec.ReceiverID).Msg("push client send buffer full, skipping")
		}
	}
}

// ConnectedCount returns the total number of connected consumers.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}
