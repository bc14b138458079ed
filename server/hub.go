package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/TFMV/topicweb/metrics"
	"go.uber.org/zap"
)

// Message types sent on the frame stream
const (
	MessageHello = "hello"
	MessageFrame = "frame"
	MessageState = "state"
)

// Message is the envelope of every stream message
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func encodeMessage(messageType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", messageType, err)
	}
	return json.Marshal(Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Hub fans frames out to stream clients. A client whose send buffer is full
// is disconnected rather than slowing down the others.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewHub creates a hub. Run must be called for it to deliver messages.
func NewHub(logger *zap.Logger, reg *metrics.Registry) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 4),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    reg,
	}
}

// Run delivers messages until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.StreamClients.Inc()
			h.logger.Info("Stream client registered",
				zap.String("connectionID", client.id),
				zap.Int("clients", n),
			)

		case client := <-h.unregister:
			if h.remove(client) {
				h.logger.Info("Stream client unregistered", zap.String("connectionID", client.id))
			}

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// Broadcast queues a message for every client. When the queue is full the
// oldest pending message is discarded; frames are snapshots, so only the
// latest one matters.
func (h *Hub) Broadcast(message []byte) {
	for {
		select {
		case h.broadcast <- message:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		if h.remove(client) {
			h.metrics.StreamDropped.Inc()
			h.logger.Warn("Dropping slow stream client", zap.String("connectionID", client.id))
		}
	}
}

// remove closes the client's send channel exactly once
func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return false
	}
	delete(h.clients, client)
	close(client.send)
	h.metrics.StreamClients.Dec()
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
		h.metrics.StreamClients.Dec()
	}
}
