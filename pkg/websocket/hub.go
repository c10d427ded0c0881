package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/metrics"
	"github.com/google/uuid"
)

// Message types pushed to clients
const (
	TypeRideRequestProposed = "ride_request_proposed"
	TypeRideRequestAccepted = "ride_request_accepted"
	TypeSeatsUpdated        = "seats_updated"
	TypeRideStatusChanged   = "ride_status_changed"
	TypePong                = "pong"
)

// Hub maintains active client connections and routes messages to them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logger.Logger
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations until ctx is canceled. Once it returns,
// Register closes new clients and Unregister is a no-op.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
			}
			h.mu.Unlock()
			metrics.WebSocketConnections.Set(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketConnections.Set(float64(count))
			h.logger.Info("Client registered",
				logger.String("client_id", client.ID),
				logger.String("user_id", client.UserID),
				logger.String("user_type", client.UserType),
			)

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WebSocketConnections.Set(float64(count))
		h.logger.Info("Client unregistered", logger.String("client_id", client.ID))
	}
}

// NotifyUser pushes a message to every connection of a user
func (h *Hub) NotifyUser(userID uuid.UUID, msgType string, data interface{}) {
	h.deliver(Message{Type: msgType, Data: data}, func(c *Client) bool {
		return c.UserID == userID.String()
	})
}

// NotifyRide pushes a message to every client subscribed to a ride
func (h *Hub) NotifyRide(rideID uuid.UUID, msgType string, data interface{}) {
	id := rideID.String()
	h.deliver(Message{Type: msgType, Data: data}, func(c *Client) bool {
		return c.IsSubscribedToRide(id)
	})
}

func (h *Hub) deliver(message Message, match func(*Client) bool) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal message", logger.Err(err), logger.String("type", message.Type))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients {
		if !match(client) {
			continue
		}
		if err := client.trySend(data); err != nil {
			h.logger.Warn("Dropping message",
				logger.Err(err),
				logger.String("client_id", client.ID),
				logger.String("type", message.Type),
			)
			continue
		}
		sent++
	}

	h.logger.Debug("Message delivered",
		logger.String("type", message.Type),
		logger.Int("recipients", sent),
	)
}

// GetActiveConnections returns the number of active connections
func (h *Hub) GetActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
