// Package realtime implements the push transport to connected clients: a
// WebSocket hub addressed by topic-style destinations, with a global
// broadcast address and per-user addresses.
package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// GlobalTopic receives every notification.
	GlobalTopic = "/topic/notifications"
	// userTopicPrefix scopes a destination to a single recipient.
	userTopicPrefix = GlobalTopic + "/"
)

// UserTopic returns the per-recipient destination for a user.
func UserTopic(userID string) string {
	return userTopicPrefix + userID
}

// envelope is one payload queued for delivery to a destination.
type envelope struct {
	destination string
	payload     []byte
}

// Hub maintains active WebSocket connections and routes destination
// payloads to them. One user can hold multiple connections; the global
// destination reaches all connections of all users.
type Hub struct {
	connections map[string]map[*Client]bool // userID -> set of clients
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHub creates a hub; call Run to start its event loop.
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[string]map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		broadcast:   make(chan envelope, 1024),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Run starts the hub's main event loop. It returns when Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAllConnections()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case env := <-h.broadcast:
			h.dispatch(env)
		}
	}
}

// Stop gracefully shuts down the hub, closing every connection.
func (h *Hub) Stop() {
	h.cancel()
}

// Publish queues payload for the destination. It implements ports.Channel.
// A full queue fails the publish within the context deadline instead of
// blocking the caller indefinitely.
func (h *Hub) Publish(ctx context.Context, destination string, payload []byte) error {
	if h.ctx.Err() != nil {
		return fmt.Errorf("publish to %s: hub stopped", destination)
	}
	select {
	case h.broadcast <- envelope{destination: destination, payload: payload}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", destination, ctx.Err())
	case <-h.ctx.Done():
		return fmt.Errorf("publish to %s: hub stopped", destination)
	}
}

// dispatch fans an envelope out to the connections its destination selects.
func (h *Hub) dispatch(env envelope) {
	h.mu.RLock()
	var targets []*Client
	switch {
	case env.destination == GlobalTopic:
		for _, clients := range h.connections {
			for client := range clients {
				targets = append(targets, client)
			}
		}
	case strings.HasPrefix(env.destination, userTopicPrefix):
		userID := strings.TrimPrefix(env.destination, userTopicPrefix)
		for client := range h.connections[userID] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	if !strings.HasPrefix(env.destination, GlobalTopic) {
		h.logger.Warn("unknown destination", zap.String("destination", env.destination))
		return
	}

	sent, dropped := 0, 0
	for _, client := range targets {
		select {
		case client.send <- env.payload:
			sent++
		default:
			// Slow consumer; drop the connection rather than back up the hub.
			dropped++
			h.logger.Warn("send buffer full, closing connection",
				zap.String("userID", client.userID),
				zap.String("connectionID", client.id),
			)
			go client.Close()
		}
	}

	h.logger.Debug("destination dispatched",
		zap.String("destination", env.destination),
		zap.Int("sent", sent),
		zap.Int("dropped", dropped),
	)
}

// registerClient adds a new client connection
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[client.userID] == nil {
		h.connections[client.userID] = make(map[*Client]bool)
	}
	h.connections[client.userID][client] = true

	h.logger.Info("client registered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
		zap.Int("userConnections", len(h.connections[client.userID])),
	)
}

// unregisterClient removes a client connection
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.connections[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.connections, client.userID)
			}

			h.logger.Info("client unregistered",
				zap.String("userID", client.userID),
				zap.String("connectionID", client.id),
			)
		}
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for client := range clients {
			close(client.send)
			client.conn.Close()
		}
		delete(h.connections, userID)
	}
}
