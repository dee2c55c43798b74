// Package hub broadcasts line movement alerts to WebSocket subscribers.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/alerts"
)

// ErrBufferFull is returned by Publish when the broadcast queue is saturated
var ErrBufferFull = errors.New("broadcast buffer full")

const broadcastBuffer = 1000

// Hub maintains the set of active clients and broadcasts alerts to them
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	broadcast  chan alerts.Alert
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	totalConnections int64
	totalMessages    int64
	metricsMu        sync.Mutex

	log zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan alerts.Alert, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run is the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info().Msg("hub started")
	defer close(h.done)

	go h.reportMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case alert := <-h.broadcast:
			h.broadcastAlert(alert)
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues alert for every matching client without blocking
func (h *Hub) Publish(ctx context.Context, alert alerts.Alert) error {
	select {
	case h.broadcast <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c] = true
	h.incrementTotalConnections()

	h.log.Info().Str("client", c.ID).Int("total", len(h.clients)).Msg("client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.closeSend()
		h.log.Info().Str("client", c.ID).Int("total", len(h.clients)).Msg("client disconnected")
	}
}

// broadcastAlert sends an alert to all clients whose filter matches
func (h *Hub) broadcastAlert(alert alerts.Alert) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	message := ServerMessage{
		Type:      MessageTypeAlert,
		Payload:   alert,
		Timestamp: time.Now(),
	}

	sent, dropped := 0, 0
	for _, c := range clients {
		if !c.Filter().Matches(alert) {
			continue
		}
		if c.TrySend(message) {
			sent++
			continue
		}
		// slow client
		dropped++
		h.log.Warn().Str("client", c.ID).Msg("client buffer full, disconnecting")
		go h.Unregister(c)
	}

	if sent > 0 {
		h.incrementTotalMessages()
	}
	if dropped > 0 {
		h.log.Warn().Int("dropped", dropped).Str("kind", string(alert.Kind)).Msg("alert dropped for slow clients")
	}
}

// Metrics returns hub counters
func (h *Hub) Metrics() Metrics {
	active := h.ClientCount()

	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()

	return Metrics{
		ActiveClients:     active,
		TotalConnections:  h.totalConnections,
		TotalMessages:     h.totalMessages,
		BroadcastCapacity: cap(h.broadcast),
		BroadcastUsage:    len(h.broadcast),
	}
}

// ClientCount returns the number of active clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.log.Info().Int("clients", len(h.clients)).Msg("shutting down hub")
	for c := range h.clients {
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := h.Metrics()
			h.log.Debug().
				Int("clients", m.ActiveClients).
				Int64("total_connections", m.TotalConnections).
				Int64("messages", m.TotalMessages).
				Msg("hub metrics")
		}
	}
}

func (h *Hub) incrementTotalConnections() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalConnections++
}

func (h *Hub) incrementTotalMessages() {
	h.metricsMu.Lock()
	defer h.metricsMu.Unlock()
	h.totalMessages++
}
