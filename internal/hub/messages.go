package hub

import (
	"slices"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/alerts"
)

// Message types for WebSocket communication
const (
	MessageTypeAlert       = "line_alert"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeHeartbeat   = "heartbeat"
	MessageTypeError       = "error"
)

// ClientMessage is a message from client to server
type ClientMessage struct {
	Type   string             `json:"type"`
	Filter SubscriptionFilter `json:"payload,omitempty"`
}

// ServerMessage is a message from server to client
type ServerMessage struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscriptionFilter narrows the alerts a client receives. Empty fields match everything.
type SubscriptionFilter struct {
	Kinds    []alerts.Kind `json:"kinds,omitempty"`
	Entities []string      `json:"entities,omitempty"`
	Markets  []string      `json:"markets,omitempty"`
}

// Matches reports whether alert passes the filter
func (f SubscriptionFilter) Matches(alert alerts.Alert) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, alert.Kind) {
		return false
	}
	if len(f.Entities) > 0 && !slices.Contains(f.Entities, alert.EntityID) {
		return false
	}
	if len(f.Markets) > 0 && !slices.Contains(f.Markets, alert.Market) {
		return false
	}
	return true
}

// ConnectionStats describes one client connection
type ConnectionStats struct {
	ClientID          string    `json:"client_id"`
	ConnectedAt       time.Time `json:"connected_at"`
	MessagesSent      int64     `json:"messages_sent"`
	MessagesReceived  int64     `json:"messages_received"`
	LastMessageAt     time.Time `json:"last_message_at"`
	BufferSize        int       `json:"buffer_size"`
	BufferUtilization float64   `json:"buffer_utilization"` // percent
}

// ErrorMessage is sent to a client whose message could not be handled
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metrics are hub-wide counters
type Metrics struct {
	ActiveClients     int   `json:"active_clients"`
	TotalConnections  int64 `json:"total_connections"`
	TotalMessages     int64 `json:"total_messages"`
	BroadcastCapacity int   `json:"broadcast_capacity"`
	BroadcastUsage    int   `json:"broadcast_usage"`
}
