// Package alerts deduplicates and publishes line movement alerts.
package alerts

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Kind classifies an alert
type Kind string

const (
	KindSteamMove   Kind = "steam_move"
	KindSharpAction Kind = "sharp_action"
)

// Alert is a notable movement on one tracked line
type Alert struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	EntityID    string    `json:"entity_id"`
	Market      string    `json:"market"`
	Direction   string    `json:"direction"`
	Magnitude   float64   `json:"magnitude"`
	Sportsbooks []string  `json:"sportsbooks,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Publisher delivers alerts to subscribers
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Deduplicator suppresses repeats of the same alert within a window
type Deduplicator interface {
	ShouldAlert(ctx context.Context, key string) (bool, error)
}

// RedisDeduplicator deduplicates with SET NX so all engine instances share the window
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduplicator creates a new Redis deduplicator
func NewRedisDeduplicator(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, ttl: ttl}
}

// ShouldAlert returns true the first time key is seen within the window
func (d *RedisDeduplicator) ShouldAlert(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup key: %w", err)
	}
	return ok, nil
}

// MemoryDeduplicator is the single-process fallback when Redis is not configured
type MemoryDeduplicator struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduplicator creates an in-memory deduplicator
func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// ShouldAlert returns true the first time key is seen within the window
func (d *MemoryDeduplicator) ShouldAlert(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, k)
		}
	}

	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}

// Dispatcher filters alerts through a deduplicator before publishing
type Dispatcher struct {
	dedup     Deduplicator
	publisher Publisher
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher. A nil publisher drops every alert.
func NewDispatcher(dedup Deduplicator, publisher Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		dedup:     dedup,
		publisher: publisher,
		log:       log.With().Str("component", "alerts").Logger(),
	}
}

// Notify publishes alert unless an identical one went out within the window.
// Alerts are best-effort: failures are logged.
func (d *Dispatcher) Notify(ctx context.Context, alert Alert) {
	if d == nil || d.publisher == nil {
		return
	}

	if d.dedup != nil {
		ok, err := d.dedup.ShouldAlert(ctx, DedupKey(alert))
		if err != nil {
			d.log.Warn().Err(err).Str("entity", alert.EntityID).Msg("alert dedup unavailable, sending anyway")
		} else if !ok {
			return
		}
	}

	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if err := d.publisher.Publish(ctx, alert); err != nil {
		d.log.Error().Err(err).Str("kind", string(alert.Kind)).Str("entity", alert.EntityID).Msg("failed to publish alert")
		return
	}
	d.log.Info().Str("kind", string(alert.Kind)).Str("entity", alert.EntityID).Str("market", alert.Market).Msg("alert published")
}

// DedupKey identifies an alert for deduplication: alert:dedup:{kind}:{hash}
func DedupKey(alert Alert) string {
	hash := sha256.Sum256([]byte(alert.EntityID + "|" + alert.Market))
	return fmt.Sprintf("alert:dedup:%s:%x", alert.Kind, hash[:8])
}
