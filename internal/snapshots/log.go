// Package snapshots stores the bounded, time-ordered log of observations
// for each tracked line.
package snapshots

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

const (
	// MaxEntries is the most snapshots kept per line
	MaxEntries = 100

	// Retention is how long a snapshot stays relevant
	Retention = 7 * 24 * time.Hour
)

// Key identifies one tracked line
type Key struct {
	EntityID string // game ID, or player:propType for props
	Market   models.MarketKey
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.EntityID, k.Market)
}

// PropEntityID builds the entity ID for a player prop line. Player names are
// case-folded so feeds that differ only in capitalization share a log.
func PropEntityID(player, propType string) string {
	return strings.ToLower(strings.TrimSpace(player)) + ":" + propType
}

// Store records and returns snapshot logs. Appends to the same key are
// serialized; different keys proceed independently.
type Store interface {
	Record(ctx context.Context, key Key, snap models.LineSnapshot) error
	// History returns the log in ascending ObservedAt order. ok is false when
	// nothing is retained for the key.
	History(ctx context.Context, key Key) (log []models.LineSnapshot, ok bool, err error)
}

// insert places snap into an ascending log, then applies the length cap and
// retention window relative to now.
func insert(log []models.LineSnapshot, snap models.LineSnapshot, now time.Time) []models.LineSnapshot {
	// equal timestamps keep arrival order
	i := sort.Search(len(log), func(i int) bool {
		return log[i].ObservedAt.After(snap.ObservedAt)
	})
	log = append(log, models.LineSnapshot{})
	copy(log[i+1:], log[i:])
	log[i] = snap

	cutoff := now.Add(-Retention)
	start := sort.Search(len(log), func(i int) bool {
		return !log[i].ObservedAt.Before(cutoff)
	})
	if over := len(log) - start - MaxEntries; over > 0 {
		start += over
	}
	if start > 0 {
		log = append(log[:0:0], log[start:]...)
	}
	return log
}

// expired reports whether a log's newest entry has aged out
func expired(log []models.LineSnapshot, now time.Time) bool {
	return len(log) == 0 || now.Sub(log[len(log)-1].ObservedAt) > Retention
}
