package movement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/alerts"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// Notifier receives alerts raised while recording
type Notifier interface {
	Notify(ctx context.Context, alert alerts.Alert)
}

// LineHistory is a tracked line's log plus its summary
type LineHistory struct {
	EntityID  string                `json:"entity_id"`
	Market    models.MarketKey      `json:"market"`
	Opening   *models.LineSnapshot  `json:"opening,omitempty"`
	Current   *models.LineSnapshot  `json:"current,omitempty"`
	Movements []models.LineSnapshot `json:"movements"`
	Summary   Summary               `json:"summary"`
}

// Tracker records snapshots and analyzes the resulting history
type Tracker struct {
	store    snapshots.Store
	notifier Notifier
	now      func() time.Time
	log      zerolog.Logger
}

// NewTracker creates a tracker. notifier may be nil.
func NewTracker(store snapshots.Store, notifier Notifier, log zerolog.Logger) *Tracker {
	return &Tracker{
		store:    store,
		notifier: notifier,
		now:      time.Now,
		log:      log.With().Str("component", "movement").Logger(),
	}
}

// Record appends a snapshot and raises alerts for steam or sharp action
// visible in the updated history.
func (t *Tracker) Record(ctx context.Context, key snapshots.Key, snap models.LineSnapshot) error {
	if snap.Market == "" {
		snap.Market = key.Market
	}
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = t.now()
	}

	if err := t.store.Record(ctx, key, snap); err != nil {
		return fmt.Errorf("recording %s: %w", key, err)
	}

	if t.notifier == nil {
		return nil
	}

	log, ok, err := t.store.History(ctx, key)
	if err != nil || !ok {
		return nil
	}
	t.raiseAlerts(ctx, key, log, Analyze(log))
	return nil
}

// RecordAll records a batch, logging individual failures
func (t *Tracker) RecordAll(ctx context.Context, batch map[snapshots.Key][]models.LineSnapshot) int {
	recorded := 0
	for key, snaps := range batch {
		for _, snap := range snaps {
			if err := t.Record(ctx, key, snap); err != nil {
				t.log.Warn().Err(err).Str("key", key.String()).Msg("snapshot not recorded")
				continue
			}
			recorded++
		}
	}
	return recorded
}

// History returns the line's log and summary. ok is false when nothing is tracked.
func (t *Tracker) History(ctx context.Context, key snapshots.Key) (LineHistory, bool, error) {
	log, ok, err := t.store.History(ctx, key)
	if err != nil {
		return LineHistory{}, false, err
	}

	h := LineHistory{EntityID: key.EntityID, Market: key.Market, Movements: log, Summary: Analyze(log)}
	if !ok {
		h.Movements = []models.LineSnapshot{}
		return h, false, nil
	}
	h.Opening = &log[0]
	h.Current = &log[len(log)-1]
	return h, true, nil
}

// Summary returns the line's movement summary and how many snapshots back it
func (t *Tracker) Summary(ctx context.Context, key snapshots.Key) (Summary, int, error) {
	log, _, err := t.store.History(ctx, key)
	if err != nil {
		return Analyze(nil), 0, err
	}
	return Analyze(log), len(log), nil
}

func (t *Tracker) raiseAlerts(ctx context.Context, key snapshots.Key, log []models.LineSnapshot, summary Summary) {
	now := t.now()
	base := alerts.Alert{
		EntityID:   key.EntityID,
		Market:     string(key.Market),
		Direction:  string(summary.Direction),
		Magnitude:  summary.Magnitude,
		DetectedAt: now,
	}

	// only a window that closed recently is news
	if summary.SteamMove && now.Sub(*summary.SteamWindowEnd) < SteamWindow {
		alert := base
		alert.Kind = alerts.KindSteamMove
		alert.Sportsbooks = booksSince(log, summary.SteamWindowEnd.Add(-SteamWindow))
		t.notifier.Notify(ctx, alert)
	}

	if summary.SharpAction {
		alert := base
		alert.Kind = alerts.KindSharpAction
		t.notifier.Notify(ctx, alert)
	}
}

func booksSince(log []models.LineSnapshot, since time.Time) []string {
	seen := make(map[string]struct{})
	for _, s := range log {
		if s.ObservedAt.After(since) {
			seen[s.Sportsbook] = struct{}{}
		}
	}
	books := make([]string, 0, len(seen))
	for b := range seen {
		books = append(books, b)
	}
	sort.Strings(books)
	return books
}
