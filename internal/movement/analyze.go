// Package movement turns a line's snapshot log into a movement summary and
// raises steam and sharp-action alerts as new snapshots arrive.
package movement

import (
	"math"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// Direction of a line from opening to current
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

const (
	// StableThreshold is the smallest move reported as directional
	StableThreshold = 0.5

	// SharpTransitions is how many of the most recent transitions are scanned
	SharpTransitions = 5

	// SharpMinCount is how many reverse moves flag sharp action
	SharpMinCount = 2

	// SteamWindow is the look-back from each observation for steam detection
	SteamWindow = 15 * time.Minute

	// SteamMinObservations and SteamMinBooks define a steam move inside one window
	SteamMinObservations = 3
	SteamMinBooks        = 2
)

// Summary describes how a line has moved
type Summary struct {
	Direction   Direction `json:"direction"`
	Magnitude   float64   `json:"magnitude"`  // |current - opening|
	Percentage  float64   `json:"percentage"` // signed change relative to opening
	SharpAction bool      `json:"sharp_action"`
	SteamMove   bool      `json:"steam_move"`

	// SteamWindowEnd is the newest observation of the latest steam window.
	// Callers wanting "steam right now" compare it to the current time.
	SteamWindowEnd *time.Time `json:"steam_window_end,omitempty"`
}

// Analyze summarizes an ascending snapshot log. It never fails; logs with
// fewer than two entries are stable with no signals.
func Analyze(log []models.LineSnapshot) Summary {
	summary := Summary{Direction: DirectionStable}
	if len(log) < 2 {
		return summary
	}

	opening, current := trackedValue(log[0]), trackedValue(log[len(log)-1])
	change := current - opening
	summary.Magnitude = math.Abs(change)
	if opening != 0 {
		summary.Percentage = change / math.Abs(opening) * 100
	}
	switch {
	case summary.Magnitude < StableThreshold:
		summary.Direction = DirectionStable
	case change > 0:
		summary.Direction = DirectionUp
	default:
		summary.Direction = DirectionDown
	}

	summary.SharpAction = sharpAction(log)
	summary.SteamWindowEnd = steamWindow(log)
	summary.SteamMove = summary.SteamWindowEnd != nil

	return summary
}

// trackedValue is the line, or the home/over price for line-less markets
func trackedValue(s models.LineSnapshot) float64 {
	if s.Line != nil {
		return *s.Line
	}
	return float64(s.OverPrice)
}

// sharpAction counts reverse moves over the last few transitions: the line
// rises while the over price gets more expensive, or falls while it gets
// cheaper. Both mean money is pushing price against the line move.
func sharpAction(log []models.LineSnapshot) bool {
	start := len(log) - SharpTransitions - 1
	if start < 0 {
		start = 0
	}

	count := 0
	for i := start + 1; i < len(log); i++ {
		prev, cur := log[i-1], log[i]
		if prev.Line == nil || cur.Line == nil {
			continue
		}
		lineMove := *cur.Line - *prev.Line
		priceMove := cur.OverPrice - prev.OverPrice

		if (lineMove > 0 && priceMove < 0) || (lineMove < 0 && priceMove > 0) {
			count++
		}
	}
	return count >= SharpMinCount
}

// steamWindow returns the anchor of the latest window holding enough
// observations from enough books, or nil when none does.
func steamWindow(log []models.LineSnapshot) *time.Time {
	var found *time.Time
	lo := 0
	for hi := range log {
		anchor := log[hi].ObservedAt
		for anchor.Sub(log[lo].ObservedAt) >= SteamWindow {
			lo++
		}

		window := log[lo : hi+1]
		if len(window) < SteamMinObservations {
			continue
		}
		books := make(map[string]struct{}, len(window))
		for _, s := range window {
			books[s.Sportsbook] = struct{}{}
		}
		if len(books) >= SteamMinBooks {
			at := anchor
			found = &at
		}
	}
	return found
}
