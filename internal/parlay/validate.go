// Package parlay validates parlay construction and scores leg sets.
package parlay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

const (
	MinLegs = 2
	MaxLegs = 12

	// HeavyFavoritePrice is the price below which a leg counts as a heavy
	// favorite for the value warning
	HeavyFavoritePrice = -300
)

var (
	ErrTooFewLegs    = errors.New("parlays require at least 2 legs")
	ErrTooManyLegs   = errors.New("maximum 12 legs allowed per parlay")
	ErrDuplicateTeam = errors.New("team used in multiple legs")
	ErrDuplicateGame = errors.New("cannot bet multiple lines from the same game in a standard parlay, consider a same-game parlay instead")
	ErrInvalidLeg    = errors.New("invalid leg")
)

// Result is the outcome of validating a leg set
type Result struct {
	Valid    bool     `json:"valid"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings"`

	Err error `json:"-"`
}

func invalid(err error) Result {
	return Result{Valid: false, Error: err.Error(), Warnings: []string{}, Err: err}
}

// Validate checks the construction rules, then collects soft warnings.
// It is deterministic: the same legs always give the same result.
func Validate(legs []models.ParlayLeg) Result {
	if len(legs) < MinLegs {
		return invalid(ErrTooFewLegs)
	}
	if len(legs) > MaxLegs {
		return invalid(ErrTooManyLegs)
	}

	for i, leg := range legs {
		if !oddsmath.ValidAmerican(leg.Price) {
			return invalid(fmt.Errorf("%w: leg %d: %w", ErrInvalidLeg, i+1, oddsmath.ErrInvalidOdds))
		}
		if leg.Probability <= 0 || leg.Probability > 100 {
			return invalid(fmt.Errorf("%w: leg %d: probability %.2f must be within (0, 100]", ErrInvalidLeg, i+1, leg.Probability))
		}
	}

	if err := checkTeams(legs); err != nil {
		return invalid(err)
	}

	games := make(map[string]struct{}, len(legs))
	for _, leg := range legs {
		if leg.GameID == "" {
			continue
		}
		if _, seen := games[leg.GameID]; seen {
			return invalid(ErrDuplicateGame)
		}
		games[leg.GameID] = struct{}{}
	}

	return Result{Valid: true, Warnings: warnings(legs)}
}

func teamKey(t models.Team) string {
	if t.ID != "" {
		return t.ID
	}
	return strings.ToLower(t.Name)
}

func checkTeams(legs []models.ParlayLeg) error {
	used := make(map[string]struct{}, len(legs)*2)
	for _, leg := range legs {
		var conflicts []string
		for _, team := range []models.Team{leg.Game.HomeTeam, leg.Game.AwayTeam} {
			key := teamKey(team)
			if key == "" {
				continue
			}
			if _, seen := used[key]; seen {
				conflicts = append(conflicts, displayName(team))
			}
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("%w: cannot include %s in multiple legs", ErrDuplicateTeam, strings.Join(conflicts, " or "))
		}

		for _, team := range []models.Team{leg.Game.HomeTeam, leg.Game.AwayTeam} {
			if key := teamKey(team); key != "" {
				used[key] = struct{}{}
			}
		}
	}
	return nil
}

func displayName(t models.Team) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func warnings(legs []models.ParlayLeg) []string {
	out := []string{}

	combined := combinedProbability(legs)
	switch {
	case combined < 0.05:
		out = append(out, "Very low probability parlay (<5%). Consider fewer legs.")
	case combined < 0.15:
		out = append(out, "Low probability parlay (<15%). High risk bet.")
	}

	heavy, underdogs := 0, 0
	for _, leg := range legs {
		if leg.Price < HeavyFavoritePrice {
			heavy++
		}
		if leg.Price > 0 {
			underdogs++
		}
	}
	if heavy > 2 {
		out = append(out, "Multiple heavy favorites. Consider value alternatives.")
	}
	if underdogs == len(legs) && len(legs) > 3 {
		out = append(out, "All underdogs parlay. High variance, consider mixing in favorites.")
	}
	if len(legs) > 4 && sameDay(legs) {
		out = append(out, "All games on same day. Consider spreading across multiple days to reduce correlation.")
	}
	if len(legs) > 5 {
		out = append(out, "Parlays with more than 5 legs have exponentially lower success rates. Consider splitting into smaller parlays.")
	}

	return out
}

func combinedProbability(legs []models.ParlayLeg) float64 {
	probs := make([]float64, len(legs))
	for i, leg := range legs {
		probs[i] = leg.Probability / 100
	}
	return oddsmath.CombinedProbability(probs)
}

// sameDay reports whether every leg starts on the same UTC calendar day.
// Legs without a start time never match.
func sameDay(legs []models.ParlayLeg) bool {
	var day string
	for _, leg := range legs {
		if leg.Game.StartsAt.IsZero() {
			return false
		}
		d := leg.Game.StartsAt.UTC().Format("2006-01-02")
		if day == "" {
			day = d
		} else if d != day {
			return false
		}
	}
	return true
}
