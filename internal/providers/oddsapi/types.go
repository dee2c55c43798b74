package oddsapi

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

// Event is one game as returned by /v4/sports/{sport}/odds
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one sportsbook's markets for an event
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is one market key (h2h, spreads, totals, player_*) at a book
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is a priced side. Player prop outcomes carry the player in Description.
type Outcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
}

// AmericanPrice returns the outcome price as integer American odds
func (o Outcome) AmericanPrice() int {
	return int(math.Round(o.Price))
}

var errInvalidEvent = errors.New("invalid event")

// Validate checks the fields the engine depends on
func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("%w: missing id", errInvalidEvent)
	case e.HomeTeam == "" || e.AwayTeam == "":
		return fmt.Errorf("%w %s: missing teams", errInvalidEvent, e.ID)
	case e.CommenceTime.IsZero():
		return fmt.Errorf("%w %s: missing commence_time", errInvalidEvent, e.ID)
	}
	for _, b := range e.Bookmakers {
		if b.Key == "" {
			return fmt.Errorf("%w %s: bookmaker without key", errInvalidEvent, e.ID)
		}
		for _, m := range b.Markets {
			for _, o := range m.Outcomes {
				if !oddsmath.ValidAmerican(o.AmericanPrice()) {
					return fmt.Errorf("%w %s: %s %s %q has invalid price %v", errInvalidEvent, e.ID, b.Key, m.Key, o.Name, o.Price)
				}
			}
		}
	}
	return nil
}
