package models

import "time"

// Team identifies one side of a game
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// Game is the matchup a parlay leg is placed on
type Game struct {
	ID       string    `json:"id"`
	HomeTeam Team      `json:"home_team"`
	AwayTeam Team      `json:"away_team"`
	StartsAt time.Time `json:"starts_at"`
}

// ParlayLeg is one wagered outcome within a parlay
type ParlayLeg struct {
	GameID      string  `json:"game_id"`
	Game        Game    `json:"game"`
	BetType     string  `json:"bet_type"` // spread, moneyline, total, player_prop
	Selection   string  `json:"selection"`
	Price       int     `json:"price"`       // American odds
	Probability float64 `json:"probability"` // estimated win probability, 0-100
}

// Parlay is a submitted leg set and stake
type Parlay struct {
	Legs  []ParlayLeg `json:"legs"`
	Stake float64     `json:"stake"`
}
