package models

import "time"

// Outcome is one priced side inside a book's market
type Outcome struct {
	Name  string   `json:"name"`
	Price int      `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// BookMarket is one market offered by one sportsbook
type BookMarket struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// BookOdds is a sportsbook's markets for a game
type BookOdds struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	LastUpdate time.Time    `json:"last_update"`
	Markets    []BookMarket `json:"markets"`
}

// GameOdds is a game with every sportsbook's current prices
type GameOdds struct {
	ID           string     `json:"id"`
	SportKey     string     `json:"sport_key"`
	CommenceTime time.Time  `json:"commence_time"`
	HomeTeam     string     `json:"home_team"`
	AwayTeam     string     `json:"away_team"`
	Bookmakers   []BookOdds `json:"bookmakers"`
}

// APIUsage reports the upstream provider's quota headers
type APIUsage struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// OddsResponse is the payload of an odds lookup
type OddsResponse struct {
	Success  bool       `json:"success"`
	Sport    string     `json:"sport"`
	Count    int        `json:"count"`
	Games    []GameOdds `json:"games"`
	APIUsage *APIUsage  `json:"api_usage,omitempty"`
	Cached   bool       `json:"cached"`
	Error    string     `json:"error,omitempty"`
}

// PlayerProp is one book's over/under line on a player statistic
type PlayerProp struct {
	ID              string    `json:"id"`
	PlayerName      string    `json:"player_name"`
	Team            string    `json:"team,omitempty"`
	Opponent        string    `json:"opponent,omitempty"`
	Position        string    `json:"position,omitempty"`
	GameID          string    `json:"game_id"`
	GameTime        time.Time `json:"game_time"`
	PropType        string    `json:"prop_type"`
	PropDescription string    `json:"prop_description,omitempty"`
	Line            float64   `json:"line"`
	OverOdds        int       `json:"over_odds"`
	UnderOdds       int       `json:"under_odds"`
	Sportsbook      string    `json:"sportsbook"`
	LastUpdate      time.Time `json:"last_update"`
}

// Snapshot converts a prop into a line snapshot for movement tracking
func (p PlayerProp) Snapshot() LineSnapshot {
	return LineSnapshot{
		Sportsbook: p.Sportsbook,
		Market:     MarketPlayerProp,
		Line:       Float(p.Line),
		OverPrice:  p.OverOdds,
		UnderPrice: p.UnderOdds,
		ObservedAt: p.LastUpdate,
	}
}

// PropsResponse is the payload of a props lookup
type PropsResponse struct {
	Success bool         `json:"success"`
	Sport   string       `json:"sport"`
	Player  string       `json:"player,omitempty"`
	Props   []PlayerProp `json:"props"`
	Count   int          `json:"count"`
	Cached  bool         `json:"cached"`
	Error   string       `json:"error,omitempty"`
}
