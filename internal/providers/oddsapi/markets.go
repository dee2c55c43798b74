package oddsapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// ErrUnsupportedSport is returned for sports without a provider mapping
var ErrUnsupportedSport = errors.New("unsupported sport")

var sportKeys = map[string]string{
	"nfl":   "americanfootball_nfl",
	"ncaaf": "americanfootball_ncaaf",
	"nba":   "basketball_nba",
	"mlb":   "baseball_mlb",
}

// SportKey maps a short sport name to the provider's sport key
func SportKey(sport string) (string, error) {
	key, ok := sportKeys[strings.ToLower(sport)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedSport, sport)
	}
	return key, nil
}

// Provider market keys for game lines
const (
	MarketH2H     = "h2h"
	MarketSpreads = "spreads"
	MarketTotals  = "totals"
)

// GameMarkets are requested when no market is specified
var GameMarkets = []string{MarketH2H, MarketSpreads, MarketTotals}

// ProviderMarket maps an engine market to the provider's market key
func ProviderMarket(m models.MarketKey) (string, bool) {
	switch m {
	case models.MarketMoneyline:
		return MarketH2H, true
	case models.MarketSpread:
		return MarketSpreads, true
	case models.MarketTotal:
		return MarketTotals, true
	}
	return "", false
}

// EngineMarket maps a provider game market key to the engine's market
func EngineMarket(key string) (models.MarketKey, bool) {
	switch key {
	case MarketH2H:
		return models.MarketMoneyline, true
	case MarketSpreads:
		return models.MarketSpread, true
	case MarketTotals:
		return models.MarketTotal, true
	}
	return "", false
}

var footballProps = []string{
	"player_pass_yds",
	"player_pass_tds",
	"player_pass_completions",
	"player_pass_attempts",
	"player_pass_interceptions",
	"player_rush_yds",
	"player_rush_attempts",
	"player_receptions",
	"player_reception_yds",
	"player_rush_reception_yds",
}

var basketballProps = []string{
	"player_points",
	"player_rebounds",
	"player_assists",
	"player_threes",
	"player_points_rebounds_assists",
}

var baseballProps = []string{
	"batter_hits",
	"batter_total_bases",
	"batter_home_runs",
	"pitcher_strikeouts",
}

// PropMarkets returns the over/under player prop markets requested for a sport
func PropMarkets(sportKey string) []string {
	switch {
	case strings.HasPrefix(sportKey, "americanfootball"):
		return footballProps
	case strings.HasPrefix(sportKey, "basketball"):
		return basketballProps
	case strings.HasPrefix(sportKey, "baseball"):
		return baseballProps
	}
	return nil
}

var propDescriptions = map[string]string{
	"player_pass_yds":           "Passing Yards",
	"player_pass_tds":           "Passing Touchdowns",
	"player_pass_completions":   "Pass Completions",
	"player_pass_attempts":      "Pass Attempts",
	"player_pass_interceptions": "Interceptions",
	"player_rush_yds":           "Rushing Yards",
	"player_rush_attempts":      "Rush Attempts",
	"player_receptions":         "Receptions",
	"player_reception_yds":      "Receiving Yards",
	"player_rush_reception_yds": "Rush + Rec Yards",
	"player_points":             "Points",
	"player_rebounds":           "Rebounds",
	"player_assists":            "Assists",
	"player_threes":             "Threes Made",
	"batter_hits":               "Hits",
	"batter_total_bases":        "Total Bases",
	"batter_home_runs":          "Home Runs",
	"pitcher_strikeouts":        "Strikeouts",
}

// PropDescription is the display name of a prop market
func PropDescription(propType string) string {
	if d, ok := propDescriptions[propType]; ok {
		return d
	}
	words := strings.Fields(strings.ReplaceAll(strings.TrimPrefix(propType, "player_"), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// guessPosition infers a football position from the prop type
func guessPosition(propType string) string {
	switch {
	case strings.Contains(propType, "pass"):
		return "QB"
	case strings.Contains(propType, "rush") && !strings.Contains(propType, "reception"):
		return "RB"
	case strings.Contains(propType, "reception"):
		return "WR"
	}
	return ""
}
