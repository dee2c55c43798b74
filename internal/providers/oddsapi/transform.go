package oddsapi

import (
	"fmt"
	"strings"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// ToGameOdds converts provider events into engine game odds
func ToGameOdds(events []Event) []models.GameOdds {
	games := make([]models.GameOdds, 0, len(events))
	for _, e := range events {
		game := models.GameOdds{
			ID:           e.ID,
			SportKey:     e.SportKey,
			CommenceTime: e.CommenceTime,
			HomeTeam:     e.HomeTeam,
			AwayTeam:     e.AwayTeam,
			Bookmakers:   make([]models.BookOdds, 0, len(e.Bookmakers)),
		}
		for _, b := range e.Bookmakers {
			book := models.BookOdds{
				Key:        b.Key,
				Title:      b.Title,
				LastUpdate: b.LastUpdate,
				Markets:    make([]models.BookMarket, 0, len(b.Markets)),
			}
			for _, m := range b.Markets {
				market := models.BookMarket{Key: m.Key, LastUpdate: m.LastUpdate}
				for _, o := range m.Outcomes {
					market.Outcomes = append(market.Outcomes, models.Outcome{
						Name:  o.Name,
						Price: o.AmericanPrice(),
						Point: o.Point,
					})
				}
				book.Markets = append(book.Markets, market)
			}
			game.Bookmakers = append(game.Bookmakers, book)
		}
		games = append(games, game)
	}
	return games
}

// GameSnapshots extracts one two-sided snapshot per book and game market.
// Spread and moneyline snapshots carry the home side as OverPrice.
func GameSnapshots(game models.GameOdds) map[models.MarketKey][]models.LineSnapshot {
	out := make(map[models.MarketKey][]models.LineSnapshot)
	for _, b := range game.Bookmakers {
		for _, m := range b.Markets {
			market, ok := EngineMarket(m.Key)
			if !ok {
				continue
			}
			snap := models.LineSnapshot{
				Sportsbook: b.Key,
				Market:     market,
				ObservedAt: m.LastUpdate,
			}
			if snap.ObservedAt.IsZero() {
				snap.ObservedAt = b.LastUpdate
			}
			for _, o := range m.Outcomes {
				switch {
				case market == models.MarketTotal && strings.EqualFold(o.Name, "Over"),
					market != models.MarketTotal && o.Name == game.HomeTeam:
					snap.OverPrice = o.Price
					if market.HasLine() {
						snap.Line = o.Point
					}
				case market == models.MarketTotal && strings.EqualFold(o.Name, "Under"),
					market != models.MarketTotal && o.Name == game.AwayTeam:
					snap.UnderPrice = o.Price
				}
			}
			if snap.Validate() != nil {
				continue
			}
			out[market] = append(out[market], snap)
		}
	}
	return out
}

type propKey struct {
	book     string
	propType string
	player   string
}

// ToPlayerProps flattens prop markets into one PlayerProp per book, player and
// market. Props missing either side are dropped.
func ToPlayerProps(events []Event) []models.PlayerProp {
	var props []models.PlayerProp
	for _, e := range events {
		for _, b := range e.Bookmakers {
			for _, m := range b.Markets {
				if !strings.HasPrefix(m.Key, "player_") && !strings.HasPrefix(m.Key, "batter_") && !strings.HasPrefix(m.Key, "pitcher_") {
					continue
				}
				grouped := make(map[propKey]*models.PlayerProp)
				var order []propKey
				for _, o := range m.Outcomes {
					player := extractPlayerName(o)
					if player == "" || o.Point == nil {
						continue
					}
					k := propKey{book: b.Key, propType: m.Key, player: player}
					p, ok := grouped[k]
					if !ok {
						updated := m.LastUpdate
						if updated.IsZero() {
							updated = b.LastUpdate
						}
						p = &models.PlayerProp{
							ID:              fmt.Sprintf("%s-%s-%s-%s", e.ID, b.Key, m.Key, strings.ReplaceAll(strings.ToLower(player), " ", "-")),
							PlayerName:      player,
							Position:        guessPosition(m.Key),
							GameID:          e.ID,
							GameTime:        e.CommenceTime,
							PropType:        m.Key,
							PropDescription: PropDescription(m.Key),
							Line:            *o.Point,
							Sportsbook:      b.Key,
							LastUpdate:      updated,
						}
						grouped[k] = p
						order = append(order, k)
					}
					switch strings.ToLower(o.Name) {
					case "over":
						p.OverOdds = o.AmericanPrice()
					case "under":
						p.UnderOdds = o.AmericanPrice()
					}
				}
				for _, k := range order {
					p := grouped[k]
					if p.OverOdds == 0 || p.UnderOdds == 0 {
						continue
					}
					props = append(props, *p)
				}
			}
		}
	}
	return props
}

// extractPlayerName reads the player from the outcome description, falling
// back to a name prefix like "Patrick Mahomes Over".
func extractPlayerName(o Outcome) string {
	if d := strings.TrimSpace(o.Description); d != "" {
		return d
	}
	name := strings.TrimSpace(o.Name)
	for _, suffix := range []string{" Over", " Under"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return ""
}
