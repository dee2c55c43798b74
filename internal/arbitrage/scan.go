package arbitrage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// DefaultMinProfit is the smallest profit percentage worth reporting
const DefaultMinProfit = 0.5

// ScanProps groups props by player, prop type and line, runs DetectTwoWay
// per group and returns opportunities at or above minProfit, best first.
func ScanProps(props []models.PlayerProp, minProfit float64) []Opportunity {
	type group struct {
		first  models.PlayerProp
		quotes []models.OddsQuote
	}

	groups := make(map[string]*group)
	var order []string
	for _, p := range props {
		key := strings.ToLower(p.PlayerName) + "|" + p.PropType + "|" + strconv.FormatFloat(p.Line, 'f', -1, 64)
		g, ok := groups[key]
		if !ok {
			g = &group{first: p}
			groups[key] = g
			order = append(order, key)
		}
		g.quotes = append(g.quotes, p.Snapshot().Quotes()...)
	}

	var out []Opportunity
	for _, key := range order {
		g := groups[key]
		opp, ok := DetectTwoWay(g.quotes)
		if !ok || !opp.HasArbitrage || opp.ProfitPercent < minProfit {
			continue
		}
		opp.GameID = g.first.GameID
		opp.PlayerName = g.first.PlayerName
		opp.PropType = g.first.PropType
		opp.Line = models.Float(g.first.Line)
		out = append(out, opp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProfitPercent > out[j].ProfitPercent
	})
	return out
}
