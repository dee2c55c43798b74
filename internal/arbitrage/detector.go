// Package arbitrage finds two-way markets where the best prices at
// different sportsbooks guarantee a profit.
package arbitrage

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

// Leg is one side of an arbitrage
type Leg struct {
	Sportsbook    string      `json:"sportsbook"`
	Side          models.Side `json:"side"`
	Line          *float64    `json:"line,omitempty"`
	Price         int         `json:"price"`
	DecimalOdds   float64     `json:"decimal_odds"`
	StakeFraction float64     `json:"stake_fraction"` // share of the total stake
}

// Opportunity is the best cross-book pairing for one two-way line
type Opportunity struct {
	ID            string    `json:"id"`
	HasArbitrage  bool      `json:"has_arbitrage"`
	ProfitPercent float64   `json:"profit_percent"`
	ImpliedSum    float64   `json:"implied_sum"`
	VigPercent    float64   `json:"vig_percent"` // 0 when the pair is an arbitrage
	Over          Leg       `json:"over"`  // over or home side
	Under         Leg       `json:"under"` // under or away side
	DetectedAt    time.Time `json:"detected_at"`

	// Set by ScanProps
	GameID     string   `json:"game_id,omitempty"`
	PlayerName string   `json:"player_name,omitempty"`
	PropType   string   `json:"prop_type,omitempty"`
	Line       *float64 `json:"line,omitempty"`
}

// Stakes splits total across both legs, rounded to the cent
func (o Opportunity) Stakes(total float64) (over, under float64) {
	return oddsmath.RoundToCent(total * o.Over.StakeFraction), oddsmath.RoundToCent(total * o.Under.StakeFraction)
}

// GuaranteedPayout is what either leg returns when total is staked per Stakes
func (o Opportunity) GuaranteedPayout(total float64) float64 {
	if o.ImpliedSum <= 0 {
		return 0
	}
	return oddsmath.RoundToCent(total / o.ImpliedSum)
}

// DetectTwoWay pairs the best price on each side of a line, requiring the two
// prices to come from different sportsbooks. ok is false when the quotes do
// not span two books with both sides priced. Invalid quotes are ignored.
func DetectTwoWay(quotes []models.OddsQuote) (opp Opportunity, ok bool) {
	primary := make(map[string]models.OddsQuote)
	secondary := make(map[string]models.OddsQuote)
	books := make(map[string]struct{})

	for _, q := range quotes {
		if q.Validate() != nil {
			continue
		}
		books[q.SportsbookID] = struct{}{}

		side := secondary
		if q.Side.IsPrimary() {
			side = primary
		}
		if best, seen := side[q.SportsbookID]; !seen || q.Price > best.Price {
			side[q.SportsbookID] = q
		}
	}

	if len(books) < 2 || len(primary) == 0 || len(secondary) == 0 {
		return Opportunity{}, false
	}

	over, under, found := bestPair(ranked(primary), ranked(secondary))
	if !found {
		return Opportunity{}, false
	}
	return build(over, under), true
}

// ranked orders one side's per-book quotes by price, best first
func ranked(side map[string]models.OddsQuote) []models.OddsQuote {
	out := make([]models.OddsQuote, 0, len(side))
	for _, q := range side {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price > out[j].Price
		}
		return out[i].SportsbookID < out[j].SportsbookID
	})
	return out
}

// bestPair returns the lowest-implied-sum pairing across different books.
// Only the top two of each side can be part of it.
func bestPair(over, under []models.OddsQuote) (models.OddsQuote, models.OddsQuote, bool) {
	if over[0].SportsbookID != under[0].SportsbookID {
		return over[0], under[0], true
	}

	var candidates [][2]models.OddsQuote
	if len(under) > 1 {
		candidates = append(candidates, [2]models.OddsQuote{over[0], under[1]})
	}
	if len(over) > 1 {
		candidates = append(candidates, [2]models.OddsQuote{over[1], under[0]})
	}
	if len(candidates) == 0 {
		return models.OddsQuote{}, models.OddsQuote{}, false
	}

	best, bestSum := candidates[0], math.Inf(1)
	for _, c := range candidates {
		sum, err := oddsmath.InverseSum(c[0].Price, c[1].Price)
		if err == nil && sum < bestSum {
			best, bestSum = c, sum
		}
	}
	return best[0], best[1], true
}

func build(over, under models.OddsQuote) Opportunity {
	overDecimal, _ := oddsmath.AmericanToDecimal(over.Price)
	underDecimal, _ := oddsmath.AmericanToDecimal(under.Price)

	sum := 1.0/overDecimal + 1.0/underDecimal
	vig, _ := oddsmath.VigPercentage([]float64{1.0 / overDecimal, 1.0 / underDecimal})

	opp := Opportunity{
		ID:         uuid.NewString(),
		ImpliedSum: sum,
		VigPercent: vig,
		DetectedAt: time.Now(),
		Over: Leg{
			Sportsbook:    over.SportsbookID,
			Side:          over.Side,
			Line:          over.Line,
			Price:         over.Price,
			DecimalOdds:   overDecimal,
			StakeFraction: (1.0 / overDecimal) / sum,
		},
		Under: Leg{
			Sportsbook:    under.SportsbookID,
			Side:          under.Side,
			Line:          under.Line,
			Price:         under.Price,
			DecimalOdds:   underDecimal,
			StakeFraction: (1.0 / underDecimal) / sum,
		},
	}

	if sum < 1.0 {
		opp.HasArbitrage = true
		opp.ProfitPercent = (1.0 - sum) * 100.0
	}
	return opp
}
