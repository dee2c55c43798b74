package parlay

import (
	"fmt"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

// Evaluation is the pricing of a leg set at a stake
type Evaluation struct {
	CombinedDecimal     float64 `json:"combined_decimal"`
	CombinedAmerican    int     `json:"combined_american"`
	CombinedProbability float64 `json:"combined_probability"` // 0..1
	Stake               float64 `json:"stake"`
	PotentialPayout     float64 `json:"potential_payout"`
	ExpectedValue       float64 `json:"expected_value"` // dollars at Stake
	EVPerDollar         float64 `json:"ev_per_dollar"`  // cents per dollar
	KellyFraction       float64 `json:"kelly_fraction"`
	KellyStake          float64 `json:"kelly_stake,omitempty"` // dollars at bankroll
}

// Evaluate prices a leg set: combined odds, combined probability, EV at
// stake and fractional Kelly sizing against bankroll.
func Evaluate(legs []models.ParlayLeg, stake, bankroll float64, opts oddsmath.KellyOptions) (Evaluation, error) {
	prices := make([]int, len(legs))
	for i, leg := range legs {
		prices[i] = leg.Price
	}

	decimal, err := oddsmath.CombinedDecimalOdds(prices)
	if err != nil {
		return Evaluation{}, fmt.Errorf("combining odds: %w", err)
	}
	american, err := oddsmath.DecimalToAmerican(decimal)
	if err != nil {
		return Evaluation{}, fmt.Errorf("combining odds: %w", err)
	}

	p := combinedProbability(legs)
	fraction := oddsmath.KellyFraction(p, decimal, opts)

	eval := Evaluation{
		CombinedDecimal:     decimal,
		CombinedAmerican:    american,
		CombinedProbability: p,
		Stake:               stake,
		PotentialPayout:     oddsmath.RoundToCent(stake * decimal),
		ExpectedValue:       oddsmath.RoundToCent(oddsmath.ExpectedValueDollars(stake, p, decimal)),
		EVPerDollar:         oddsmath.ExpectedValueDollars(1, p, decimal) * 100,
		KellyFraction:       fraction,
	}
	if bankroll > 0 {
		eval.KellyStake, err = oddsmath.KellyStake(bankroll, p, decimal, opts)
		if err != nil {
			return Evaluation{}, fmt.Errorf("sizing stake: %w", err)
		}
	}
	return eval, nil
}

// RoundRobin returns every parlay of the given size that can be built from
// legs, in leg order.
func RoundRobin(legs []models.ParlayLeg, size int) ([][]models.ParlayLeg, error) {
	if size < MinLegs {
		return nil, fmt.Errorf("%w: round robin size must be at least %d", ErrTooFewLegs, MinLegs)
	}
	if size > len(legs) {
		return nil, fmt.Errorf("round robin size %d exceeds %d legs", size, len(legs))
	}
	if size > MaxLegs {
		return nil, ErrTooManyLegs
	}

	var out [][]models.ParlayLeg
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]models.ParlayLeg, size)
		for i, j := range idx {
			combo[i] = legs[j]
		}
		out = append(out, combo)

		// advance to the next combination
		i := size - 1
		for i >= 0 && idx[i] == len(legs)-size+i {
			i--
		}
		if i < 0 {
			return out, nil
		}
		idx[i]++
		for j := i + 1; j < size; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
