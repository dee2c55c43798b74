package oddsmath

import (
	"errors"
	"fmt"
)

// ErrNoVig is returned when a two-way market's implied probabilities do not
// exceed 100%, so there is no margin to strip
var ErrNoVig = errors.New("market carries no vig")

// NoVigProbabilities scales both sides of a two-way market so they sum to 1.
//
// -110 / -110 → 0.5238 + 0.5238 = 1.0476 → 0.50 / 0.50
func NoVigProbabilities(primary, secondary float64) (float64, float64, error) {
	if !isProbability(primary) || !isProbability(secondary) {
		return 0, 0, fmt.Errorf("no-vig: probabilities %.4f, %.4f must be in (0, 1)", primary, secondary)
	}

	total := primary + secondary
	if total <= 1.0 {
		return 0, 0, fmt.Errorf("%w: sides sum to %.4f", ErrNoVig, total)
	}
	return primary / total, secondary / total, nil
}

// VigPercentage is the market's overround in percent, 0 when the sides sum
// to 100% or less.
// 0.5238 + 0.5238 → 4.76
func VigPercentage(probabilities []float64) (float64, error) {
	if len(probabilities) == 0 {
		return 0, errors.New("vig: no probabilities")
	}

	total := 0.0
	for _, p := range probabilities {
		if !isProbability(p) {
			return 0, fmt.Errorf("vig: probability %.4f must be in (0, 1)", p)
		}
		total += p
	}
	return max(0, (total-1.0)*100.0), nil
}

// Edge is how far a modeled probability sits above the price's implied
// probability, as a fraction: model/implied - 1. Positive means +EV.
func Edge(model, implied float64) (float64, error) {
	if !isProbability(model) || !isProbability(implied) {
		return 0, fmt.Errorf("edge: probabilities %.4f, %.4f must be in (0, 1)", model, implied)
	}
	return model/implied - 1.0, nil
}

func isProbability(p float64) bool {
	return p > 0 && p < 1
}
