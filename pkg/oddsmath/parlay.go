package oddsmath

import "fmt"

// CombinedDecimalOdds multiplies the decimal odds of every leg
// [-110, -110] → 1.909 × 1.909 = 3.645
func CombinedDecimalOdds(odds []int) (float64, error) {
	if len(odds) == 0 {
		return 0, ErrEmptyLegs
	}

	combined := 1.0
	for i, price := range odds {
		decimal, err := AmericanToDecimal(price)
		if err != nil {
			return 0, fmt.Errorf("leg %d: %w", i, err)
		}
		combined *= decimal
	}

	return combined, nil
}

// CombinedParlayOdds converts the legs' combined decimal odds back to American
// [-110, -110] → +264
func CombinedParlayOdds(odds []int) (int, error) {
	combined, err := CombinedDecimalOdds(odds)
	if err != nil {
		return 0, err
	}

	return DecimalToAmerican(combined)
}

// CombinedProbability multiplies the per-leg win probabilities (fractions 0..1).
//
// Legs are treated as independent. Same-game legs are excluded by parlay
// validation, but cross-game correlation is not modeled.
func CombinedProbability(probabilities []float64) float64 {
	combined := 1.0
	for _, p := range probabilities {
		combined *= p
	}
	return combined
}
