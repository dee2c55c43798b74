// Package oddsmath holds the pure odds arithmetic shared by the engine:
// conversions, implied probability, parlay combination, EV and Kelly sizing.
package oddsmath

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidOdds is returned for an American price between -100 and +100
	ErrInvalidOdds = errors.New("invalid American odds: must be at least +100 or at most -100")

	// ErrEmptyLegs is returned when a parlay calculation receives no legs
	ErrEmptyLegs = errors.New("at least one leg is required")
)

// ValidAmerican reports whether a price is a real American quote.
// Prices strictly between -100 and +100 do not exist.
func ValidAmerican(american int) bool {
	return american >= 100 || american <= -100
}

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if !ValidAmerican(american) {
		return 0, ErrInvalidOdds
	}

	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}

	return (100.0 / float64(-american)) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → American +150
// Decimal 1.67 → American -150
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds %.4f: must be > 1.0", decimal)
	}

	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}

	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ImpliedProbability converts American odds to the bookmaker's implied probability
// +150 → 0.400
// -150 → 0.600
func ImpliedProbability(american int) (float64, error) {
	if !ValidAmerican(american) {
		return 0, ErrInvalidOdds
	}

	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}

	abs := float64(-american)
	return abs / (abs + 100.0), nil
}

// ProbabilityToAmerican converts a fair probability to American odds
func ProbabilityToAmerican(probability float64) (int, error) {
	if probability <= 0 || probability >= 1 {
		return 0, fmt.Errorf("invalid probability %.4f: must be between 0 and 1", probability)
	}

	return DecimalToAmerican(1.0 / probability)
}

// RoundToCent rounds a dollar amount to two decimal places
func RoundToCent(value float64) float64 {
	return math.Round(value*100) / 100
}
