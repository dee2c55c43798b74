package oddsmath

import "fmt"

const (
	// DefaultKellyMultiplier is quarter Kelly
	DefaultKellyMultiplier = 0.25

	// DefaultKellyCap limits a single stake to 5% of bankroll
	DefaultKellyCap = 0.05
)

// KellyOptions configures fractional Kelly sizing
type KellyOptions struct {
	Multiplier float64 // fraction of full Kelly to bet (0.25 = quarter Kelly)
	Cap        float64 // maximum fraction of bankroll
}

// DefaultKellyOptions returns quarter Kelly capped at 5%
func DefaultKellyOptions() KellyOptions {
	return KellyOptions{Multiplier: DefaultKellyMultiplier, Cap: DefaultKellyCap}
}

// ExpectedValue returns the expected profit in cents per dollar staked
// EV = (p × (decimal - 1) - (1 - p)) × 100
//
// Example:
// p = 0.55 at -110 (decimal 1.909)
// EV = (0.55 × 0.909 - 0.45) × 100 = 5.0 cents per dollar
func ExpectedValue(probability float64, american int) (float64, error) {
	decimal, err := AmericanToDecimal(american)
	if err != nil {
		return 0, err
	}

	return (probability*(decimal-1.0) - (1.0 - probability)) * 100.0, nil
}

// ExpectedValueDollars returns the expected profit of a stake in dollars
func ExpectedValueDollars(stake, probability, decimal float64) float64 {
	payout := stake * decimal
	return probability*payout - stake
}

// KellyFraction returns the fraction of bankroll to stake.
//
// Full Kelly = (p × decimal - 1) / (decimal - 1), then scaled by
// opts.Multiplier and capped at opts.Cap. Never negative.
func KellyFraction(probability, decimal float64, opts KellyOptions) float64 {
	if decimal <= 1.0 || probability <= 0 {
		return 0
	}

	full := (probability*decimal - 1.0) / (decimal - 1.0)
	if full <= 0 {
		return 0
	}

	fraction := full * opts.Multiplier
	if opts.Cap > 0 && fraction > opts.Cap {
		fraction = opts.Cap
	}

	return fraction
}

// KellyStake returns the recommended stake in dollars, rounded to the cent
func KellyStake(bankroll, probability, decimal float64, opts KellyOptions) (float64, error) {
	if bankroll < 0 {
		return 0, fmt.Errorf("invalid bankroll %.2f: must be >= 0", bankroll)
	}

	return RoundToCent(bankroll * KellyFraction(probability, decimal, opts)), nil
}

// InverseSum returns 1/decimal1 + 1/decimal2, the combined implied
// probability of a two-way market. A sum below 1.0 is an arbitrage.
func InverseSum(odds1, odds2 int) (float64, error) {
	decimal1, err := AmericanToDecimal(odds1)
	if err != nil {
		return 0, err
	}

	decimal2, err := AmericanToDecimal(odds2)
	if err != nil {
		return 0, err
	}

	return (1.0 / decimal1) + (1.0 / decimal2), nil
}
