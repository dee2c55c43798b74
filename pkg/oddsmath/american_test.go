package oddsmath_test

import (
	"errors"
	"math"
	"testing"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"Positive odds +100", 100, 2.0},
		{"Positive odds +150", 150, 2.5},
		{"Positive odds +200", 200, 3.0},
		{"Negative odds -110", -110, 1.909090909},
		{"Negative odds -150", -150, 1.666666667},
		{"Negative odds -200", -200, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.AmericanToDecimal(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("AmericanToDecimal(%d) = %f, want %f", tt.american, got, tt.want)
			}
		})
	}
}

func TestAmericanToDecimal_OutOfRange(t *testing.T) {
	for _, american := range []int{0, 50, -50, 99, -99, 1, -1} {
		if _, err := oddsmath.AmericanToDecimal(american); !errors.Is(err, oddsmath.ErrInvalidOdds) {
			t.Errorf("AmericanToDecimal(%d) error = %v, want ErrInvalidOdds", american, err)
		}
		if _, err := oddsmath.ImpliedProbability(american); !errors.Is(err, oddsmath.ErrInvalidOdds) {
			t.Errorf("ImpliedProbability(%d) error = %v, want ErrInvalidOdds", american, err)
		}
		if oddsmath.ValidAmerican(american) {
			t.Errorf("ValidAmerican(%d) = true, want false", american)
		}
	}

	for _, american := range []int{100, -100, 101, -101} {
		if !oddsmath.ValidAmerican(american) {
			t.Errorf("ValidAmerican(%d) = false, want true", american)
		}
	}
}

func TestDecimalToAmerican(t *testing.T) {
	tests := []struct {
		name    string
		decimal float64
		want    int
	}{
		{"Even odds 2.0", 2.0, 100},
		{"Underdog 2.5", 2.5, 150},
		{"Underdog 3.0", 3.0, 200},
		{"Favorite 1.909", 1.909, -110},
		{"Favorite 1.667", 1.667, -150},
		{"Favorite 1.5", 1.5, -200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.DecimalToAmerican(tt.decimal)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecimalToAmerican(%f) = %d, want %d", tt.decimal, got, tt.want)
			}
		})
	}
}

func TestDecimalToAmerican_Invalid(t *testing.T) {
	for _, d := range []float64{0, 0.5, 1.0} {
		if _, err := oddsmath.DecimalToAmerican(d); err == nil {
			t.Errorf("DecimalToAmerican(%f) expected error", d)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	check := func(american int) {
		decimal, err := oddsmath.AmericanToDecimal(american)
		if !oddsmath.ValidAmerican(american) {
			if !errors.Is(err, oddsmath.ErrInvalidOdds) {
				t.Errorf("AmericanToDecimal(%d) error = %v, want ErrInvalidOdds", american, err)
			}
			return
		}
		if err != nil {
			t.Fatalf("AmericanToDecimal(%d): %v", american, err)
		}
		back, err := oddsmath.DecimalToAmerican(decimal)
		if err != nil {
			t.Fatalf("DecimalToAmerican(%f): %v", decimal, err)
		}
		if diff := back - american; diff > 1 || diff < -1 {
			t.Errorf("round trip %d → %f → %d", american, decimal, back)
		}
	}

	for american := 100; american <= 5000; american++ {
		check(american)
	}
	for american := -101; american >= -5000; american-- {
		check(american)
	}
	// no price in (-100, 100) may leak through as a bogus conversion
	for american := -99; american <= 99; american++ {
		check(american)
	}
}

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		name     string
		american int
		want     float64
	}{
		{"Even +100", 100, 0.5},
		{"Underdog +150", 150, 0.4},
		{"Favorite -150", -150, 0.6},
		{"Standard -110", -110, 0.5238},
		{"Longshot +900", 900, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.ImpliedProbability(tt.american)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 0.0001 {
				t.Errorf("ImpliedProbability(%d) = %f, want %f", tt.american, got, tt.want)
			}
			if got <= 0 || got >= 1 {
				t.Errorf("ImpliedProbability(%d) = %f, outside (0,1)", tt.american, got)
			}
		})
	}

	if _, err := oddsmath.ImpliedProbability(0); !errors.Is(err, oddsmath.ErrInvalidOdds) {
		t.Errorf("ImpliedProbability(0) error = %v, want ErrInvalidOdds", err)
	}
}
