package parlay

import (
	"math"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// Tier is a qualitative parlay rating
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

// Quality is the 0-100 score of a leg set with suggestions
type Quality struct {
	Tier            Tier     `json:"tier"`
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// Score rates a leg set starting from 100 and applying adjustments for leg
// count, combined probability, price dispersion, heavy favorites and
// average confidence.
func Score(legs []models.ParlayLeg) Quality {
	score := 100
	var recs []string

	switch n := len(legs); {
	case n > 6:
		score -= 20
		recs = append(recs, "Consider reducing to 4-6 legs for higher success probability")
	case n <= 4:
		score += 10
	}

	combined := combinedProbability(legs)
	switch {
	case combined < 0.10:
		score -= 30
		recs = append(recs, "Very low combined probability. High risk parlay.")
	case combined > 0.30:
		score += 15
	}

	if priceDispersion(legs) > 200 {
		score -= 10
		recs = append(recs, "Consider more balanced odds distribution")
	}

	heavy := 0
	for _, leg := range legs {
		if leg.Price < -250 {
			heavy++
		}
	}
	if float64(heavy) > float64(len(legs))/2 {
		score -= 15
		recs = append(recs, "Too many heavy favorites. Low value parlay.")
	}

	if len(legs) > 0 {
		mean := 0.0
		for _, leg := range legs {
			mean += leg.Probability
		}
		mean /= float64(len(legs))

		switch {
		case mean > 70:
			score += 10
		case mean < 55:
			score -= 15
			recs = append(recs, "Low average confidence. Consider higher confidence picks.")
		}
	}

	score = max(0, min(100, score))
	if len(recs) == 0 {
		recs = append(recs, "Solid parlay structure!")
	}

	return Quality{Tier: tierFor(score), Score: score, Recommendations: recs}
}

func tierFor(score int) Tier {
	switch {
	case score >= 85:
		return TierExcellent
	case score >= 70:
		return TierGood
	case score >= 50:
		return TierFair
	default:
		return TierPoor
	}
}

// priceDispersion is the population standard deviation of |price|
func priceDispersion(legs []models.ParlayLeg) float64 {
	if len(legs) == 0 {
		return 0
	}

	mean := 0.0
	for _, leg := range legs {
		mean += math.Abs(float64(leg.Price))
	}
	mean /= float64(len(legs))

	variance := 0.0
	for _, leg := range legs {
		d := math.Abs(float64(leg.Price)) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(legs)))
}
