package predictor

import (
	"context"
	"strings"
)

// FeatureProvider supplies the per-prop signals that feed a prediction.
// Each signal is on a -10 (unfavorable to the over) to +10 (favorable) scale.
type FeatureProvider interface {
	RecentForm(ctx context.Context, playerID, propType string) (float64, error)
	MatchupRating(ctx context.Context, playerID, propType string) (float64, error)
	WeatherImpact(ctx context.Context, playerID, propType string) (float64, error)
}

// NeutralFeatures scores every signal as 0. It is the provider used until a
// stats source is wired in.
type NeutralFeatures struct{}

func (NeutralFeatures) RecentForm(context.Context, string, string) (float64, error)    { return 0, nil }
func (NeutralFeatures) MatchupRating(context.Context, string, string) (float64, error) { return 0, nil }
func (NeutralFeatures) WeatherImpact(context.Context, string, string) (float64, error) { return 0, nil }

// StaticFeatures returns fixed signal values
type StaticFeatures struct {
	Form    float64
	Matchup float64
	Weather float64
}

func (f StaticFeatures) RecentForm(context.Context, string, string) (float64, error) {
	return f.Form, nil
}

func (f StaticFeatures) MatchupRating(context.Context, string, string) (float64, error) {
	return f.Matchup, nil
}

func (f StaticFeatures) WeatherImpact(context.Context, string, string) (float64, error) {
	return f.Weather, nil
}

// weatherSensitive reports whether weather can move this prop type
func weatherSensitive(propType string) bool {
	p := strings.ToLower(propType)
	return strings.Contains(p, "pass") || strings.Contains(p, "rush") || strings.Contains(p, "recep") || strings.Contains(p, "receiv")
}

func clampSignal(v float64) float64 {
	return max(-10, min(10, v))
}
