package movement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

var t0 = time.Date(2024, 10, 6, 16, 0, 0, 0, time.UTC)

func snap(book string, line float64, over int, minute int) models.LineSnapshot {
	return models.LineSnapshot{
		Sportsbook: book,
		Market:     models.MarketTotal,
		Line:       models.Float(line),
		OverPrice:  over,
		UnderPrice: -110,
		ObservedAt: t0.Add(time.Duration(minute) * time.Minute),
	}
}

func TestAnalyze_EmptyAndSingle(t *testing.T) {
	for _, log := range [][]models.LineSnapshot{nil, {}, {snap("dk", 47.5, -110, 0)}} {
		got := Analyze(log)
		assert.Equal(t, DirectionStable, got.Direction)
		assert.Zero(t, got.Magnitude)
		assert.False(t, got.SharpAction)
		assert.False(t, got.SteamMove)
		assert.Nil(t, got.SteamWindowEnd)
	}
}

func TestAnalyze_Direction(t *testing.T) {
	tests := []struct {
		name      string
		log       []models.LineSnapshot
		want      Direction
		magnitude float64
	}{
		{"up", []models.LineSnapshot{snap("dk", 47.5, -110, 0), snap("dk", 49, -110, 600)}, DirectionUp, 1.5},
		{"down", []models.LineSnapshot{snap("dk", 47.5, -110, 0), snap("dk", 46.5, -110, 600)}, DirectionDown, 1.0},
		{"below threshold", []models.LineSnapshot{snap("dk", 47.5, -110, 0), snap("dk", 47.9, -110, 600)}, DirectionStable, 0.4},
		// drift in the middle is ignored: only opening and current count
		{"round trip", []models.LineSnapshot{snap("dk", 47.5, -110, 0), snap("dk", 52, -110, 300), snap("dk", 47.5, -110, 600)}, DirectionStable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(tt.log)
			assert.Equal(t, tt.want, got.Direction)
			assert.InDelta(t, tt.magnitude, got.Magnitude, 1e-9)
		})
	}
}

func TestAnalyze_Percentage(t *testing.T) {
	got := Analyze([]models.LineSnapshot{snap("dk", 40, -110, 0), snap("dk", 42, -110, 600)})
	assert.InDelta(t, 5.0, got.Percentage, 1e-9)
}

func TestAnalyze_MoneylineUsesPrice(t *testing.T) {
	ml := func(price, minute int) models.LineSnapshot {
		return models.LineSnapshot{Sportsbook: "dk", Market: models.MarketMoneyline, OverPrice: price, UnderPrice: 120, ObservedAt: t0.Add(time.Duration(minute) * time.Minute)}
	}
	got := Analyze([]models.LineSnapshot{ml(-140, 0), ml(-155, 600)})
	assert.Equal(t, DirectionDown, got.Direction)
	assert.InDelta(t, 15, got.Magnitude, 1e-9)
}

func TestAnalyze_SteamMove(t *testing.T) {
	within := []models.LineSnapshot{
		snap("dk", 47.5, -110, 2),
		snap("fd", 48.0, -110, 6),
		snap("dk", 48.5, -110, 14),
	}
	got := Analyze(within)
	assert.True(t, got.SteamMove)
	if assert.NotNil(t, got.SteamWindowEnd) {
		assert.Equal(t, t0.Add(14*time.Minute), *got.SteamWindowEnd)
	}

	spread := []models.LineSnapshot{
		snap("dk", 47.5, -110, 0),
		snap("fd", 48.0, -110, 20),
		snap("dk", 48.5, -110, 40),
	}
	assert.False(t, Analyze(spread).SteamMove)

	oneBook := []models.LineSnapshot{
		snap("dk", 47.5, -110, 0),
		snap("dk", 48.0, -110, 3),
		snap("dk", 48.5, -110, 6),
	}
	assert.False(t, Analyze(oneBook).SteamMove, "a single book cannot steam")

	edge := []models.LineSnapshot{
		snap("dk", 47.5, -110, 0),
		snap("fd", 48.0, -110, 5),
		snap("dk", 48.5, -110, 15),
	}
	assert.False(t, Analyze(edge).SteamMove, "window excludes observations exactly 15 minutes back")
}

func TestAnalyze_SharpAction(t *testing.T) {
	// line climbs while the over gets more expensive, twice
	sharp := []models.LineSnapshot{
		snap("dk", 47.5, -110, 0),
		snap("dk", 48.0, -115, 60),
		snap("dk", 48.0, -115, 120),
		snap("dk", 48.5, -120, 180),
	}
	assert.True(t, Analyze(sharp).SharpAction)

	// line climbs with the over getting cheaper: public money, not sharp
	public := []models.LineSnapshot{
		snap("dk", 47.5, -120, 0),
		snap("dk", 48.0, -115, 60),
		snap("dk", 48.5, -110, 120),
	}
	assert.False(t, Analyze(public).SharpAction)

	// reverse moves older than the last five transitions are ignored
	old := []models.LineSnapshot{
		snap("dk", 47.5, -110, 0),
		snap("dk", 48.0, -115, 60),
		snap("dk", 48.5, -120, 120),
	}
	for i := 0; i < 5; i++ {
		old = append(old, snap("dk", 48.5, -120, 180+i*60))
	}
	assert.False(t, Analyze(old).SharpAction)
}
