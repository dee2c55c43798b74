// Package predictor estimates over/under probabilities for player props and
// ranks them by expected value.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/movement"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

const (
	// BaselineHitRate is used when a player has no history for the prop
	BaselineHitRate = 0.5

	MinProbability = 0.10
	MaxProbability = 0.90

	// DefaultMinValue is the value score a prop must reach to be listed
	// when the caller sets no threshold
	DefaultMinValue = 5

	// FeaturedMinValue is the value score a featured prop must reach
	FeaturedMinValue = 8
	FeaturedLimit    = 5

	batchConcurrency = 8
)

// MovementSource reports how a tracked line has moved
type MovementSource interface {
	Summary(ctx context.Context, key snapshots.Key) (movement.Summary, int, error)
}

// Recommendation is the side a prediction favors
type Recommendation string

const (
	RecommendOver  Recommendation = "over"
	RecommendUnder Recommendation = "under"
	RecommendAvoid Recommendation = "avoid"
)

// Request describes one prop to predict
type Request struct {
	PlayerID    string   `json:"player_id"`
	PlayerName  string   `json:"player_name"`
	PropType    string   `json:"prop_type"`
	Line        float64  `json:"line"`
	OverPrice   int      `json:"over_price"`
	UnderPrice  int      `json:"under_price"`
	GamesPlayed int      `json:"games_played"`
	HitRate     *float64 `json:"hit_rate,omitempty"` // share of games over this line, 0..1
}

// Factors are the inputs that produced a prediction
type Factors struct {
	HistoricalHitRate float64 `json:"historical_hit_rate"`
	RecentForm        float64 `json:"recent_form"`
	MatchupRating     float64 `json:"matchup_rating"`
	WeatherImpact     float64 `json:"weather_impact"`
	LineMovement      float64 `json:"line_movement"`
}

// Prediction is the modeled view of one prop
type Prediction struct {
	PlayerID         string           `json:"player_id"`
	PlayerName       string           `json:"player_name"`
	PropType         string           `json:"prop_type"`
	Line             float64          `json:"line"`
	OverPrice        int              `json:"over_price"`
	UnderPrice       int              `json:"under_price"`
	OverProbability  float64          `json:"over_probability"`
	UnderProbability float64          `json:"under_probability"`
	OverEV           float64          `json:"over_ev"`
	UnderEV          float64          `json:"under_ev"`
	ExpectedValue    float64          `json:"expected_value"` // best side, cents per dollar
	OverEdge         float64          `json:"over_edge"`
	UnderEdge        float64          `json:"under_edge"`
	FairOverPrice    int              `json:"fair_over_price"`
	FairUnderPrice   int              `json:"fair_under_price"`
	Market           MarketView       `json:"market"`
	Recommendation   Recommendation   `json:"recommendation"`
	ValueScore       float64          `json:"value_score"`
	ValueRating      string           `json:"value_rating"`
	Confidence       int              `json:"confidence"`
	ConfidenceLevel  string           `json:"confidence_level"`
	Factors          Factors          `json:"factors"`
	Movement         movement.Summary `json:"movement"`
}

// MarketView is what the quoted prices alone say about the prop
type MarketView struct {
	OverImplied  float64 `json:"over_implied"`
	UnderImplied float64 `json:"under_implied"`
	NoVigOver    float64 `json:"no_vig_over"`
	NoVigUnder   float64 `json:"no_vig_under"`
	VigPercent   float64 `json:"vig_percent"`
}

// Predictor combines historical, feature and movement signals
type Predictor struct {
	features FeatureProvider
	movement MovementSource
	cache    *cache.Cache
	log      zerolog.Logger
}

// New creates a predictor. A nil features provider scores every signal 0;
// a nil movement source contributes no movement signal.
func New(features FeatureProvider, moves MovementSource, c *cache.Cache, log zerolog.Logger) *Predictor {
	if features == nil {
		features = NeutralFeatures{}
	}
	return &Predictor{
		features: features,
		movement: moves,
		cache:    c,
		log:      log.With().Str("component", "predictor").Logger(),
	}
}

// Predict returns the prediction for one prop, cached per prop and prices
func (p *Predictor) Predict(ctx context.Context, req Request) (Prediction, error) {
	if !oddsmath.ValidAmerican(req.OverPrice) || !oddsmath.ValidAmerican(req.UnderPrice) {
		return Prediction{}, fmt.Errorf("predict %s %s: %w", req.PlayerName, req.PropType, oddsmath.ErrInvalidOdds)
	}
	if req.PlayerID == "" {
		req.PlayerID = req.PlayerName
	}

	key := p.cache.PredictionKey(req.PlayerID, req.PropType,
		strconv.FormatFloat(req.Line, 'f', -1, 64), strconv.Itoa(req.OverPrice), strconv.Itoa(req.UnderPrice))

	pred, _, err := cache.Fetch(ctx, p.cache, key, cache.PredictionsTTL, func(ctx context.Context) (Prediction, error) {
		return p.compute(ctx, req)
	})
	return pred, err
}

func (p *Predictor) compute(ctx context.Context, req Request) (Prediction, error) {
	factors := Factors{HistoricalHitRate: baseline(req)}

	factors.RecentForm = p.signal(ctx, "recent_form", req, p.features.RecentForm)
	factors.MatchupRating = p.signal(ctx, "matchup", req, p.features.MatchupRating)
	if weatherSensitive(req.PropType) {
		factors.WeatherImpact = p.signal(ctx, "weather", req, p.features.WeatherImpact)
	}

	summary, snapshotCount := movement.Analyze(nil), 0
	if p.movement != nil {
		key := snapshots.Key{EntityID: snapshots.PropEntityID(req.PlayerID, req.PropType), Market: models.MarketPlayerProp}
		s, n, err := p.movement.Summary(ctx, key)
		if err != nil {
			p.log.Warn().Err(err).Str("player", req.PlayerName).Msg("line movement unavailable")
		} else {
			summary, snapshotCount = s, n
		}
	}
	factors.LineMovement = movementSignal(summary)

	adjustment := (factors.RecentForm + factors.MatchupRating + factors.WeatherImpact + factors.LineMovement) / 40
	over := max(MinProbability, min(MaxProbability, factors.HistoricalHitRate+adjustment))
	under := 1 - over

	overEV, err := oddsmath.ExpectedValue(over, req.OverPrice)
	if err != nil {
		return Prediction{}, err
	}
	underEV, err := oddsmath.ExpectedValue(under, req.UnderPrice)
	if err != nil {
		return Prediction{}, err
	}

	pred := Prediction{
		PlayerID:         req.PlayerID,
		PlayerName:       req.PlayerName,
		PropType:         req.PropType,
		Line:             req.Line,
		OverPrice:        req.OverPrice,
		UnderPrice:       req.UnderPrice,
		OverProbability:  over,
		UnderProbability: under,
		OverEV:           overEV,
		UnderEV:          underEV,
		ExpectedValue:    max(overEV, underEV),
		Factors:          factors,
		Movement:         summary,
	}

	switch {
	case overEV <= 0 && underEV <= 0:
		pred.Recommendation = RecommendAvoid
	case overEV >= underEV:
		pred.Recommendation = RecommendOver
	default:
		pred.Recommendation = RecommendUnder
	}

	if err := price(&pred); err != nil {
		return Prediction{}, err
	}

	pred.ValueScore = pred.ExpectedValue
	pred.ValueRating = ValueRating(pred.ValueScore)
	pred.Confidence = confidence(req.GamesPlayed, snapshotCount, summary.SharpAction)
	pred.ConfidenceLevel = ConfidenceLevel(pred.Confidence)

	return pred, nil
}

// price fills the market view, the model's edge over each price and the
// model's fair odds
func price(pred *Prediction) error {
	overImplied, err := oddsmath.ImpliedProbability(pred.OverPrice)
	if err != nil {
		return err
	}
	underImplied, err := oddsmath.ImpliedProbability(pred.UnderPrice)
	if err != nil {
		return err
	}

	m := MarketView{OverImplied: overImplied, UnderImplied: underImplied}
	if m.VigPercent, err = oddsmath.VigPercentage([]float64{overImplied, underImplied}); err != nil {
		return err
	}
	m.NoVigOver, m.NoVigUnder, err = oddsmath.NoVigProbabilities(overImplied, underImplied)
	if errors.Is(err, oddsmath.ErrNoVig) {
		// best prices from different books can sum to 100% or less
		total := overImplied + underImplied
		m.NoVigOver, m.NoVigUnder = overImplied/total, underImplied/total
	} else if err != nil {
		return err
	}
	pred.Market = m

	if pred.OverEdge, err = oddsmath.Edge(pred.OverProbability, overImplied); err != nil {
		return err
	}
	if pred.UnderEdge, err = oddsmath.Edge(pred.UnderProbability, underImplied); err != nil {
		return err
	}
	if pred.FairOverPrice, err = oddsmath.ProbabilityToAmerican(pred.OverProbability); err != nil {
		return err
	}
	pred.FairUnderPrice, err = oddsmath.ProbabilityToAmerican(pred.UnderProbability)
	return err
}

func (p *Predictor) signal(ctx context.Context, name string, req Request, fn func(context.Context, string, string) (float64, error)) float64 {
	v, err := fn(ctx, req.PlayerID, req.PropType)
	if err != nil {
		p.log.Warn().Err(err).Str("signal", name).Str("player", req.PlayerName).Msg("feature unavailable, scoring 0")
		return 0
	}
	return clampSignal(v)
}

// baseline is the player's hit rate for the line, held to [0.3, 0.7]
// so a short history cannot dominate
func baseline(req Request) float64 {
	if req.HitRate == nil || req.GamesPlayed == 0 {
		return BaselineHitRate
	}
	return max(0.3, min(0.7, *req.HitRate))
}

func movementSignal(s movement.Summary) float64 {
	switch {
	case s.SharpAction:
		return 5
	case s.SteamMove:
		return 3
	case s.Direction == movement.DirectionUp:
		return 2
	case s.Direction == movement.DirectionDown:
		return -2
	}
	return 0
}

func confidence(gamesPlayed, snapshotCount int, sharp bool) int {
	c := 50
	if gamesPlayed > 10 {
		c += 10
	}
	if gamesPlayed > 16 {
		c += 10
	}
	if snapshotCount > 5 {
		c += 10
	}
	if sharp {
		c += 15
	}
	return min(95, c)
}

// ValueRating buckets a value score
func ValueRating(score float64) string {
	switch {
	case score >= 20:
		return "excellent"
	case score >= 10:
		return "good"
	case score >= 5:
		return "fair"
	}
	return "poor"
}

// ConfidenceLevel buckets a confidence score
func ConfidenceLevel(c int) string {
	switch {
	case c >= 75:
		return "high"
	case c >= 50:
		return "medium"
	}
	return "low"
}

// FindBestValue predicts every request and returns those scoring at least
// minValue, best first. Individual failures are logged and skipped.
func (p *Predictor) FindBestValue(ctx context.Context, reqs []Request, minValue float64) ([]Prediction, error) {
	var (
		mu  sync.Mutex
		out []Prediction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			pred, err := p.Predict(gctx, req)
			if err != nil {
				p.log.Debug().Err(err).Str("player", req.PlayerName).Msg("prediction skipped")
				return nil
			}
			if pred.ValueScore < minValue {
				return nil
			}
			mu.Lock()
			out = append(out, pred)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ValueScore != out[j].ValueScore {
			return out[i].ValueScore > out[j].ValueScore
		}
		return out[i].PlayerName < out[j].PlayerName
	})
	return out, nil
}

// Featured returns up to five high-confidence props with real value
func (p *Predictor) Featured(ctx context.Context, reqs []Request) ([]Prediction, error) {
	best, err := p.FindBestValue(ctx, reqs, FeaturedMinValue)
	if err != nil {
		return nil, err
	}

	featured := make([]Prediction, 0, FeaturedLimit)
	for _, pred := range best {
		if pred.ConfidenceLevel != "high" || pred.ValueRating == "poor" {
			continue
		}
		featured = append(featured, pred)
		if len(featured) == FeaturedLimit {
			break
		}
	}
	return featured, nil
}
