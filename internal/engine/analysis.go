package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/arbitrage"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/movement"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/predictor"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// ArbitrageResult is the outcome of an arbitrage scan
type ArbitrageResult struct {
	Sport         string                  `json:"sport"`
	MinProfit     float64                 `json:"min_profit"`
	Opportunities []arbitrage.Opportunity `json:"opportunities"`
	Count         int                     `json:"count"`
	Cached        bool                    `json:"cached"`
}

// Arbitrage scans a sport's props for two-way arbitrage at or above
// minProfit percent; 0 lists every arbitrage. Opportunities from fresh
// props are archived best-effort.
func (e *Engine) Arbitrage(ctx context.Context, sport string, minProfit float64) (ArbitrageResult, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	res := ArbitrageResult{Sport: sport, MinProfit: minProfit, Opportunities: []arbitrage.Opportunity{}}

	props, hit, err := e.allProps(ctx, sport)
	if err != nil {
		return res, err
	}

	opps := arbitrage.ScanProps(props, minProfit)
	if len(opps) > 0 {
		res.Opportunities = opps
		if !hit {
			if err := e.archive.WriteOpportunities(ctx, sport, opps); err != nil {
				e.log.Warn().Err(err).Str("sport", sport).Int("count", len(opps)).Msg("arbitrage archive failed")
			}
		}
	}
	res.Count = len(res.Opportunities)
	res.Cached = hit
	return res, nil
}

// ValueResult lists predictions for a sport's props
type ValueResult struct {
	Sport       string                 `json:"sport"`
	MinValue    float64                `json:"min_value"`
	Predictions []predictor.Prediction `json:"predictions"`
	Count       int                    `json:"count"`
}

// ValueProps predicts every prop line in the sport and returns those with
// a value score of at least minValue, best first.
func (e *Engine) ValueProps(ctx context.Context, sport string, minValue float64) (ValueResult, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	res := ValueResult{Sport: sport, MinValue: minValue, Predictions: []predictor.Prediction{}}

	props, _, err := e.allProps(ctx, sport)
	if err != nil {
		return res, err
	}
	preds, err := e.predictor.FindBestValue(ctx, predictionRequests(props), minValue)
	if err != nil {
		return res, err
	}
	if preds != nil {
		res.Predictions = preds
	}
	res.Count = len(res.Predictions)
	return res, nil
}

// FeaturedProps returns the handful of high-confidence value props
func (e *Engine) FeaturedProps(ctx context.Context, sport string) (ValueResult, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	res := ValueResult{Sport: sport, MinValue: predictor.FeaturedMinValue, Predictions: []predictor.Prediction{}}

	props, _, err := e.allProps(ctx, sport)
	if err != nil {
		return res, err
	}
	preds, err := e.predictor.Featured(ctx, predictionRequests(props))
	if err != nil {
		return res, err
	}
	res.Predictions = preds
	res.Count = len(preds)
	return res, nil
}

// predictionRequests collapses per-book props into one request per player,
// prop type and line, carrying the best price on each side.
func predictionRequests(props []models.PlayerProp) []predictor.Request {
	byLine := make(map[string]*predictor.Request)
	var order []string
	for _, p := range props {
		key := strings.ToLower(p.PlayerName) + "|" + p.PropType + "|" + strconv.FormatFloat(p.Line, 'f', -1, 64)
		req, ok := byLine[key]
		if !ok {
			req = &predictor.Request{
				PlayerID:   p.PlayerName,
				PlayerName: p.PlayerName,
				PropType:   p.PropType,
				Line:       p.Line,
				OverPrice:  p.OverOdds,
				UnderPrice: p.UnderOdds,
			}
			byLine[key] = req
			order = append(order, key)
			continue
		}
		req.OverPrice = max(req.OverPrice, p.OverOdds)
		req.UnderPrice = max(req.UnderPrice, p.UnderOdds)
	}

	sort.Strings(order)
	reqs := make([]predictor.Request, 0, len(order))
	for _, key := range order {
		reqs = append(reqs, *byLine[key])
	}
	return reqs
}

// LineInput is an explicit observation recorded through the API
type LineInput struct {
	Sportsbook string     `json:"sportsbook"`
	Line       *float64   `json:"line,omitempty"`
	OverPrice  int        `json:"over_price"`
	UnderPrice int        `json:"under_price"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// RecordLine appends one observation to the entity's market log
func (e *Engine) RecordLine(ctx context.Context, entityID string, market models.MarketKey, in LineInput) (movement.LineHistory, error) {
	key, err := lineKey(entityID, market)
	if err != nil {
		return movement.LineHistory{}, err
	}

	snap := models.LineSnapshot{
		Sportsbook: in.Sportsbook,
		Market:     market,
		Line:       in.Line,
		OverPrice:  in.OverPrice,
		UnderPrice: in.UnderPrice,
	}
	if in.ObservedAt != nil {
		snap.ObservedAt = *in.ObservedAt
	}
	if err := snap.Validate(); err != nil {
		return movement.LineHistory{}, err
	}

	if err := e.tracker.Record(ctx, key, snap); err != nil {
		return movement.LineHistory{}, err
	}
	h, _, err := e.tracker.History(ctx, key)
	return h, err
}

// LineHistory returns the tracked history of one entity's market. ok is
// false when nothing has been recorded (or the log expired).
func (e *Engine) LineHistory(ctx context.Context, entityID string, market models.MarketKey) (movement.LineHistory, bool, error) {
	key, err := lineKey(entityID, market)
	if err != nil {
		return movement.LineHistory{}, false, err
	}
	return e.tracker.History(ctx, key)
}

func lineKey(entityID string, market models.MarketKey) (snapshots.Key, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return snapshots.Key{}, fmt.Errorf("%w: entity id is required", ErrInvalidMarket)
	}
	if !market.Valid() {
		return snapshots.Key{}, fmt.Errorf("%w: %q", ErrInvalidMarket, market)
	}
	return snapshots.Key{EntityID: entityID, Market: market}, nil
}
