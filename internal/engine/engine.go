// Package engine wires the provider, cache, movement tracker, predictor and
// arbitrage archive into the request-level operations the HTTP layer serves.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/archive"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/cache"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/movement"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/predictor"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/providers/oddsapi"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/snapshots"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

var (
	ErrInvalidMarket = errors.New("invalid market")
	ErrMissingSport  = errors.New("sport is required")
)

// OddsProvider supplies live game lines and player props
type OddsProvider interface {
	FetchGameOdds(ctx context.Context, sport string, markets []string) ([]models.GameOdds, *models.APIUsage, error)
	FetchPlayerProps(ctx context.Context, sport string) ([]models.PlayerProp, *models.APIUsage, error)
}

// Options configures an Engine
type Options struct {
	Kelly           oddsmath.KellyOptions
	DefaultBankroll float64
	Logger          zerolog.Logger
}

// Engine serves odds, props, arbitrage, value and parlay requests
type Engine struct {
	provider  OddsProvider
	cache     *cache.Cache
	tracker   *movement.Tracker
	predictor *predictor.Predictor
	archive   archive.Writer

	kelly    oddsmath.KellyOptions
	bankroll float64
	log      zerolog.Logger
}

// New creates an engine. A nil archive discards detected opportunities.
func New(provider OddsProvider, c *cache.Cache, tracker *movement.Tracker, pred *predictor.Predictor, arch archive.Writer, opts Options) *Engine {
	if arch == nil {
		arch = archive.NopWriter{}
	}
	if opts.Kelly == (oddsmath.KellyOptions{}) {
		opts.Kelly = oddsmath.DefaultKellyOptions()
	}
	return &Engine{
		provider:  provider,
		cache:     c,
		tracker:   tracker,
		predictor: pred,
		archive:   arch,
		kelly:     opts.Kelly,
		bankroll:  opts.DefaultBankroll,
		log:       opts.Logger.With().Str("component", "engine").Logger(),
	}
}

// CacheStats reports cache counters
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

type oddsPayload struct {
	Games []models.GameOdds `json:"games"`
	Usage *models.APIUsage  `json:"usage,omitempty"`
}

type propsPayload struct {
	Props []models.PlayerProp `json:"props"`
	Usage *models.APIUsage    `json:"usage,omitempty"`
}

// Odds returns game lines for a sport. market may be empty (all game
// markets), an engine market (spread, moneyline, total) or a provider key.
// Snapshots are recorded only when the provider is actually called.
func (e *Engine) Odds(ctx context.Context, sport, market string) (models.OddsResponse, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	resp := models.OddsResponse{Sport: sport, Games: []models.GameOdds{}}

	markets, err := parseMarkets(market)
	if err != nil {
		resp.Error = err.Error()
		return resp, err
	}
	if _, err := oddsapi.SportKey(sport); err != nil {
		resp.Error = err.Error()
		return resp, err
	}

	key := e.cache.OddsKey(sport, strings.Join(markets, ","))
	payload, hit, err := cache.Fetch(ctx, e.cache, key, cache.GameOddsTTL, func(ctx context.Context) (oddsPayload, error) {
		games, usage, err := e.provider.FetchGameOdds(ctx, sport, markets)
		if err != nil {
			return oddsPayload{}, err
		}
		e.recordGames(ctx, games)
		return oddsPayload{Games: games, Usage: usage}, nil
	})
	if err != nil {
		e.log.Error().Err(err).Str("sport", sport).Msg("odds fetch failed")
		resp.Error = err.Error()
		return resp, err
	}

	if payload.Games != nil {
		resp.Games = payload.Games
	}
	resp.Success = true
	resp.Count = len(resp.Games)
	resp.APIUsage = payload.Usage
	resp.Cached = hit
	return resp, nil
}

// Props returns player props for a sport, optionally filtered to players
// whose name contains player (case-insensitive).
func (e *Engine) Props(ctx context.Context, sport, player string) (models.PropsResponse, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	player = strings.TrimSpace(player)
	resp := models.PropsResponse{Sport: sport, Player: player, Props: []models.PlayerProp{}}

	props, hit, err := e.allProps(ctx, sport)
	if err != nil {
		resp.Error = err.Error()
		return resp, err
	}

	resp.Props = filterPlayer(props, player)
	resp.Success = true
	resp.Count = len(resp.Props)
	resp.Cached = hit
	return resp, nil
}

func (e *Engine) allProps(ctx context.Context, sport string) ([]models.PlayerProp, bool, error) {
	if sport == "" {
		return nil, false, ErrMissingSport
	}
	if _, err := oddsapi.SportKey(sport); err != nil {
		return nil, false, err
	}

	key := e.cache.PropsKey(sport, "")
	payload, hit, err := cache.Fetch(ctx, e.cache, key, cache.PlayerPropsTTL, func(ctx context.Context) (propsPayload, error) {
		props, usage, err := e.provider.FetchPlayerProps(ctx, sport)
		if err != nil {
			return propsPayload{}, err
		}
		e.recordProps(ctx, props)
		return propsPayload{Props: props, Usage: usage}, nil
	})
	if err != nil {
		e.log.Error().Err(err).Str("sport", sport).Msg("props fetch failed")
		return nil, false, err
	}
	return payload.Props, hit, nil
}

func filterPlayer(props []models.PlayerProp, player string) []models.PlayerProp {
	out := make([]models.PlayerProp, 0, len(props))
	needle := strings.ToLower(player)
	for _, p := range props {
		if needle == "" || strings.Contains(strings.ToLower(p.PlayerName), needle) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) recordGames(ctx context.Context, games []models.GameOdds) {
	batch := make(map[snapshots.Key][]models.LineSnapshot)
	for _, g := range games {
		for market, snaps := range oddsapi.GameSnapshots(g) {
			key := snapshots.Key{EntityID: g.ID, Market: market}
			batch[key] = append(batch[key], snaps...)
		}
	}
	n := e.tracker.RecordAll(ctx, batch)
	e.log.Debug().Int("snapshots", n).Int("games", len(games)).Msg("recorded game lines")
}

func (e *Engine) recordProps(ctx context.Context, props []models.PlayerProp) {
	batch := make(map[snapshots.Key][]models.LineSnapshot)
	for _, p := range props {
		key := snapshots.Key{EntityID: snapshots.PropEntityID(p.PlayerName, p.PropType), Market: models.MarketPlayerProp}
		batch[key] = append(batch[key], p.Snapshot())
	}
	n := e.tracker.RecordAll(ctx, batch)
	e.log.Debug().Int("snapshots", n).Int("props", len(props)).Msg("recorded prop lines")
}

// parseMarkets resolves a market query value to provider market keys
func parseMarkets(market string) ([]string, error) {
	market = strings.ToLower(strings.TrimSpace(market))
	if market == "" || market == "all" {
		return oddsapi.GameMarkets, nil
	}

	var out []string
	for _, m := range strings.Split(market, ",") {
		m = strings.TrimSpace(m)
		if key, ok := oddsapi.ProviderMarket(models.MarketKey(m)); ok {
			out = append(out, key)
			continue
		}
		if _, ok := oddsapi.EngineMarket(m); ok {
			out = append(out, m)
			continue
		}
		return nil, fmt.Errorf("%w: %q", ErrInvalidMarket, m)
	}
	return out, nil
}
