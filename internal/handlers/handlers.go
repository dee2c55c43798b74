package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/arbitrage"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/engine"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/hub"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/parlay"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/predictor"
	"github.com/XavierBriggs/fortuna/services/line-engine/internal/providers/oddsapi"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/oddsmath"
)

const defaultSport = "nfl"

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	engine *engine.Engine
	hub    *hub.Hub
	redis  Pinger
	log    zerolog.Logger
}

// NewHandler creates a handler. hub and redis may be nil.
func NewHandler(e *engine.Engine, h *hub.Hub, redis Pinger, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: e,
		hub:    h,
		redis:  redis,
		log:    logger.With().Str("component", "handlers").Logger(),
	}
}

// Routes returns the /api/v1 router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/odds", h.GetOdds)

	r.Get("/props", h.GetProps)
	r.Get("/props/arbitrage", h.GetArbitrage)
	r.Get("/props/value", h.GetValueProps)
	r.Get("/props/featured", h.GetFeaturedProps)

	r.Post("/parlay/validate", h.ValidateParlay)
	r.Post("/parlay/round-robin", h.RoundRobin)

	r.Get("/lines/{entityID}/{market}", h.GetLineHistory)
	r.Post("/lines/{entityID}/{market}", h.RecordLine)

	r.Get("/cache/stats", h.GetCacheStats)
	return r
}

// HealthCheck returns the health status of the engine
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	cacheStatus := "disabled"
	if h.redis != nil {
		cacheStatus = "healthy"
		if err := h.redis.Ping(ctx); err != nil {
			// the cache fails open, so degraded redis is not unhealthy
			cacheStatus = "degraded"
		}
	}

	body := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "line-engine",
		"cache":     cacheStatus,
	}
	if h.hub != nil {
		body["alert_subscribers"] = h.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, body)
}

// GetOdds returns game lines
// Query params: sport, market
func (h *Handler) GetOdds(w http.ResponseWriter, r *http.Request) {
	sport := queryDefault(r, "sport", defaultSport)
	resp, err := h.engine.Odds(r.Context(), sport, r.URL.Query().Get("market"))
	if err != nil {
		h.log.Warn().Err(err).Str("sport", sport).Msg("odds request failed")
		respondJSON(w, statusFor(err), resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetProps returns player props
// Query params: sport, player
func (h *Handler) GetProps(w http.ResponseWriter, r *http.Request) {
	sport := queryDefault(r, "sport", defaultSport)
	resp, err := h.engine.Props(r.Context(), sport, r.URL.Query().Get("player"))
	if err != nil {
		h.log.Warn().Err(err).Str("sport", sport).Msg("props request failed")
		respondJSON(w, statusFor(err), resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetArbitrage scans props for cross-book arbitrage
// Query params: sport, minProfit
func (h *Handler) GetArbitrage(w http.ResponseWriter, r *http.Request) {
	minProfit, err := parseFloatParam(r, "minProfit", arbitrage.DefaultMinProfit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "minProfit must be a number", err)
		return
	}
	res, err := h.engine.Arbitrage(r.Context(), queryDefault(r, "sport", defaultSport), minProfit)
	if err != nil {
		respondError(w, statusFor(err), "arbitrage scan failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetValueProps returns predicted props at or above a value score
// Query params: sport, minValue
func (h *Handler) GetValueProps(w http.ResponseWriter, r *http.Request) {
	minValue, err := parseFloatParam(r, "minValue", predictor.DefaultMinValue)
	if err != nil {
		respondError(w, http.StatusBadRequest, "minValue must be a number", err)
		return
	}
	res, err := h.engine.ValueProps(r.Context(), queryDefault(r, "sport", defaultSport), minValue)
	if err != nil {
		respondError(w, statusFor(err), "value analysis failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetFeaturedProps returns the top high-confidence value props
// Query params: sport
func (h *Handler) GetFeaturedProps(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.FeaturedProps(r.Context(), queryDefault(r, "sport", defaultSport))
	if err != nil {
		respondError(w, statusFor(err), "featured props failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// ValidateParlay checks, scores and prices a parlay
func (h *Handler) ValidateParlay(w http.ResponseWriter, r *http.Request) {
	var req engine.ParlayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Stake < 0 {
		respondError(w, http.StatusBadRequest, "stake cannot be negative", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.ValidateParlay(req))
}

// RoundRobin prices every parlay of a given size from a leg pool
func (h *Handler) RoundRobin(w http.ResponseWriter, r *http.Request) {
	var req engine.RoundRobinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	report, err := h.engine.RoundRobin(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetLineHistory returns the tracked history of one line
func (h *Handler) GetLineHistory(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	market := models.MarketKey(chi.URLParam(r, "market"))

	hist, ok, err := h.engine.LineHistory(r.Context(), entityID, market)
	if err != nil {
		respondError(w, statusFor(err), "line history unavailable", err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no line history for "+entityID+" "+string(market), nil)
		return
	}
	respondJSON(w, http.StatusOK, hist)
}

// RecordLine appends an observation to a line's history
func (h *Handler) RecordLine(w http.ResponseWriter, r *http.Request) {
	var in engine.LineInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entityID := chi.URLParam(r, "entityID")
	market := models.MarketKey(chi.URLParam(r, "market"))
	hist, err := h.engine.RecordLine(r.Context(), entityID, market, in)
	if err != nil {
		respondError(w, statusFor(err), err.Error(), err)
		return
	}
	respondJSON(w, http.StatusCreated, hist)
}

// GetCacheStats returns cache counters
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.CacheStats())
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidMarket),
		errors.Is(err, engine.ErrMissingSport),
		errors.Is(err, oddsapi.ErrUnsupportedSport),
		errors.Is(err, oddsmath.ErrInvalidOdds),
		errors.Is(err, models.ErrInvalidPrice),
		errors.Is(err, models.ErrMissingLine),
		errors.Is(err, models.ErrUnexpectedLine),
		errors.Is(err, models.ErrUnknownMarket),
		errors.Is(err, parlay.ErrInvalidLeg):
		return http.StatusBadRequest
	case errors.Is(err, oddsapi.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func queryDefault(r *http.Request, key, defaultValue string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return defaultValue
}

func parseFloatParam(r *http.Request, key string, defaultValue float64) (float64, error) {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(valueStr, 64)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Err(err).Msg("error encoding response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg(message)
	}
	errResp := models.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, errResp)
}
