package engine

import (
	"fmt"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/parlay"
	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

// ParlayRequest is a leg set to validate and price
type ParlayRequest struct {
	Legs     []models.ParlayLeg `json:"legs"`
	Stake    float64            `json:"stake"`
	Bankroll float64            `json:"bankroll,omitempty"`
}

// ParlayReport is validation, quality and pricing for one leg set.
// Quality and Evaluation are only set for valid parlays.
type ParlayReport struct {
	Validation parlay.Result      `json:"validation"`
	Quality    *parlay.Quality    `json:"quality,omitempty"`
	Evaluation *parlay.Evaluation `json:"evaluation,omitempty"`
}

// ValidateParlay checks, scores and prices a parlay
func (e *Engine) ValidateParlay(req ParlayRequest) ParlayReport {
	report := ParlayReport{Validation: parlay.Validate(req.Legs)}
	if !report.Validation.Valid {
		return report
	}

	q := parlay.Score(req.Legs)
	report.Quality = &q

	bankroll := req.Bankroll
	if bankroll <= 0 {
		bankroll = e.bankroll
	}
	eval, err := parlay.Evaluate(req.Legs, req.Stake, bankroll, e.kelly)
	if err != nil {
		e.log.Warn().Err(err).Msg("parlay evaluation failed")
		return report
	}
	report.Evaluation = &eval
	return report
}

// RoundRobinRequest asks for every parlay of Size legs from Legs
type RoundRobinRequest struct {
	Legs     []models.ParlayLeg `json:"legs"`
	Size     int                `json:"size"`
	Stake    float64            `json:"stake"` // per parlay
	Bankroll float64            `json:"bankroll,omitempty"`
}

// RoundRobinReport prices each generated parlay
type RoundRobinReport struct {
	Size       int            `json:"size"`
	Count      int            `json:"count"`
	TotalStake float64        `json:"total_stake"`
	Parlays    []ParlayReport `json:"parlays"`
}

// RoundRobin validates the full leg set, then reports every combination
func (e *Engine) RoundRobin(req RoundRobinRequest) (RoundRobinReport, error) {
	if res := parlay.Validate(req.Legs); !res.Valid {
		return RoundRobinReport{}, fmt.Errorf("round robin legs: %w", res.Err)
	}
	combos, err := parlay.RoundRobin(req.Legs, req.Size)
	if err != nil {
		return RoundRobinReport{}, err
	}

	report := RoundRobinReport{
		Size:    req.Size,
		Count:   len(combos),
		Parlays: make([]ParlayReport, 0, len(combos)),
	}
	for _, legs := range combos {
		report.Parlays = append(report.Parlays, e.ValidateParlay(ParlayRequest{Legs: legs, Stake: req.Stake, Bankroll: req.Bankroll}))
		report.TotalStake += req.Stake
	}
	return report, nil
}
