package models

import (
	"errors"
	"fmt"
	"time"
)

// MarketKey identifies the kind of line being quoted
type MarketKey string

const (
	MarketSpread     MarketKey = "spread"
	MarketMoneyline  MarketKey = "moneyline"
	MarketTotal      MarketKey = "total"
	MarketPlayerProp MarketKey = "player_prop"
)

// Valid reports whether m is a known market
func (m MarketKey) Valid() bool {
	switch m {
	case MarketSpread, MarketMoneyline, MarketTotal, MarketPlayerProp:
		return true
	}
	return false
}

// HasLine reports whether quotes in this market carry a numeric line
func (m MarketKey) HasLine() bool {
	return m != MarketMoneyline
}

// Side is the outcome a price applies to
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// IsPrimary reports whether s is the first side of its two-way market (home or over)
func (s Side) IsPrimary() bool {
	return s == SideHome || s == SideOver
}

var (
	ErrInvalidPrice   = errors.New("price must be at least +100 or at most -100")
	ErrMissingLine    = errors.New("line is required for this market")
	ErrUnexpectedLine = errors.New("moneyline quotes do not carry a line")
	ErrUnknownMarket  = errors.New("unknown market")
)

// OddsQuote is one sportsbook's price for one side of a market
type OddsQuote struct {
	SportsbookID string    `json:"sportsbook_id"`
	MarketKey    MarketKey `json:"market_key"`
	Side         Side      `json:"side"`
	Line         *float64  `json:"line,omitempty"` // spread/total/prop threshold
	Price        int       `json:"price"`          // American odds
	ObservedAt   time.Time `json:"observed_at"`
}

// Validate checks the quote invariants
func (q OddsQuote) Validate() error {
	if !q.MarketKey.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMarket, q.MarketKey)
	}
	if q.Price > -100 && q.Price < 100 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, q.Price)
	}
	if q.MarketKey.HasLine() && q.Line == nil {
		return fmt.Errorf("%w: %s", ErrMissingLine, q.MarketKey)
	}
	if !q.MarketKey.HasLine() && q.Line != nil {
		return ErrUnexpectedLine
	}
	return nil
}

// LineSnapshot is one two-sided observation of a tracked line.
// OverPrice is the over/home side, UnderPrice the under/away side.
type LineSnapshot struct {
	Sportsbook string    `json:"sportsbook"`
	Market     MarketKey `json:"market"`
	Line       *float64  `json:"line,omitempty"`
	OverPrice  int       `json:"over_price"`
	UnderPrice int       `json:"under_price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Validate checks both sides of the snapshot as quotes
func (s LineSnapshot) Validate() error {
	for _, q := range s.Quotes() {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%s side: %w", q.Side, err)
		}
	}
	return nil
}

// Quotes expands the snapshot into its two OddsQuotes
func (s LineSnapshot) Quotes() []OddsQuote {
	primary, secondary := SideOver, SideUnder
	switch s.Market {
	case MarketSpread, MarketMoneyline:
		primary, secondary = SideHome, SideAway
	}
	return []OddsQuote{
		{SportsbookID: s.Sportsbook, MarketKey: s.Market, Side: primary, Line: s.Line, Price: s.OverPrice, ObservedAt: s.ObservedAt},
		{SportsbookID: s.Sportsbook, MarketKey: s.Market, Side: secondary, Line: s.Line, Price: s.UnderPrice, ObservedAt: s.ObservedAt},
	}
}

// Float returns a pointer to v, for optional line fields
func Float(v float64) *float64 {
	return &v
}
