package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/arbitrage"
)

// Writer persists detected arbitrage opportunities
type Writer interface {
	WriteOpportunities(ctx context.Context, sport string, opps []arbitrage.Opportunity) error
}

// Schema creates the archive tables if they are missing
const Schema = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id              UUID PRIMARY KEY,
	sport           TEXT NOT NULL,
	game_id         TEXT,
	player_name     TEXT,
	prop_type       TEXT,
	line            DOUBLE PRECISION,
	profit_pct      DOUBLE PRECISION NOT NULL,
	implied_sum     DOUBLE PRECISION NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS arbitrage_legs (
	id              BIGSERIAL PRIMARY KEY,
	opportunity_id  UUID NOT NULL REFERENCES arbitrage_opportunities(id) ON DELETE CASCADE,
	sportsbook      TEXT NOT NULL,
	side            TEXT NOT NULL,
	price           INTEGER NOT NULL,
	stake_fraction  DOUBLE PRECISION NOT NULL
);
`

// PostgresWriter writes opportunities to Postgres
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter creates a new Postgres writer
func NewPostgresWriter(db *sql.DB) *PostgresWriter {
	return &PostgresWriter{db: db}
}

// EnsureSchema creates the archive tables
func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// WriteOpportunity writes an opportunity and its legs in one transaction
func (w *PostgresWriter) WriteOpportunity(ctx context.Context, sport string, opp arbitrage.Opportunity) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO arbitrage_opportunities (
			id, sport, game_id, player_name, prop_type,
			line, profit_pct, implied_sum, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`,
		opp.ID,
		sport,
		opp.GameID,
		opp.PlayerName,
		opp.PropType,
		opp.Line,
		opp.ProfitPercent,
		opp.ImpliedSum,
		opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert opportunity: %w", err)
	}

	for _, leg := range []arbitrage.Leg{opp.Over, opp.Under} {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO arbitrage_legs (
				opportunity_id, sportsbook, side, price, stake_fraction
			) VALUES ($1, $2, $3, $4, $5)
		`,
			opp.ID,
			leg.Sportsbook,
			string(leg.Side),
			leg.Price,
			leg.StakeFraction,
		)
		if err != nil {
			return fmt.Errorf("failed to insert opportunity leg: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WriteOpportunities writes each opportunity, stopping at the first failure
func (w *PostgresWriter) WriteOpportunities(ctx context.Context, sport string, opps []arbitrage.Opportunity) error {
	for _, opp := range opps {
		if err := w.WriteOpportunity(ctx, sport, opp); err != nil {
			return fmt.Errorf("failed to write opportunity %s: %w", opp.ID, err)
		}
	}
	return nil
}

// NopWriter discards opportunities; used when no database is configured
type NopWriter struct{}

func (NopWriter) WriteOpportunities(context.Context, string, []arbitrage.Opportunity) error {
	return nil
}

// MemoryWriter keeps opportunities in memory
type MemoryWriter struct {
	mu   sync.Mutex
	opps map[string][]arbitrage.Opportunity
}

// NewMemoryWriter creates an empty in-memory archive
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{opps: make(map[string][]arbitrage.Opportunity)}
}

func (w *MemoryWriter) WriteOpportunities(_ context.Context, sport string, opps []arbitrage.Opportunity) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.opps[sport] = append(w.opps[sport], opps...)
	return nil
}

// Opportunities returns everything written for sport
func (w *MemoryWriter) Opportunities(sport string) []arbitrage.Opportunity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]arbitrage.Opportunity(nil), w.opps[sport]...)
}
