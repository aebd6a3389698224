package s4_setup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S4B output, keyed by (symbol, week)
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.SetupRepository = (*Repository)(nil)

const setupColumns = `
	symbol, week, setup_type, support,
	entry_low, entry_high, stop, stop_method, target1, target2, rr,
	swing_low, stop_distance_pct,
	confidence, quality_composite, calculated_at
`

// GetByWeek retrieves all setups for a week ranked by quality
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) ([]contracts.TradeSetup, error) {
	query := `SELECT ` + setupColumns + ` FROM trade_setups
		WHERE week = $1 ORDER BY quality_composite DESC, symbol`

	rows, err := r.db.Query(ctx, query, week)
	if err != nil {
		return nil, fmt.Errorf("query trade setups: %w", err)
	}
	defer rows.Close()

	setups := make([]contracts.TradeSetup, 0)
	for rows.Next() {
		var s contracts.TradeSetup
		if err := scanSetup(rows.Scan, &s); err != nil {
			return nil, fmt.Errorf("scan trade setup: %w", err)
		}
		setups = append(setups, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate trade setups: %w", rows.Err())
	}
	return setups, nil
}

// GetBySymbolAndWeek retrieves one symbol's setup for a week
func (r *Repository) GetBySymbolAndWeek(ctx context.Context, symbol string, week time.Time) (*contracts.TradeSetup, error) {
	query := `SELECT ` + setupColumns + ` FROM trade_setups
		WHERE symbol = $1 AND week = $2`

	var s contracts.TradeSetup
	row := r.db.QueryRow(ctx, query, symbol, week)
	if err := scanSetup(row.Scan, &s); err != nil {
		return nil, fmt.Errorf("get trade setup %s: %w", symbol, err)
	}
	return &s, nil
}

// Upsert writes one setup keyed by (symbol, week)
func (r *Repository) Upsert(ctx context.Context, setup *contracts.TradeSetup) error {
	query := `
		INSERT INTO trade_setups (` + setupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (symbol, week) DO UPDATE SET
			setup_type = EXCLUDED.setup_type,
			support = EXCLUDED.support,
			entry_low = EXCLUDED.entry_low,
			entry_high = EXCLUDED.entry_high,
			stop = EXCLUDED.stop,
			stop_method = EXCLUDED.stop_method,
			target1 = EXCLUDED.target1,
			target2 = EXCLUDED.target2,
			rr = EXCLUDED.rr,
			swing_low = EXCLUDED.swing_low,
			stop_distance_pct = EXCLUDED.stop_distance_pct,
			confidence = EXCLUDED.confidence,
			quality_composite = EXCLUDED.quality_composite,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		setup.Symbol, setup.Week, setup.SetupType, setup.Support,
		setup.EntryLow, setup.EntryHigh, setup.Stop, setup.StopMethod, setup.Target1, setup.Target2, setup.RR,
		setup.SwingLow, setup.StopDistancePct,
		setup.Confidence, setup.QualityComposite, setup.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert trade setup %s: %w", setup.Symbol, err)
	}
	return nil
}

func scanSetup(scan func(...interface{}) error, s *contracts.TradeSetup) error {
	return scan(
		&s.Symbol, &s.Week, &s.SetupType, &s.Support,
		&s.EntryLow, &s.EntryHigh, &s.Stop, &s.StopMethod, &s.Target1, &s.Target2, &s.RR,
		&s.SwingLow, &s.StopDistancePct,
		&s.Confidence, &s.QualityComposite, &s.CalculatedAt,
	)
}
