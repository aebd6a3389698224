package regime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists the weekly regime, keyed by week
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.RegimeRepository = (*Repository)(nil)

// GetByWeek retrieves the regime for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) (*contracts.Regime, error) {
	query := `
		SELECT week, state, composite, confidence, subscores, multiplier, thresholds, calculated_at
		FROM regimes WHERE week = $1
	`
	return r.scanRegime(r.db.QueryRow(ctx, query, week))
}

// GetLatest retrieves the most recent regime
func (r *Repository) GetLatest(ctx context.Context) (*contracts.Regime, error) {
	query := `
		SELECT week, state, composite, confidence, subscores, multiplier, thresholds, calculated_at
		FROM regimes ORDER BY week DESC LIMIT 1
	`
	return r.scanRegime(r.db.QueryRow(ctx, query))
}

// Upsert writes the regime keyed by week
func (r *Repository) Upsert(ctx context.Context, regime *contracts.Regime) error {
	subscoresJSON, err := json.Marshal(regime.Subscores)
	if err != nil {
		return fmt.Errorf("marshal subscores: %w", err)
	}
	thresholdsJSON, err := json.Marshal(regime.Thresholds)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}

	query := `
		INSERT INTO regimes (week, state, composite, confidence, subscores, multiplier, thresholds, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (week) DO UPDATE SET
			state = EXCLUDED.state,
			composite = EXCLUDED.composite,
			confidence = EXCLUDED.confidence,
			subscores = EXCLUDED.subscores,
			multiplier = EXCLUDED.multiplier,
			thresholds = EXCLUDED.thresholds,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err = r.db.Exec(ctx, query,
		regime.Week, regime.State, regime.Composite, regime.Confidence,
		subscoresJSON, regime.Multiplier, thresholdsJSON, regime.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert regime: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanRegime(row rowScanner) (*contracts.Regime, error) {
	var regime contracts.Regime
	var subscoresJSON, thresholdsJSON []byte

	err := row.Scan(
		&regime.Week, &regime.State, &regime.Composite, &regime.Confidence,
		&subscoresJSON, &regime.Multiplier, &thresholdsJSON, &regime.CalculatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query regime: %w", err)
	}

	if err := json.Unmarshal(subscoresJSON, &regime.Subscores); err != nil {
		return nil, fmt.Errorf("unmarshal subscores: %w", err)
	}
	if err := json.Unmarshal(thresholdsJSON, &regime.Thresholds); err != nil {
		return nil, fmt.Errorf("unmarshal thresholds: %w", err)
	}
	return &regime, nil
}
