package s5_risk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S5 output and the rolling system stats
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.SizingRepository = (*Repository)(nil)

const sizingColumns = `
	symbol, week, stop_method, risk_per_share,
	base_shares, vol_adj, kelly_frac, regime_mult, final_shares,
	final_risk, position_value, position_pct, capped_by_value,
	qualifies, reason, calculated_at
`

// GetByWeek retrieves all position sizes for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) ([]contracts.PositionSize, error) {
	query := `SELECT ` + sizingColumns + ` FROM position_sizes
		WHERE week = $1 ORDER BY position_value DESC, symbol`
	return r.querySizes(ctx, query, week)
}

// GetQualified retrieves sizes with at least one tradable share
func (r *Repository) GetQualified(ctx context.Context, week time.Time) ([]contracts.PositionSize, error) {
	query := `SELECT ` + sizingColumns + ` FROM position_sizes
		WHERE week = $1 AND qualifies = TRUE ORDER BY position_value DESC, symbol`
	return r.querySizes(ctx, query, week)
}

// Upsert writes one size keyed by (symbol, week)
func (r *Repository) Upsert(ctx context.Context, size *contracts.PositionSize) error {
	query := `
		INSERT INTO position_sizes (` + sizingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (symbol, week) DO UPDATE SET
			stop_method = EXCLUDED.stop_method,
			risk_per_share = EXCLUDED.risk_per_share,
			base_shares = EXCLUDED.base_shares,
			vol_adj = EXCLUDED.vol_adj,
			kelly_frac = EXCLUDED.kelly_frac,
			regime_mult = EXCLUDED.regime_mult,
			final_shares = EXCLUDED.final_shares,
			final_risk = EXCLUDED.final_risk,
			position_value = EXCLUDED.position_value,
			position_pct = EXCLUDED.position_pct,
			capped_by_value = EXCLUDED.capped_by_value,
			qualifies = EXCLUDED.qualifies,
			reason = EXCLUDED.reason,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		size.Symbol, size.Week, size.StopMethod, size.RiskPerShare,
		size.BaseShares, size.VolAdj, size.KellyFrac, size.RegimeMult, size.FinalShares,
		size.FinalRisk, size.PositionValue, size.PositionPct, size.CappedByValue,
		size.Qualifies, size.Reason, size.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert position size %s: %w", size.Symbol, err)
	}
	return nil
}

// GetSystemStats reads the rolling outcome snapshot; nil when no
// trades have closed yet
func (r *Repository) GetSystemStats(ctx context.Context) (*contracts.SystemStats, error) {
	query := `SELECT win_rate, avg_win, avg_loss, sample_size, as_of
		FROM system_stats WHERE id = 1`

	var s contracts.SystemStats
	err := r.db.QueryRow(ctx, query).Scan(&s.WinRate, &s.AvgWin, &s.AvgLoss, &s.SampleSize, &s.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get system stats: %w", err)
	}
	return &s, nil
}

// UpsertSystemStats replaces the single snapshot row
func (r *Repository) UpsertSystemStats(ctx context.Context, stats *contracts.SystemStats) error {
	query := `
		INSERT INTO system_stats (id, win_rate, avg_win, avg_loss, sample_size, as_of)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			win_rate = EXCLUDED.win_rate,
			avg_win = EXCLUDED.avg_win,
			avg_loss = EXCLUDED.avg_loss,
			sample_size = EXCLUDED.sample_size,
			as_of = EXCLUDED.as_of
	`

	_, err := r.db.Exec(ctx, query,
		stats.WinRate, stats.AvgWin, stats.AvgLoss, stats.SampleSize, stats.AsOf)
	if err != nil {
		return fmt.Errorf("upsert system stats: %w", err)
	}
	return nil
}

func (r *Repository) querySizes(ctx context.Context, query string, args ...interface{}) ([]contracts.PositionSize, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query position sizes: %w", err)
	}
	defer rows.Close()

	sizes := make([]contracts.PositionSize, 0)
	for rows.Next() {
		var s contracts.PositionSize
		err := rows.Scan(
			&s.Symbol, &s.Week, &s.StopMethod, &s.RiskPerShare,
			&s.BaseShares, &s.VolAdj, &s.KellyFrac, &s.RegimeMult, &s.FinalShares,
			&s.FinalRisk, &s.PositionValue, &s.PositionPct, &s.CappedByValue,
			&s.Qualifies, &s.Reason, &s.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position size: %w", err)
		}
		sizes = append(sizes, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate position sizes: %w", rows.Err())
	}
	return sizes, nil
}
