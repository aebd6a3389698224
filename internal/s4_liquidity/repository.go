package s4_liquidity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S4A output, keyed by (symbol, week)
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.LiquidityRepository = (*Repository)(nil)

const liquidityColumns = `
	symbol, week,
	turnover_20d_cr, turnover_60d_cr, peak_30d_cr,
	circuit_hits_30d, avg_gap_pct, max_gap_pct, vol_stability,
	score, qualifies, calculated_at
`

// GetByWeek retrieves all liquidity scores for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) ([]contracts.LiquidityScore, error) {
	query := `SELECT ` + liquidityColumns + ` FROM liquidity_scores
		WHERE week = $1 ORDER BY score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// GetQualified retrieves scores passing the tradability gate
func (r *Repository) GetQualified(ctx context.Context, week time.Time) ([]contracts.LiquidityScore, error) {
	query := `SELECT ` + liquidityColumns + ` FROM liquidity_scores
		WHERE week = $1 AND qualifies = TRUE ORDER BY score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// Upsert writes one score keyed by (symbol, week)
func (r *Repository) Upsert(ctx context.Context, score *contracts.LiquidityScore) error {
	query := `
		INSERT INTO liquidity_scores (` + liquidityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (symbol, week) DO UPDATE SET
			turnover_20d_cr = EXCLUDED.turnover_20d_cr,
			turnover_60d_cr = EXCLUDED.turnover_60d_cr,
			peak_30d_cr = EXCLUDED.peak_30d_cr,
			circuit_hits_30d = EXCLUDED.circuit_hits_30d,
			avg_gap_pct = EXCLUDED.avg_gap_pct,
			max_gap_pct = EXCLUDED.max_gap_pct,
			vol_stability = EXCLUDED.vol_stability,
			score = EXCLUDED.score,
			qualifies = EXCLUDED.qualifies,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		score.Symbol, score.Week,
		score.Turnover20DCr, score.Turnover60DCr, score.Peak30DCr,
		score.CircuitHits30D, score.AvgGapPct, score.MaxGapPct, score.VolStability,
		score.Score, score.Qualifies, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert liquidity score %s: %w", score.Symbol, err)
	}
	return nil
}

func (r *Repository) queryScores(ctx context.Context, query string, args ...interface{}) ([]contracts.LiquidityScore, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query liquidity scores: %w", err)
	}
	defer rows.Close()

	scores := make([]contracts.LiquidityScore, 0)
	for rows.Next() {
		var s contracts.LiquidityScore
		err := rows.Scan(
			&s.Symbol, &s.Week,
			&s.Turnover20DCr, &s.Turnover60DCr, &s.Peak30DCr,
			&s.CircuitHits30D, &s.AvgGapPct, &s.MaxGapPct, &s.VolStability,
			&s.Score, &s.Qualifies, &s.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan liquidity score: %w", err)
		}
		scores = append(scores, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate liquidity scores: %w", rows.Err())
	}
	return scores, nil
}
