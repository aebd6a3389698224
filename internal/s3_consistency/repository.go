package s3_consistency

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S3 output, keyed by (symbol, week)
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.ConsistencyRepository = (*Repository)(nil)

const consistencyColumns = `
	symbol, week,
	pos_pct, plus3_pct, plus5_pct, neg5_pct,
	avg_return, std_dev, sharpe, sortino, downside_dev,
	best_week, worst_week, max_win_streak, avg_win_streak,
	consistency_score, regime_score, percentile_rank, final_score,
	significance_p, significant,
	weeks_used, filters_passed, qualifies, calculated_at
`

// GetByWeek retrieves all consistency scores for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) ([]contracts.ConsistencyScore, error) {
	query := `SELECT ` + consistencyColumns + ` FROM consistency_scores
		WHERE week = $1 ORDER BY final_score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// GetQualified retrieves scores passing the gate and significance test
func (r *Repository) GetQualified(ctx context.Context, week time.Time) ([]contracts.ConsistencyScore, error) {
	query := `SELECT ` + consistencyColumns + ` FROM consistency_scores
		WHERE week = $1 AND qualifies = TRUE ORDER BY final_score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// Upsert writes one score keyed by (symbol, week)
func (r *Repository) Upsert(ctx context.Context, score *contracts.ConsistencyScore) error {
	query := `
		INSERT INTO consistency_scores (` + consistencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (symbol, week) DO UPDATE SET
			pos_pct = EXCLUDED.pos_pct,
			plus3_pct = EXCLUDED.plus3_pct,
			plus5_pct = EXCLUDED.plus5_pct,
			neg5_pct = EXCLUDED.neg5_pct,
			avg_return = EXCLUDED.avg_return,
			std_dev = EXCLUDED.std_dev,
			sharpe = EXCLUDED.sharpe,
			sortino = EXCLUDED.sortino,
			downside_dev = EXCLUDED.downside_dev,
			best_week = EXCLUDED.best_week,
			worst_week = EXCLUDED.worst_week,
			max_win_streak = EXCLUDED.max_win_streak,
			avg_win_streak = EXCLUDED.avg_win_streak,
			consistency_score = EXCLUDED.consistency_score,
			regime_score = EXCLUDED.regime_score,
			percentile_rank = EXCLUDED.percentile_rank,
			final_score = EXCLUDED.final_score,
			significance_p = EXCLUDED.significance_p,
			significant = EXCLUDED.significant,
			weeks_used = EXCLUDED.weeks_used,
			filters_passed = EXCLUDED.filters_passed,
			qualifies = EXCLUDED.qualifies,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		score.Symbol, score.Week,
		score.PosPct, score.Plus3Pct, score.Plus5Pct, score.Neg5Pct,
		score.AvgReturn, score.StdDev, score.Sharpe, score.Sortino, score.DownsideDev,
		score.BestWeek, score.WorstWeek, score.MaxWinStreak, score.AvgWinStreak,
		score.ConsistencyScore, score.RegimeScore, score.PercentileRank, score.FinalScore,
		score.SignificanceP, score.Significant,
		score.WeeksUsed, score.FiltersPassed, score.Qualifies, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert consistency score %s: %w", score.Symbol, err)
	}
	return nil
}

func (r *Repository) queryScores(ctx context.Context, query string, args ...interface{}) ([]contracts.ConsistencyScore, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query consistency scores: %w", err)
	}
	defer rows.Close()

	scores := make([]contracts.ConsistencyScore, 0)
	for rows.Next() {
		var s contracts.ConsistencyScore
		err := rows.Scan(
			&s.Symbol, &s.Week,
			&s.PosPct, &s.Plus3Pct, &s.Plus5Pct, &s.Neg5Pct,
			&s.AvgReturn, &s.StdDev, &s.Sharpe, &s.Sortino, &s.DownsideDev,
			&s.BestWeek, &s.WorstWeek, &s.MaxWinStreak, &s.AvgWinStreak,
			&s.ConsistencyScore, &s.RegimeScore, &s.PercentileRank, &s.FinalScore,
			&s.SignificanceP, &s.Significant,
			&s.WeeksUsed, &s.FiltersPassed, &s.Qualifies, &s.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan consistency score: %w", err)
		}
		scores = append(scores, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate consistency scores: %w", rows.Err())
	}
	return scores, nil
}
