package s2_momentum

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S2 output, keyed by (symbol, week)
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.MomentumRepository = (*Repository)(nil)

const momentumColumns = `
	symbol, week,
	pass_proximity, proximity, vol_surge,
	pass_ma_align, ma_align_score,
	pass_rel_strength, rs_1m, rs_3m, rs_6m,
	pass_composite, composite,
	pass_vol_ratio, vol_ratio,
	score, filters_passed, qualifies, calculated_at
`

// GetByWeek retrieves all momentum scores for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) ([]contracts.MomentumScore, error) {
	query := `SELECT ` + momentumColumns + ` FROM momentum_scores
		WHERE week = $1 ORDER BY score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// GetQualified retrieves scores passing the four-of-five gate
func (r *Repository) GetQualified(ctx context.Context, week time.Time) ([]contracts.MomentumScore, error) {
	query := `SELECT ` + momentumColumns + ` FROM momentum_scores
		WHERE week = $1 AND qualifies = TRUE ORDER BY score DESC, symbol`
	return r.queryScores(ctx, query, week)
}

// Upsert writes one score keyed by (symbol, week)
func (r *Repository) Upsert(ctx context.Context, score *contracts.MomentumScore) error {
	query := `
		INSERT INTO momentum_scores (` + momentumColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (symbol, week) DO UPDATE SET
			pass_proximity = EXCLUDED.pass_proximity,
			proximity = EXCLUDED.proximity,
			vol_surge = EXCLUDED.vol_surge,
			pass_ma_align = EXCLUDED.pass_ma_align,
			ma_align_score = EXCLUDED.ma_align_score,
			pass_rel_strength = EXCLUDED.pass_rel_strength,
			rs_1m = EXCLUDED.rs_1m,
			rs_3m = EXCLUDED.rs_3m,
			rs_6m = EXCLUDED.rs_6m,
			pass_composite = EXCLUDED.pass_composite,
			composite = EXCLUDED.composite,
			pass_vol_ratio = EXCLUDED.pass_vol_ratio,
			vol_ratio = EXCLUDED.vol_ratio,
			score = EXCLUDED.score,
			filters_passed = EXCLUDED.filters_passed,
			qualifies = EXCLUDED.qualifies,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		score.Symbol, score.Week,
		score.PassProximity, score.Proximity, score.VolSurge,
		score.PassMAAlign, score.MAAlignScore,
		score.PassRelStrength, score.RS1M, score.RS3M, score.RS6M,
		score.PassComposite, score.Composite,
		score.PassVolRatio, score.VolRatio,
		score.Score, score.FiltersPassed, score.Qualifies, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert momentum score %s: %w", score.Symbol, err)
	}
	return nil
}

func (r *Repository) queryScores(ctx context.Context, query string, args ...interface{}) ([]contracts.MomentumScore, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query momentum scores: %w", err)
	}
	defer rows.Close()

	scores := make([]contracts.MomentumScore, 0)
	for rows.Next() {
		var s contracts.MomentumScore
		err := rows.Scan(
			&s.Symbol, &s.Week,
			&s.PassProximity, &s.Proximity, &s.VolSurge,
			&s.PassMAAlign, &s.MAAlignScore,
			&s.PassRelStrength, &s.RS1M, &s.RS3M, &s.RS6M,
			&s.PassComposite, &s.Composite,
			&s.PassVolRatio, &s.VolRatio,
			&s.Score, &s.FiltersPassed, &s.Qualifies, &s.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan momentum score: %w", err)
		}
		scores = append(scores, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate momentum scores: %w", rows.Err())
	}
	return scores, nil
}
