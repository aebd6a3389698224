package s8_recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists the weekly recommendation, keyed by week. Cards,
// subscores and funnel counts are stored as JSON documents.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.RecommendationRepository = (*Repository)(nil)

const recommendationColumns = `
	week, market_regime, regime_confidence, regime_subscores,
	total_setups, cards, stage_counts, stage_reasons,
	status, created_at, expires_at
`

// GetByWeek retrieves the recommendation for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) (*contracts.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations WHERE week = $1`
	return r.scanRecommendation(r.db.QueryRow(ctx, query, week))
}

// GetLatest retrieves the most recent recommendation
func (r *Repository) GetLatest(ctx context.Context) (*contracts.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		ORDER BY week DESC LIMIT 1`
	return r.scanRecommendation(r.db.QueryRow(ctx, query))
}

// Upsert writes the recommendation keyed by week
func (r *Repository) Upsert(ctx context.Context, rec *contracts.Recommendation) error {
	subscoresJSON, err := json.Marshal(rec.RegimeSubscores)
	if err != nil {
		return fmt.Errorf("marshal regime subscores: %w", err)
	}
	cardsJSON, err := json.Marshal(rec.Cards)
	if err != nil {
		return fmt.Errorf("marshal trade cards: %w", err)
	}
	countsJSON, err := json.Marshal(rec.StageCounts)
	if err != nil {
		return fmt.Errorf("marshal stage counts: %w", err)
	}
	reasonsJSON, err := json.Marshal(rec.StageReasons)
	if err != nil {
		return fmt.Errorf("marshal stage reasons: %w", err)
	}

	query := `
		INSERT INTO recommendations (` + recommendationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (week) DO UPDATE SET
			market_regime = EXCLUDED.market_regime,
			regime_confidence = EXCLUDED.regime_confidence,
			regime_subscores = EXCLUDED.regime_subscores,
			total_setups = EXCLUDED.total_setups,
			cards = EXCLUDED.cards,
			stage_counts = EXCLUDED.stage_counts,
			stage_reasons = EXCLUDED.stage_reasons,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err = r.db.Exec(ctx, query,
		rec.Week, rec.MarketRegime, rec.RegimeConfidence, subscoresJSON,
		rec.TotalSetups, cardsJSON, countsJSON, reasonsJSON,
		rec.Status, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert recommendation: %w", err)
	}
	return nil
}

// UpdateStatus transitions the recommendation lifecycle
func (r *Repository) UpdateStatus(ctx context.Context, week time.Time, status contracts.AllocationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE recommendations SET status = $1 WHERE week = $2`, status, week)
	if err != nil {
		return fmt.Errorf("update recommendation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no recommendation for week %s", week.Format("2006-01-02"))
	}
	return nil
}

// ExpireOlderThan marks stale non-terminal recommendations as expired
func (r *Repository) ExpireOlderThan(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE recommendations SET status = $1
		WHERE expires_at < $2 AND status IN ($3, $4)`,
		contracts.StatusExpired, now, contracts.StatusDraft, contracts.StatusApproved)
	if err != nil {
		return 0, fmt.Errorf("expire recommendations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) scanRecommendation(row pgx.Row) (*contracts.Recommendation, error) {
	var rec contracts.Recommendation
	var subscoresJSON, cardsJSON, countsJSON, reasonsJSON []byte

	err := row.Scan(
		&rec.Week, &rec.MarketRegime, &rec.RegimeConfidence, &subscoresJSON,
		&rec.TotalSetups, &cardsJSON, &countsJSON, &reasonsJSON,
		&rec.Status, &rec.CreatedAt, &rec.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan recommendation: %w", err)
	}
	if err := json.Unmarshal(subscoresJSON, &rec.RegimeSubscores); err != nil {
		return nil, fmt.Errorf("unmarshal regime subscores: %w", err)
	}
	if err := json.Unmarshal(cardsJSON, &rec.Cards); err != nil {
		return nil, fmt.Errorf("unmarshal trade cards: %w", err)
	}
	if err := json.Unmarshal(countsJSON, &rec.StageCounts); err != nil {
		return nil, fmt.Errorf("unmarshal stage counts: %w", err)
	}
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &rec.StageReasons); err != nil {
			return nil, fmt.Errorf("unmarshal stage reasons: %w", err)
		}
	}
	return &rec, nil
}
