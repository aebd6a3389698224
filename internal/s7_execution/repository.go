package s7_execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S7 state: tracked positions, premarket
// snapshots and Friday summaries
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.ExecutionRepository = (*Repository)(nil)

const positionColumns = `
	symbol, week, state, entry_price, shares,
	stop, target1, target2,
	last_close, unrealized_r, realized_r, alerts, updated_at
`

// GetPositions retrieves the tracked positions for a week
func (r *Repository) GetPositions(ctx context.Context, week time.Time) ([]contracts.TrackedPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM tracked_positions
		WHERE week = $1 ORDER BY symbol`

	rows, err := r.db.Query(ctx, query, week)
	if err != nil {
		return nil, fmt.Errorf("query tracked positions: %w", err)
	}
	defer rows.Close()

	positions := make([]contracts.TrackedPosition, 0)
	for rows.Next() {
		var p contracts.TrackedPosition
		var alertsJSON []byte
		err := rows.Scan(
			&p.Symbol, &p.Week, &p.State, &p.EntryPrice, &p.Shares,
			&p.Stop, &p.Target1, &p.Target2,
			&p.LastClose, &p.UnrealizedR, &p.RealizedR, &alertsJSON, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tracked position: %w", err)
		}
		if len(alertsJSON) > 0 {
			if err := json.Unmarshal(alertsJSON, &p.Alerts); err != nil {
				return nil, fmt.Errorf("unmarshal alerts: %w", err)
			}
		}
		positions = append(positions, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tracked positions: %w", rows.Err())
	}
	return positions, nil
}

// UpsertPosition writes one tracked position keyed by (symbol, week)
func (r *Repository) UpsertPosition(ctx context.Context, position *contracts.TrackedPosition) error {
	alertsJSON, err := json.Marshal(position.Alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}

	query := `
		INSERT INTO tracked_positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, week) DO UPDATE SET
			state = EXCLUDED.state,
			entry_price = EXCLUDED.entry_price,
			shares = EXCLUDED.shares,
			stop = EXCLUDED.stop,
			target1 = EXCLUDED.target1,
			target2 = EXCLUDED.target2,
			last_close = EXCLUDED.last_close,
			unrealized_r = EXCLUDED.unrealized_r,
			realized_r = EXCLUDED.realized_r,
			alerts = EXCLUDED.alerts,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.Exec(ctx, query,
		position.Symbol, position.Week, position.State, position.EntryPrice, position.Shares,
		position.Stop, position.Target1, position.Target2,
		position.LastClose, position.UnrealizedR, position.RealizedR, alertsJSON, position.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert tracked position %s: %w", position.Symbol, err)
	}
	return nil
}

// SavePremarket writes the Monday snapshot keyed by week
func (r *Repository) SavePremarket(ctx context.Context, analysis *contracts.PremarketAnalysis) error {
	decisionsJSON, err := json.Marshal(analysis.Decisions)
	if err != nil {
		return fmt.Errorf("marshal gap decisions: %w", err)
	}

	query := `
		INSERT INTO premarket_analyses (week, decisions, enter_count, skip_count, wait_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (week) DO UPDATE SET
			decisions = EXCLUDED.decisions,
			enter_count = EXCLUDED.enter_count,
			skip_count = EXCLUDED.skip_count,
			wait_count = EXCLUDED.wait_count,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.Exec(ctx, query,
		analysis.Week, decisionsJSON,
		analysis.EnterCount, analysis.SkipCount, analysis.WaitCount, analysis.CreatedAt)
	if err != nil {
		return fmt.Errorf("save premarket analysis: %w", err)
	}
	return nil
}

// GetLatestPremarket reads the newest Monday snapshot, nil if none
func (r *Repository) GetLatestPremarket(ctx context.Context) (*contracts.PremarketAnalysis, error) {
	query := `SELECT week, decisions, enter_count, skip_count, wait_count, created_at
		FROM premarket_analyses ORDER BY week DESC LIMIT 1`

	var a contracts.PremarketAnalysis
	var decisionsJSON []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&a.Week, &decisionsJSON, &a.EnterCount, &a.SkipCount, &a.WaitCount, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest premarket: %w", err)
	}
	if err := json.Unmarshal(decisionsJSON, &a.Decisions); err != nil {
		return nil, fmt.Errorf("unmarshal gap decisions: %w", err)
	}
	return &a, nil
}

// SaveFridaySummary writes the weekly review keyed by week
func (r *Repository) SaveFridaySummary(ctx context.Context, summary *contracts.FridaySummary) error {
	positionsJSON, err := json.Marshal(summary.Positions)
	if err != nil {
		return fmt.Errorf("marshal summary positions: %w", err)
	}
	sectorsJSON, err := json.Marshal(summary.SectorMomentum)
	if err != nil {
		return fmt.Errorf("marshal sector momentum: %w", err)
	}
	healthJSON, err := json.Marshal(summary.Health)
	if err != nil {
		return fmt.Errorf("marshal system health: %w", err)
	}

	query := `
		INSERT INTO friday_summaries (
			week, realized_pnl, unrealized_pnl, weekly_r_sum, win_rate,
			positions, sector_momentum, health, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (week) DO UPDATE SET
			realized_pnl = EXCLUDED.realized_pnl,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			weekly_r_sum = EXCLUDED.weekly_r_sum,
			win_rate = EXCLUDED.win_rate,
			positions = EXCLUDED.positions,
			sector_momentum = EXCLUDED.sector_momentum,
			health = EXCLUDED.health,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.Exec(ctx, query,
		summary.Week, summary.RealizedPnL, summary.UnrealizedPnL, summary.WeeklyRSum, summary.WinRate,
		positionsJSON, sectorsJSON, healthJSON, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("save friday summary: %w", err)
	}
	return nil
}

// GetClosedOutcomes returns realized R multiples for positions closed
// within the last n weeks, oldest first
func (r *Repository) GetClosedOutcomes(ctx context.Context, weeks int) ([]float64, error) {
	query := `SELECT realized_r FROM tracked_positions
		WHERE state IN ($1, $2, $3) AND week >= $4
		ORDER BY week, symbol`
	cutoff := time.Now().AddDate(0, 0, -7*weeks)

	rows, err := r.db.Query(ctx, query,
		contracts.PositionStopped, contracts.PositionTarget2, contracts.PositionClosed, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query closed outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := make([]float64, 0)
	for rows.Next() {
		var r float64
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan closed outcome: %w", err)
		}
		outcomes = append(outcomes, r)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate closed outcomes: %w", rows.Err())
	}
	return outcomes, nil
}
