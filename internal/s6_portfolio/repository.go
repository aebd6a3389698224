package s6_portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists S6 output, keyed by week. Positions and sector
// weights are stored as JSON documents.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.PortfolioRepository = (*Repository)(nil)

const allocationColumns = `
	week, positions, sector_allocation,
	allocated_pct, cash_pct, total_risk_pct,
	correlation_filtered, sector_filtered, capital_filtered,
	status, reason, calculated_at
`

// GetByWeek retrieves the allocation for a week
func (r *Repository) GetByWeek(ctx context.Context, week time.Time) (*contracts.PortfolioAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM portfolio_allocations WHERE week = $1`
	return r.scanAllocation(r.db.QueryRow(ctx, query, week))
}

// GetLatestApproved retrieves the newest approved allocation
func (r *Repository) GetLatestApproved(ctx context.Context) (*contracts.PortfolioAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM portfolio_allocations
		WHERE status = $1 ORDER BY week DESC LIMIT 1`
	return r.scanAllocation(r.db.QueryRow(ctx, query, contracts.StatusApproved))
}

// Upsert writes the allocation keyed by week
func (r *Repository) Upsert(ctx context.Context, allocation *contracts.PortfolioAllocation) error {
	positionsJSON, err := json.Marshal(allocation.Positions)
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	sectorsJSON, err := json.Marshal(allocation.SectorAllocation)
	if err != nil {
		return fmt.Errorf("marshal sector allocation: %w", err)
	}

	query := `
		INSERT INTO portfolio_allocations (` + allocationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (week) DO UPDATE SET
			positions = EXCLUDED.positions,
			sector_allocation = EXCLUDED.sector_allocation,
			allocated_pct = EXCLUDED.allocated_pct,
			cash_pct = EXCLUDED.cash_pct,
			total_risk_pct = EXCLUDED.total_risk_pct,
			correlation_filtered = EXCLUDED.correlation_filtered,
			sector_filtered = EXCLUDED.sector_filtered,
			capital_filtered = EXCLUDED.capital_filtered,
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err = r.db.Exec(ctx, query,
		allocation.Week, positionsJSON, sectorsJSON,
		allocation.AllocatedPct, allocation.CashPct, allocation.TotalRiskPct,
		allocation.CorrelationFiltered, allocation.SectorFiltered, allocation.CapitalFiltered,
		allocation.Status, allocation.Reason, allocation.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert portfolio allocation: %w", err)
	}
	return nil
}

// UpdateStatus transitions the allocation lifecycle
func (r *Repository) UpdateStatus(ctx context.Context, week time.Time, status contracts.AllocationStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE portfolio_allocations SET status = $1 WHERE week = $2`, status, week)
	if err != nil {
		return fmt.Errorf("update allocation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no allocation for week %s", week.Format("2006-01-02"))
	}
	return nil
}

func (r *Repository) scanAllocation(row pgx.Row) (*contracts.PortfolioAllocation, error) {
	var a contracts.PortfolioAllocation
	var positionsJSON, sectorsJSON []byte

	err := row.Scan(
		&a.Week, &positionsJSON, &sectorsJSON,
		&a.AllocatedPct, &a.CashPct, &a.TotalRiskPct,
		&a.CorrelationFiltered, &a.SectorFiltered, &a.CapitalFiltered,
		&a.Status, &a.Reason, &a.CalculatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan portfolio allocation: %w", err)
	}
	if err := json.Unmarshal(positionsJSON, &a.Positions); err != nil {
		return nil, fmt.Errorf("unmarshal positions: %w", err)
	}
	if err := json.Unmarshal(sectorsJSON, &a.SectorAllocation); err != nil {
		return nil, fmt.Errorf("unmarshal sector allocation: %w", err)
	}
	return &a, nil
}
