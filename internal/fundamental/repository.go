package fundamental

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists fundamental snapshots, keyed by symbol. Only the
// latest snapshot is kept; the monthly refresh overwrites in place.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.FundamentalRepository = (*Repository)(nil)

const fundamentalColumns = `
	symbol, eps_qoq, revenue_yoy, roce, roe,
	debt_to_equity, operating_margin, fcf_yield,
	score, qualified, as_of, calculated_at
`

// GetBySymbol retrieves the snapshot for one symbol, nil if none
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*contracts.FundamentalScore, error) {
	query := `SELECT ` + fundamentalColumns + ` FROM fundamental_scores WHERE symbol = $1`

	var f contracts.FundamentalScore
	err := r.db.QueryRow(ctx, query, symbol).Scan(
		&f.Symbol, &f.EPSQoQ, &f.RevenueYoY, &f.ROCE, &f.ROE,
		&f.DebtToEquity, &f.OperatingMargin, &f.FCFYield,
		&f.Score, &f.Qualified, &f.AsOf, &f.CalculatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fundamental score for %s: %w", symbol, err)
	}
	return &f, nil
}

// GetAll retrieves every stored snapshot keyed by symbol
func (r *Repository) GetAll(ctx context.Context) (map[string]contracts.FundamentalScore, error) {
	query := `SELECT ` + fundamentalColumns + ` FROM fundamental_scores`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query fundamental scores: %w", err)
	}
	defer rows.Close()

	out := make(map[string]contracts.FundamentalScore)
	for rows.Next() {
		var f contracts.FundamentalScore
		err := rows.Scan(
			&f.Symbol, &f.EPSQoQ, &f.RevenueYoY, &f.ROCE, &f.ROE,
			&f.DebtToEquity, &f.OperatingMargin, &f.FCFYield,
			&f.Score, &f.Qualified, &f.AsOf, &f.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fundamental score: %w", err)
		}
		out[f.Symbol] = f
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate fundamental scores: %w", rows.Err())
	}
	return out, nil
}

// Upsert writes one snapshot keyed by symbol
func (r *Repository) Upsert(ctx context.Context, score *contracts.FundamentalScore) error {
	query := `
		INSERT INTO fundamental_scores (` + fundamentalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (symbol) DO UPDATE SET
			eps_qoq = EXCLUDED.eps_qoq,
			revenue_yoy = EXCLUDED.revenue_yoy,
			roce = EXCLUDED.roce,
			roe = EXCLUDED.roe,
			debt_to_equity = EXCLUDED.debt_to_equity,
			operating_margin = EXCLUDED.operating_margin,
			fcf_yield = EXCLUDED.fcf_yield,
			score = EXCLUDED.score,
			qualified = EXCLUDED.qualified,
			as_of = EXCLUDED.as_of,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		score.Symbol, score.EPSQoQ, score.RevenueYoY, score.ROCE, score.ROE,
		score.DebtToEquity, score.OperatingMargin, score.FCFYield,
		score.Score, score.Qualified, score.AsOf, score.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert fundamental score %s: %w", score.Symbol, err)
	}
	return nil
}
