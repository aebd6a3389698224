package s1_universe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Repository persists the universe to the stocks table
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ contracts.StockRepository = (*Repository)(nil)

const stockColumns = `
	symbol, name, isin, sector, lot_size,
	is_mtf, in_nifty_50, in_nifty_100, in_nifty_200, in_nifty_500,
	quality_score, tier, active, calculated_at
`

// GetBySymbol retrieves one stock
func (r *Repository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks WHERE symbol = $1`

	var s contracts.Stock
	err := r.db.QueryRow(ctx, query, symbol).Scan(
		&s.Symbol, &s.Name, &s.ISIN, &s.Sector, &s.LotSize,
		&s.IsMTF, &s.InNifty50, &s.InNifty100, &s.InNifty200, &s.InNifty500,
		&s.QualityScore, &s.Tier, &s.Active, &s.CalculatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query stock %s: %w", symbol, err)
	}
	return &s, nil
}

// GetHighQuality retrieves active stocks at or above the momentum floor
func (r *Repository) GetHighQuality(ctx context.Context) ([]contracts.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks
		WHERE active = TRUE AND quality_score >= 60
		ORDER BY quality_score DESC, symbol`
	return r.queryStocks(ctx, query)
}

// GetActive retrieves all active stocks
func (r *Repository) GetActive(ctx context.Context) ([]contracts.Stock, error) {
	query := `SELECT ` + stockColumns + ` FROM stocks WHERE active = TRUE ORDER BY symbol`
	return r.queryStocks(ctx, query)
}

// Upsert writes one stock keyed by symbol
func (r *Repository) Upsert(ctx context.Context, stock *contracts.Stock) error {
	query := `
		INSERT INTO stocks (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			isin = EXCLUDED.isin,
			sector = EXCLUDED.sector,
			lot_size = EXCLUDED.lot_size,
			is_mtf = EXCLUDED.is_mtf,
			in_nifty_50 = EXCLUDED.in_nifty_50,
			in_nifty_100 = EXCLUDED.in_nifty_100,
			in_nifty_200 = EXCLUDED.in_nifty_200,
			in_nifty_500 = EXCLUDED.in_nifty_500,
			quality_score = EXCLUDED.quality_score,
			tier = EXCLUDED.tier,
			active = EXCLUDED.active,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.Exec(ctx, query,
		stock.Symbol, stock.Name, stock.ISIN, stock.Sector, stock.LotSize,
		stock.IsMTF, stock.InNifty50, stock.InNifty100, stock.InNifty200, stock.InNifty500,
		stock.QualityScore, stock.Tier, stock.Active, stock.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock %s: %w", stock.Symbol, err)
	}
	return nil
}

// UpsertBatch writes many stocks in one batch round trip
func (r *Repository) UpsertBatch(ctx context.Context, stocks []contracts.Stock) error {
	if len(stocks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO stocks (` + stockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			isin = EXCLUDED.isin,
			sector = EXCLUDED.sector,
			lot_size = EXCLUDED.lot_size,
			is_mtf = EXCLUDED.is_mtf,
			in_nifty_50 = EXCLUDED.in_nifty_50,
			in_nifty_100 = EXCLUDED.in_nifty_100,
			in_nifty_200 = EXCLUDED.in_nifty_200,
			in_nifty_500 = EXCLUDED.in_nifty_500,
			quality_score = EXCLUDED.quality_score,
			tier = EXCLUDED.tier,
			active = EXCLUDED.active,
			calculated_at = EXCLUDED.calculated_at
	`
	for _, s := range stocks {
		batch.Queue(query,
			s.Symbol, s.Name, s.ISIN, s.Sector, s.LotSize,
			s.IsMTF, s.InNifty50, s.InNifty100, s.InNifty200, s.InNifty500,
			s.QualityScore, s.Tier, s.Active, s.CalculatedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range stocks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert stocks: %w", err)
		}
	}
	return nil
}

// DeactivateMissing marks active stocks absent from keep as inactive
func (r *Repository) DeactivateMissing(ctx context.Context, keep []string) (int, error) {
	query := `
		UPDATE stocks SET active = FALSE
		WHERE active = TRUE AND NOT (symbol = ANY($1))
	`

	tag, err := r.db.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("deactivate missing stocks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// queryStocks runs a stock select and scans all rows
func (r *Repository) queryStocks(ctx context.Context, query string, args ...interface{}) ([]contracts.Stock, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]contracts.Stock, 0)
	for rows.Next() {
		var s contracts.Stock
		err := rows.Scan(
			&s.Symbol, &s.Name, &s.ISIN, &s.Sector, &s.LotSize,
			&s.IsMTF, &s.InNifty50, &s.InNifty100, &s.InNifty200, &s.InNifty500,
			&s.QualityScore, &s.Tier, &s.Active, &s.CalculatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate stocks: %w", rows.Err())
	}
	return stocks, nil
}
