package marketdata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohanmb/swingline/internal/contracts"
)

// BarRepository persists daily and weekly bars. Writes are keyed
// upserts so re-ingesting a horizon is idempotent.
type BarRepository struct {
	db *pgxpool.Pool
}

// NewBarRepository creates a new BarRepository instance
func NewBarRepository(db *pgxpool.Pool) *BarRepository {
	return &BarRepository{db: db}
}

var _ contracts.BarRepository = (*BarRepository)(nil)

// GetDaily retrieves the most recent horizonDays daily bars, oldest first
func (r *BarRepository) GetDaily(ctx context.Context, symbol string, horizonDays int) ([]contracts.DailyBar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, turnover
		FROM (
			SELECT symbol, date, open, high, low, close, volume, turnover
			FROM daily_bars
			WHERE symbol = $1
			ORDER BY date DESC
			LIMIT $2
		) recent
		ORDER BY date
	`

	rows, err := r.db.Query(ctx, query, symbol, horizonDays)
	if err != nil {
		return nil, fmt.Errorf("query daily bars %s: %w", symbol, err)
	}
	defer rows.Close()

	bars := make([]contracts.DailyBar, 0, horizonDays)
	for rows.Next() {
		var b contracts.DailyBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Turnover); err != nil {
			return nil, fmt.Errorf("scan daily bar: %w", err)
		}
		bars = append(bars, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate daily bars: %w", rows.Err())
	}
	return bars, nil
}

// GetWeekly retrieves the most recent complete weekly bars, oldest first
func (r *BarRepository) GetWeekly(ctx context.Context, symbol string, weeks int) ([]contracts.WeeklyBar, error) {
	query := `
		SELECT symbol, week, open, high, low, close, volume
		FROM (
			SELECT symbol, week, open, high, low, close, volume
			FROM weekly_bars
			WHERE symbol = $1
			ORDER BY week DESC
			LIMIT $2
		) recent
		ORDER BY week
	`

	rows, err := r.db.Query(ctx, query, symbol, weeks)
	if err != nil {
		return nil, fmt.Errorf("query weekly bars %s: %w", symbol, err)
	}
	defer rows.Close()

	bars := make([]contracts.WeeklyBar, 0, weeks)
	for rows.Next() {
		var b contracts.WeeklyBar
		if err := rows.Scan(&b.Symbol, &b.Week, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan weekly bar: %w", err)
		}
		bars = append(bars, b)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate weekly bars: %w", rows.Err())
	}
	return bars, nil
}

// UpsertDailyBatch writes daily bars keyed by (symbol, date)
func (r *BarRepository) UpsertDailyBatch(ctx context.Context, bars []contracts.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO daily_bars (symbol, date, open, high, low, close, volume, turnover)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			turnover = EXCLUDED.turnover
	`
	for _, b := range bars {
		batch.Queue(query, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.Turnover)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert daily bars: %w", err)
		}
	}
	return nil
}

// UpsertWeeklyBatch writes weekly bars keyed by (symbol, week)
func (r *BarRepository) UpsertWeeklyBatch(ctx context.Context, bars []contracts.WeeklyBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO weekly_bars (symbol, week, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, week) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`
	for _, b := range bars {
		batch.Queue(query, b.Symbol, b.Week, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch upsert weekly bars: %w", err)
		}
	}
	return nil
}
