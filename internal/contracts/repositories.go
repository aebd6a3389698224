package contracts

import (
	"context"
	"time"
)

// SSOT: repository interfaces are defined only here.
// Every write is a keyed upsert so any stage can be re-run without
// corrupting prior results.

// StockRepository manages the S1 universe collection
type StockRepository interface {
	GetBySymbol(ctx context.Context, symbol string) (*Stock, error)
	GetHighQuality(ctx context.Context) ([]Stock, error)
	GetActive(ctx context.Context) ([]Stock, error)
	Upsert(ctx context.Context, stock *Stock) error
	UpsertBatch(ctx context.Context, stocks []Stock) error
	// DeactivateMissing marks active stocks absent from keep as inactive
	DeactivateMissing(ctx context.Context, keep []string) (int, error)
}

// BarRepository manages daily and weekly bars
type BarRepository interface {
	GetDaily(ctx context.Context, symbol string, horizonDays int) ([]DailyBar, error)
	GetWeekly(ctx context.Context, symbol string, weeks int) ([]WeeklyBar, error)
	UpsertDailyBatch(ctx context.Context, bars []DailyBar) error
	UpsertWeeklyBatch(ctx context.Context, bars []WeeklyBar) error
}

// MomentumRepository manages S2 output
type MomentumRepository interface {
	GetByWeek(ctx context.Context, week time.Time) ([]MomentumScore, error)
	GetQualified(ctx context.Context, week time.Time) ([]MomentumScore, error)
	Upsert(ctx context.Context, score *MomentumScore) error
}

// RegimeRepository manages the weekly regime assessment
type RegimeRepository interface {
	GetByWeek(ctx context.Context, week time.Time) (*Regime, error)
	GetLatest(ctx context.Context) (*Regime, error)
	Upsert(ctx context.Context, regime *Regime) error
}

// ConsistencyRepository manages S3 output
type ConsistencyRepository interface {
	GetByWeek(ctx context.Context, week time.Time) ([]ConsistencyScore, error)
	GetQualified(ctx context.Context, week time.Time) ([]ConsistencyScore, error)
	Upsert(ctx context.Context, score *ConsistencyScore) error
}

// LiquidityRepository manages S4A output
type LiquidityRepository interface {
	GetByWeek(ctx context.Context, week time.Time) ([]LiquidityScore, error)
	GetQualified(ctx context.Context, week time.Time) ([]LiquidityScore, error)
	Upsert(ctx context.Context, score *LiquidityScore) error
}

// SetupRepository manages S4B output
type SetupRepository interface {
	GetByWeek(ctx context.Context, week time.Time) ([]TradeSetup, error)
	GetBySymbolAndWeek(ctx context.Context, symbol string, week time.Time) (*TradeSetup, error)
	Upsert(ctx context.Context, setup *TradeSetup) error
}

// SizingRepository manages S5 output and the rolling system stats
type SizingRepository interface {
	GetByWeek(ctx context.Context, week time.Time) ([]PositionSize, error)
	GetQualified(ctx context.Context, week time.Time) ([]PositionSize, error)
	Upsert(ctx context.Context, size *PositionSize) error
	GetSystemStats(ctx context.Context) (*SystemStats, error)
	UpsertSystemStats(ctx context.Context, stats *SystemStats) error
}

// PortfolioRepository manages S6 output
type PortfolioRepository interface {
	GetByWeek(ctx context.Context, week time.Time) (*PortfolioAllocation, error)
	GetLatestApproved(ctx context.Context) (*PortfolioAllocation, error)
	Upsert(ctx context.Context, allocation *PortfolioAllocation) error
	UpdateStatus(ctx context.Context, week time.Time, status AllocationStatus) error
}

// ExecutionRepository manages S7 state
type ExecutionRepository interface {
	GetPositions(ctx context.Context, week time.Time) ([]TrackedPosition, error)
	UpsertPosition(ctx context.Context, position *TrackedPosition) error
	SavePremarket(ctx context.Context, analysis *PremarketAnalysis) error
	GetLatestPremarket(ctx context.Context) (*PremarketAnalysis, error)
	SaveFridaySummary(ctx context.Context, summary *FridaySummary) error
	// GetClosedOutcomes returns realized R multiples over the last n weeks
	GetClosedOutcomes(ctx context.Context, weeks int) ([]float64, error)
}

// RecommendationRepository manages S8 output
type RecommendationRepository interface {
	GetByWeek(ctx context.Context, week time.Time) (*Recommendation, error)
	GetLatest(ctx context.Context) (*Recommendation, error)
	Upsert(ctx context.Context, rec *Recommendation) error
	UpdateStatus(ctx context.Context, week time.Time, status AllocationStatus) error
	// ExpireOlderThan marks recommendations past their expiry as expired
	ExpireOlderThan(ctx context.Context, now time.Time) (int, error)
}

// FundamentalRepository manages the optional fundamental snapshots
type FundamentalRepository interface {
	GetBySymbol(ctx context.Context, symbol string) (*FundamentalScore, error)
	GetAll(ctx context.Context) (map[string]FundamentalScore, error)
	Upsert(ctx context.Context, score *FundamentalScore) error
}
