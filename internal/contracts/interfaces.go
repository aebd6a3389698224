package contracts

import (
	"context"
	"time"
)

// Stage component interfaces. The orchestrator depends on these, not on
// the concrete packages, so the end-to-end path is testable with fakes.

// UniverseBuilder builds the tradable universe (S1)
type UniverseBuilder interface {
	Build(ctx context.Context, week time.Time) (*UniverseResult, error)
}

// UniverseResult summarizes an S1 run
type UniverseResult struct {
	Week        time.Time `json:"week"`
	Total       int       `json:"total"`
	HighQuality int       `json:"high_quality"`
	Deactivated int       `json:"deactivated"`
	TierCounts  map[Tier]int
}

// MomentumScorer applies the five-filter gate (S2)
type MomentumScorer interface {
	Score(ctx context.Context, week time.Time) ([]MomentumScore, error)
}

// RegimeClassifier classifies the market for a week
type RegimeClassifier interface {
	Classify(ctx context.Context, week time.Time) (*Regime, error)
}

// ConsistencyScorer applies the nine-metric gate (S3)
type ConsistencyScorer interface {
	Score(ctx context.Context, week time.Time, regime *Regime) ([]ConsistencyScore, error)
}

// LiquidityScorer applies the tradability gate (S4A)
type LiquidityScorer interface {
	Score(ctx context.Context, week time.Time) ([]LiquidityScore, error)
}

// SetupDetector recognizes chart patterns and computes levels (S4B)
type SetupDetector interface {
	Detect(ctx context.Context, week time.Time, regime *Regime) ([]TradeSetup, error)
}

// RiskSizer computes the adjusted position size (S5)
type RiskSizer interface {
	Size(ctx context.Context, week time.Time, regime *Regime) ([]PositionSize, error)
}

// PortfolioConstructor selects final positions under constraints (S6)
type PortfolioConstructor interface {
	Construct(ctx context.Context, week time.Time, regime *Regime) (*PortfolioAllocation, error)
}

// RecommendationAssembler joins stage outputs into trade cards (S8)
type RecommendationAssembler interface {
	Assemble(ctx context.Context, week time.Time, regime *Regime, counts StageCounts) (*Recommendation, error)
}

// ExecutionEngine makes Monday gap decisions and the Friday review (S7)
type ExecutionEngine interface {
	AnalyzeMondayGaps(ctx context.Context, week time.Time, opens map[string]float64) (*PremarketAnalysis, error)
	FridayReview(ctx context.Context, week time.Time, closes map[string]float64) (*FridaySummary, error)
}
