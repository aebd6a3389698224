package brain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// fakeStages implements every stage interface and records call order
type fakeStages struct {
	calls  []string
	regime contracts.Regime

	// failOn fails that step failCount times before succeeding
	failOn    string
	failCount int

	refreshed []string
}

func (f *fakeStages) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name && f.failCount > 0 {
		f.failCount--
		return errors.New("provider unavailable")
	}
	return nil
}

func (f *fakeStages) Build(ctx context.Context, week time.Time) (*contracts.UniverseResult, error) {
	if err := f.step("S1"); err != nil {
		return nil, err
	}
	return &contracts.UniverseResult{Week: week, Total: 120, HighQuality: 40}, nil
}

func (f *fakeStages) Score(ctx context.Context, week time.Time) ([]contracts.MomentumScore, error) {
	if err := f.step("S2"); err != nil {
		return nil, err
	}
	return []contracts.MomentumScore{
		{Symbol: "AAA", Qualifies: true},
		{Symbol: "BBB", Qualifies: true},
		{Symbol: "CCC", Qualifies: false},
	}, nil
}

func (f *fakeStages) Classify(ctx context.Context, week time.Time) (*contracts.Regime, error) {
	if err := f.step("REGIME"); err != nil {
		return nil, err
	}
	r := f.regime
	r.Week = week
	return &r, nil
}

type fakeConsistency struct{ f *fakeStages }

func (c fakeConsistency) Score(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.ConsistencyScore, error) {
	if err := c.f.step("S3"); err != nil {
		return nil, err
	}
	return []contracts.ConsistencyScore{
		{Symbol: "AAA", Qualifies: true},
		{Symbol: "BBB", Qualifies: false},
	}, nil
}

type fakeLiquidity struct{ f *fakeStages }

func (l fakeLiquidity) Score(ctx context.Context, week time.Time) ([]contracts.LiquidityScore, error) {
	if err := l.f.step("S4A"); err != nil {
		return nil, err
	}
	return []contracts.LiquidityScore{{Symbol: "AAA", Qualifies: true}}, nil
}

func (f *fakeStages) Detect(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.TradeSetup, error) {
	if err := f.step("S4B"); err != nil {
		return nil, err
	}
	return []contracts.TradeSetup{{Symbol: "AAA"}}, nil
}

func (f *fakeStages) Size(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.PositionSize, error) {
	if err := f.step("S5"); err != nil {
		return nil, err
	}
	return []contracts.PositionSize{{Symbol: "AAA", Qualifies: true}}, nil
}

func (f *fakeStages) Construct(ctx context.Context, week time.Time, regime *contracts.Regime) (*contracts.PortfolioAllocation, error) {
	if err := f.step("S6"); err != nil {
		return nil, err
	}
	alloc := &contracts.PortfolioAllocation{Week: week}
	if !regime.Gated() {
		alloc.Positions = []contracts.AllocatedPosition{{Symbol: "AAA"}}
	}
	return alloc, nil
}

func (f *fakeStages) Assemble(ctx context.Context, week time.Time, regime *contracts.Regime, counts contracts.StageCounts) (*contracts.Recommendation, error) {
	if err := f.step("S8"); err != nil {
		return nil, err
	}
	rec := &contracts.Recommendation{Week: week, MarketRegime: regime.State, StageCounts: counts}
	if !regime.Gated() {
		rec.Cards = []contracts.TradeCard{{Symbol: "AAA"}}
	}
	return rec, nil
}

func (f *fakeStages) Refresh(ctx context.Context, symbols []string) (int, error) {
	f.calls = append(f.calls, "FUND")
	f.refreshed = symbols
	return len(symbols), nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		RetryInitial:   time.Millisecond,
		RetryMax:       4 * time.Millisecond,
		RetryAttempts:  3,
		BatchTimeout:   time.Second,
		ComputeTimeout: time.Second,
		FetchTimeout:   time.Second,
	}
}

func newTestOrchestrator(f *fakeStages) *Orchestrator {
	return NewOrchestrator(
		f, f, f, fakeConsistency{f}, fakeLiquidity{f}, f, f, f, f, f,
		testPipelineConfig(), nil, logger.NewNop(),
	)
}

func riskOnRegime() contracts.Regime {
	return contracts.Regime{State: contracts.RegimeRiskOn, Multiplier: 1.0}
}

func TestRun_FullFlow(t *testing.T) {
	f := &fakeStages{regime: riskOnRegime()}
	o := newTestOrchestrator(f)

	result, err := o.Run(context.Background(), time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"S1", "S2", "REGIME", "S3", "S4A", "S4B", "FUND", "S5", "S6", "S8"},
		f.calls)
	assert.Equal(t, []string{"AAA"}, f.refreshed)

	// Wednesday input normalizes to that week's Monday
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), result.Week)

	assert.Equal(t, 40, result.Counts[contracts.StageUniverse])
	assert.Equal(t, 2, result.Counts[contracts.StageMomentum])
	assert.Equal(t, 1, result.Counts[contracts.StageConsistency])
	assert.Equal(t, 1, result.Counts[contracts.StagePortfolio])
	assert.Equal(t, 1, result.Counts[contracts.StageRecommend])

	require.NotNil(t, result.Recommendation)
	assert.Len(t, result.Recommendation.Cards, 1)
	assert.Len(t, result.Stages, 9)
}

func TestRun_GatedRegimeSkipsScoring(t *testing.T) {
	f := &fakeStages{regime: contracts.Regime{State: contracts.RegimeRiskOff, Multiplier: 0}}
	o := newTestOrchestrator(f)

	result, err := o.Run(context.Background(), time.Now())
	require.NoError(t, err)

	// S3-S5 and the fundamental refresh never run; the empty allocation
	// and recommendation still do
	assert.Equal(t, []string{"S1", "S2", "REGIME", "S6", "S8"}, f.calls)
	assert.Zero(t, result.Counts[contracts.StageConsistency])
	assert.Zero(t, result.Counts[contracts.StageSetup])
	assert.Zero(t, result.Counts[contracts.StageRisk])

	require.NotNil(t, result.Recommendation)
	assert.Empty(t, result.Recommendation.Cards)
}

func TestRun_RetriesTransientFailure(t *testing.T) {
	f := &fakeStages{regime: riskOnRegime(), failOn: "S3", failCount: 1}
	o := newTestOrchestrator(f)

	_, err := o.Run(context.Background(), time.Now())
	require.NoError(t, err)

	attempts := 0
	for _, call := range f.calls {
		if call == "S3" {
			attempts++
		}
	}
	assert.Equal(t, 2, attempts)
}

func TestRun_StageFailureAbortsRun(t *testing.T) {
	f := &fakeStages{regime: riskOnRegime(), failOn: "S4B", failCount: 10}
	o := newTestOrchestrator(f)

	result, err := o.Run(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S4B failed")
	assert.Nil(t, result.Recommendation)

	// three attempts, then the run stops before S5
	assert.NotContains(t, f.calls, "S5")
	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, contracts.StageSetup, last.Stage)
	assert.False(t, last.Success)
}
