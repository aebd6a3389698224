package s7_execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/logger"
)

func approvedPosition() contracts.AllocatedPosition {
	return contracts.AllocatedPosition{
		Symbol:   "TEST",
		EntryLow: 94, EntryHigh: 96, Stop: 93,
		Target1: 99, Target2: 100,
		Shares: 100,
	}
}

func TestDecideGap(t *testing.T) {
	tests := []struct {
		name string
		open float64
		want contracts.GapAction
	}{
		{"gapped below stop", 92.5, contracts.ActionSkipGappedThroughStop},
		{"open exactly at stop", 93, contracts.ActionSkipGappedThroughStop},
		{"gapped far above band", 98.5, contracts.ActionSkipDoNotChase},
		{"open inside band", 95, contracts.ActionEnterAtOpen},
		{"open at band floor", 94, contracts.ActionEnterAtOpen},
		{"open at band top", 96, contracts.ActionEnterAtOpen},
		{"small gap against", 93.5, contracts.ActionEnterSmallGapAgainst},
		{"slightly above band", 97, contracts.ActionWaitAndWatch},
		{"at the chase limit", 96 * 1.02, contracts.ActionWaitAndWatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decideGap(approvedPosition(), tt.open)
			assert.Equal(t, tt.want, d.Action)
			assert.NotEmpty(t, d.Reason)
		})
	}

	d := decideGap(approvedPosition(), 95)
	assert.InDelta(t, 0, d.GapPct, 1e-9, "open at mid entry has no gap")
}

func TestTrackFromDecision(t *testing.T) {
	pos := approvedPosition()

	enter := decideGap(pos, 95)
	tp := trackFromDecision(pos, &enter)
	assert.Equal(t, contracts.PositionEntered, tp.State)
	assert.InDelta(t, 95, tp.EntryPrice, 1e-9)

	skip := decideGap(pos, 92)
	tp = trackFromDecision(pos, &skip)
	assert.Equal(t, contracts.PositionSkipped, tp.State)
	assert.Zero(t, tp.EntryPrice)

	wait := decideGap(pos, 97)
	tp = trackFromDecision(pos, &wait)
	assert.Equal(t, contracts.PositionPending, tp.State)
}

func enteredPosition() contracts.TrackedPosition {
	return contracts.TrackedPosition{
		Symbol: "TEST", State: contracts.PositionEntered,
		EntryPrice: 95, Shares: 100,
		Stop: 93, Target1: 99, Target2: 103,
	}
}

func TestMarkToMarket(t *testing.T) {
	t.Run("drifting up", func(t *testing.T) {
		pos := enteredPosition()
		markToMarket(&pos, 97)
		assert.Equal(t, contracts.PositionEntered, pos.State)
		assert.InDelta(t, 1.0, pos.UnrealizedR, 1e-9, "2 points over 2 points of risk")
	})

	t.Run("target 1 trail alert", func(t *testing.T) {
		pos := enteredPosition()
		markToMarket(&pos, 99.5)
		assert.Equal(t, contracts.PositionTarget1, pos.State)
		assert.InDelta(t, 2.25, pos.UnrealizedR, 1e-9)
		assert.Len(t, pos.Alerts, 1)

		// a second mark at the same level does not repeat the alert
		markToMarket(&pos, 99.8)
		assert.Len(t, pos.Alerts, 1)
	})

	t.Run("target 2 closes", func(t *testing.T) {
		pos := enteredPosition()
		markToMarket(&pos, 103.5)
		assert.Equal(t, contracts.PositionTarget2, pos.State)
		assert.InDelta(t, 4.25, pos.RealizedR, 1e-9)
		assert.Zero(t, pos.UnrealizedR)
	})

	t.Run("stopped out", func(t *testing.T) {
		pos := enteredPosition()
		markToMarket(&pos, 92)
		assert.Equal(t, contracts.PositionStopped, pos.State)
		assert.InDelta(t, -1.5, pos.RealizedR, 1e-9)
	})

	t.Run("pending only records the close", func(t *testing.T) {
		pos := enteredPosition()
		pos.State = contracts.PositionPending
		pos.EntryPrice = 0
		markToMarket(&pos, 97)
		assert.Equal(t, contracts.PositionPending, pos.State)
		assert.InDelta(t, 97, pos.LastClose, 1e-9)
		assert.Zero(t, pos.UnrealizedR)
	})
}

func TestScoreHealth(t *testing.T) {
	t.Run("no history stands aside", func(t *testing.T) {
		h := scoreHealth(nil, 75)
		assert.InDelta(t, 50, h.Score, 1e-9)
		assert.Equal(t, contracts.HealthPause, h.Action)
	})

	t.Run("strong system continues", func(t *testing.T) {
		// 70% win rate, 0.55R expectancy, no drawdown
		outcomes := []float64{1, -0.5, 1, -0.5, 1, -0.5, 1, 1, 1, 1}
		h := scoreHealth(outcomes, 100)
		assert.InDelta(t, 0.7, h.WinRate12W, 1e-9)
		assert.InDelta(t, 0.55, h.Expectancy12W, 1e-9)
		assert.InDelta(t, 0, h.DrawdownPct, 1e-9)
		assert.InDelta(t, 79, h.Score, 1e-6)
		assert.Equal(t, contracts.HealthContinue, h.Action)
	})

	t.Run("middling system reduces", func(t *testing.T) {
		outcomes := []float64{1, -0.8, 1, -0.8, 1, -0.8, 1, -0.8, 1, -0.8}
		h := scoreHealth(outcomes, 75)
		assert.InDelta(t, 0.5, h.WinRate12W, 1e-9)
		assert.InDelta(t, 0.1, h.Expectancy12W, 1e-9)
		assert.Equal(t, contracts.HealthReduce, h.Action)
	})

	t.Run("bleeding system stops", func(t *testing.T) {
		outcomes := []float64{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1}
		h := scoreHealth(outcomes, 75)
		assert.Zero(t, h.WinRate12W)
		assert.Less(t, h.Score, 30.0)
		assert.Equal(t, contracts.HealthStop, h.Action)
	})
}

func TestDrawdownPct(t *testing.T) {
	assert.InDelta(t, 0, drawdownPct([]float64{-1, 2}), 1e-9, "curve at its peak")
	assert.InDelta(t, 1, drawdownPct([]float64{1, -2, 1}), 1e-9, "full round trip clamps at 1")
	assert.InDelta(t, 0.5, drawdownPct([]float64{2, -1}), 1e-9)
	assert.Zero(t, drawdownPct([]float64{-1, -1}), "never-positive curve has no defined peak")
}

func TestExecutionScore(t *testing.T) {
	assert.InDelta(t, 75, executionScore(nil), 1e-9)

	premarket := &contracts.PremarketAnalysis{
		Decisions:  make([]contracts.GapDecision, 4),
		EnterCount: 2, SkipCount: 1, WaitCount: 1,
	}
	assert.InDelta(t, 75, executionScore(premarket), 1e-9, "3 of 4 decisions resolved")
}

type fakeExecRepo struct {
	positions  []contracts.TrackedPosition
	premarket  *contracts.PremarketAnalysis
	outcomes   []float64
	weeksAsked []int
	summary    *contracts.FridaySummary
}

func (f *fakeExecRepo) GetPositions(ctx context.Context, week time.Time) ([]contracts.TrackedPosition, error) {
	return f.positions, nil
}

func (f *fakeExecRepo) UpsertPosition(ctx context.Context, position *contracts.TrackedPosition) error {
	return nil
}

func (f *fakeExecRepo) SavePremarket(ctx context.Context, analysis *contracts.PremarketAnalysis) error {
	return nil
}

func (f *fakeExecRepo) GetLatestPremarket(ctx context.Context) (*contracts.PremarketAnalysis, error) {
	return f.premarket, nil
}

func (f *fakeExecRepo) SaveFridaySummary(ctx context.Context, summary *contracts.FridaySummary) error {
	f.summary = summary
	return nil
}

func (f *fakeExecRepo) GetClosedOutcomes(ctx context.Context, weeks int) ([]float64, error) {
	f.weeksAsked = append(f.weeksAsked, weeks)
	return f.outcomes, nil
}

type fakeStatsRepo struct {
	stats *contracts.SystemStats
}

func (f *fakeStatsRepo) GetByWeek(ctx context.Context, week time.Time) ([]contracts.PositionSize, error) {
	return nil, nil
}

func (f *fakeStatsRepo) GetQualified(ctx context.Context, week time.Time) ([]contracts.PositionSize, error) {
	return nil, nil
}

func (f *fakeStatsRepo) Upsert(ctx context.Context, size *contracts.PositionSize) error {
	return nil
}

func (f *fakeStatsRepo) GetSystemStats(ctx context.Context) (*contracts.SystemStats, error) {
	return f.stats, nil
}

func (f *fakeStatsRepo) UpsertSystemStats(ctx context.Context, stats *contracts.SystemStats) error {
	s := *stats
	f.stats = &s
	return nil
}

type fakeBarProvider struct{}

func (f *fakeBarProvider) FetchDaily(ctx context.Context, symbol string, horizonDays int) ([]contracts.DailyBar, error) {
	return nil, errors.New("no data")
}

func (f *fakeBarProvider) FetchBatch(ctx context.Context, symbols []string, horizonDays int) (map[string][]contracts.DailyBar, error) {
	return nil, nil
}

func (f *fakeBarProvider) FetchBenchmark(ctx context.Context, horizonDays int) ([]contracts.DailyBar, error) {
	return nil, errors.New("no data")
}

func (f *fakeBarProvider) FetchSectorIndex(ctx context.Context, index string, days int) ([]contracts.DailyBar, error) {
	return nil, errors.New("no data")
}

func (f *fakeBarProvider) FetchVIX(ctx context.Context) ([]contracts.DailyBar, error) {
	return nil, nil
}

func TestFridayReview_RefreshesSystemStats(t *testing.T) {
	// 15 winners of +1.5R and 10 losers of -1R closed over the rolling
	// window; the snapshot these produce moves the Kelly fraction off
	// the conservative prior (see TestKellyFraction)
	outcomes := make([]float64, 0, 25)
	for i := 0; i < 15; i++ {
		outcomes = append(outcomes, 1.5)
	}
	for i := 0; i < 10; i++ {
		outcomes = append(outcomes, -1.0)
	}

	exec := &fakeExecRepo{outcomes: outcomes}
	sizing := &fakeStatsRepo{}
	e := NewEngine(nil, exec, sizing, &fakeBarProvider{}, nil, logger.NewNop())

	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err := e.FridayReview(context.Background(), week, nil)
	require.NoError(t, err)

	require.NotNil(t, sizing.stats, "Friday review must write the outcome snapshot")
	assert.Equal(t, 25, sizing.stats.SampleSize)
	assert.True(t, sizing.stats.Usable())
	assert.InDelta(t, 0.6, sizing.stats.WinRate, 1e-9)
	assert.InDelta(t, 1.5, sizing.stats.AvgWin, 1e-9)
	assert.InDelta(t, 1.0, sizing.stats.AvgLoss, 1e-9)
	assert.Contains(t, exec.weeksAsked, statsWeeks, "snapshot covers the full rolling window")
	assert.False(t, sizing.stats.AsOf.IsZero())
}

func TestStatsFromOutcomes_Empty(t *testing.T) {
	s := statsFromOutcomes(nil, time.Now())
	assert.Zero(t, s.SampleSize)
	assert.False(t, s.Usable(), "an empty snapshot must not displace the prior")
}
