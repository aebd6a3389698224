package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rohanmb/swingline/internal/brain"
	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/logger"
)

// NSE cadence (server local time is expected to be IST):
// Saturday run leaves the weekend for review before Monday open at
// 09:15; the Monday job fires just ahead of it; the Friday job after
// the 15:30 close.
const (
	scheduleWeeklyRun    = "0 0 10 * * SAT"
	scheduleMondayGaps   = "0 10 9 * * MON"
	scheduleFridayReview = "0 45 15 * * FRI"
	scheduleExpirySweep  = "0 0 0 * * *"
)

// PipelineRunner runs the weekly pipeline
type PipelineRunner interface {
	Run(ctx context.Context, at time.Time) (*brain.RunResult, error)
}

// WeeklyPipelineJob runs S1 → S8 every Saturday morning
type WeeklyPipelineJob struct {
	runner PipelineRunner
}

// NewWeeklyPipelineJob creates the Saturday pipeline job
func NewWeeklyPipelineJob(runner PipelineRunner) *WeeklyPipelineJob {
	return &WeeklyPipelineJob{runner: runner}
}

func (j *WeeklyPipelineJob) Name() string     { return "weekly_pipeline" }
func (j *WeeklyPipelineJob) Schedule() string { return scheduleWeeklyRun }

func (j *WeeklyPipelineJob) Run(ctx context.Context) error {
	_, err := j.runner.Run(ctx, time.Now())
	return err
}

// MondayGapJob fetches pre-open prints for the approved portfolio and
// runs the gap decision tree
type MondayGapJob struct {
	portfolio contracts.PortfolioRepository
	provider  marketdata.BarProvider
	engine    contracts.ExecutionEngine
	log       *logger.Logger
}

// NewMondayGapJob creates the Monday pre-open job
func NewMondayGapJob(portfolio contracts.PortfolioRepository, provider marketdata.BarProvider, engine contracts.ExecutionEngine, log *logger.Logger) *MondayGapJob {
	return &MondayGapJob{
		portfolio: portfolio,
		provider:  provider,
		engine:    engine,
		log:       log.WithField("job", "monday_gaps"),
	}
}

func (j *MondayGapJob) Name() string     { return "monday_gaps" }
func (j *MondayGapJob) Schedule() string { return scheduleMondayGaps }

func (j *MondayGapJob) Run(ctx context.Context) error {
	alloc, err := j.portfolio.GetLatestApproved(ctx)
	if err != nil {
		j.log.WithError(err).Info("No approved portfolio, skipping gap analysis")
		return nil
	}

	opens := j.fetchToday(ctx, alloc.Positions, func(b contracts.DailyBar) float64 { return b.Open })

	analysis, err := j.engine.AnalyzeMondayGaps(ctx, contracts.WeekStart(time.Now()), opens)
	if err != nil {
		return fmt.Errorf("monday gap analysis: %w", err)
	}

	j.log.WithFields(map[string]interface{}{
		"enter": analysis.EnterCount,
		"skip":  analysis.SkipCount,
		"wait":  analysis.WaitCount,
	}).Info("Monday gap analysis completed")
	return nil
}

// fetchToday returns the selected field of today's bar per symbol.
// Symbols without a print today are omitted; the engine treats a
// missing price as WAIT.
func (j *MondayGapJob) fetchToday(ctx context.Context, positions []contracts.AllocatedPosition, field func(contracts.DailyBar) float64) map[string]float64 {
	out := make(map[string]float64, len(positions))
	for _, pos := range positions {
		bars, err := j.provider.FetchDaily(ctx, pos.Symbol, 2)
		if err != nil || len(bars) == 0 {
			j.log.WithField("symbol", pos.Symbol).Warn("No price available")
			continue
		}
		last := bars[len(bars)-1]
		if !sameDay(last.Date, time.Now()) {
			continue
		}
		out[pos.Symbol] = field(last)
	}
	return out
}

// FridayReviewJob marks positions to market after Friday close and
// produces the weekly summary with the system health score
type FridayReviewJob struct {
	positions contracts.ExecutionRepository
	provider  marketdata.BarProvider
	engine    contracts.ExecutionEngine
	log       *logger.Logger
}

// NewFridayReviewJob creates the Friday close job
func NewFridayReviewJob(positions contracts.ExecutionRepository, provider marketdata.BarProvider, engine contracts.ExecutionEngine, log *logger.Logger) *FridayReviewJob {
	return &FridayReviewJob{
		positions: positions,
		provider:  provider,
		engine:    engine,
		log:       log.WithField("job", "friday_review"),
	}
}

func (j *FridayReviewJob) Name() string     { return "friday_review" }
func (j *FridayReviewJob) Schedule() string { return scheduleFridayReview }

func (j *FridayReviewJob) Run(ctx context.Context) error {
	week := contracts.WeekStart(time.Now())

	tracked, err := j.positions.GetPositions(ctx, week)
	if err != nil {
		return fmt.Errorf("get tracked positions: %w", err)
	}

	closes := make(map[string]float64, len(tracked))
	for _, pos := range tracked {
		bars, err := j.provider.FetchDaily(ctx, pos.Symbol, 2)
		if err != nil || len(bars) == 0 {
			j.log.WithField("symbol", pos.Symbol).Warn("No close available")
			continue
		}
		closes[pos.Symbol] = bars[len(bars)-1].Close
	}

	summary, err := j.engine.FridayReview(ctx, week, closes)
	if err != nil {
		return fmt.Errorf("friday review: %w", err)
	}

	j.log.WithFields(map[string]interface{}{
		"weekly_r": summary.WeeklyRSum,
		"health":   summary.Health.Score,
		"action":   string(summary.Health.Action),
	}).Info("Friday review completed")
	return nil
}

// ExpirySweepJob marks recommendations past their one-week life as
// expired so stale cards cannot be approved
type ExpirySweepJob struct {
	repo contracts.RecommendationRepository
	log  *logger.Logger
}

// NewExpirySweepJob creates the daily expiry sweep
func NewExpirySweepJob(repo contracts.RecommendationRepository, log *logger.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{repo: repo, log: log.WithField("job", "expiry_sweep")}
}

func (j *ExpirySweepJob) Name() string     { return "expiry_sweep" }
func (j *ExpirySweepJob) Schedule() string { return scheduleExpirySweep }

func (j *ExpirySweepJob) Run(ctx context.Context) error {
	expired, err := j.repo.ExpireOlderThan(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("expire recommendations: %w", err)
	}
	if expired > 0 {
		j.log.WithField("count", expired).Info("Expired stale recommendations")
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
