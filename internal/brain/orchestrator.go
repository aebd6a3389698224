package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/metrics"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// FundamentalRefresher updates the optional monthly fundamental
// snapshots for setup-qualified symbols
type FundamentalRefresher interface {
	Refresh(ctx context.Context, symbols []string) (int, error)
}

// Orchestrator drives the weekly pipeline S1 → S8. It depends only on
// the stage interfaces in contracts, so the full path runs against
// in-memory fakes in tests.
//
// Each stage runs under its own timeout with retry (exponential
// backoff). A stage failure aborts the run; per-symbol failures are
// the stages' own problem and never surface here.
type Orchestrator struct {
	universe     contracts.UniverseBuilder
	momentum     contracts.MomentumScorer
	regime       contracts.RegimeClassifier
	consistency  contracts.ConsistencyScorer
	liquidity    contracts.LiquidityScorer
	setups       contracts.SetupDetector
	sizer        contracts.RiskSizer
	portfolio    contracts.PortfolioConstructor
	assembler    contracts.RecommendationAssembler
	fundamentals FundamentalRefresher // optional, may be nil

	cfg config.PipelineConfig
	mtr *metrics.Metrics // optional, may be nil
	log *logger.Logger
}

// NewOrchestrator wires the weekly pipeline
func NewOrchestrator(
	universe contracts.UniverseBuilder,
	momentum contracts.MomentumScorer,
	regime contracts.RegimeClassifier,
	consistency contracts.ConsistencyScorer,
	liquidity contracts.LiquidityScorer,
	setups contracts.SetupDetector,
	sizer contracts.RiskSizer,
	portfolio contracts.PortfolioConstructor,
	assembler contracts.RecommendationAssembler,
	fundamentals FundamentalRefresher,
	cfg config.PipelineConfig,
	mtr *metrics.Metrics,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		universe:     universe,
		momentum:     momentum,
		regime:       regime,
		consistency:  consistency,
		liquidity:    liquidity,
		setups:       setups,
		sizer:        sizer,
		portfolio:    portfolio,
		assembler:    assembler,
		fundamentals: fundamentals,
		cfg:          cfg,
		mtr:          mtr,
		log:          log.WithField("component", "brain"),
	}
}

// RunResult summarizes one weekly pipeline run
type RunResult struct {
	Week           time.Time                `json:"week"`
	Regime         *contracts.Regime        `json:"regime"`
	Counts         contracts.StageCounts    `json:"counts"`
	Stages         []contracts.StageResult  `json:"stages"`
	Recommendation *contracts.Recommendation `json:"recommendation"`
	Duration       time.Duration            `json:"duration"`
}

// Run executes the weekly pipeline for the week containing at.
// On a gated regime (RISK_OFF) the scoring stages S3-S5 are skipped
// and an empty allocation plus recommendation are still emitted so the
// week has an auditable record.
func (o *Orchestrator) Run(ctx context.Context, at time.Time) (*RunResult, error) {
	week := contracts.WeekStart(at)
	started := time.Now()

	result := &RunResult{
		Week:   week,
		Counts: make(contracts.StageCounts),
	}

	o.log.WithField("week", week.Format("2006-01-02")).Info("Weekly pipeline starting")

	err := o.runStage(ctx, contracts.StageUniverse, o.cfg.BatchTimeout, result, func(ctx context.Context) (int, error) {
		res, err := o.universe.Build(ctx, week)
		if err != nil {
			return 0, err
		}
		return res.HighQuality, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	err = o.runStage(ctx, contracts.StageMomentum, o.cfg.BatchTimeout, result, func(ctx context.Context) (int, error) {
		scores, err := o.momentum.Score(ctx, week)
		if err != nil {
			return 0, err
		}
		kept := 0
		for _, s := range scores {
			if s.Qualifies {
				kept++
			}
		}
		return kept, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	err = o.runStage(ctx, contracts.StageRegime, o.cfg.FetchTimeout, result, func(ctx context.Context) (int, error) {
		regime, err := o.regime.Classify(ctx, week)
		if err != nil {
			return 0, err
		}
		result.Regime = regime
		return 0, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}
	if o.mtr != nil {
		o.mtr.SetRegime(result.Regime.State)
	}

	if result.Regime.Gated() {
		o.log.WithField("state", string(result.Regime.State)).Warn("Regime gated, skipping scoring stages")
		result.Counts[contracts.StageConsistency] = 0
		result.Counts[contracts.StageLiquidity] = 0
		result.Counts[contracts.StageSetup] = 0
		result.Counts[contracts.StageRisk] = 0
		return o.tail(ctx, result, started)
	}

	err = o.runStage(ctx, contracts.StageConsistency, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		scores, err := o.consistency.Score(ctx, week, result.Regime)
		if err != nil {
			return 0, err
		}
		kept := 0
		for _, s := range scores {
			if s.Qualifies {
				kept++
			}
		}
		return kept, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	err = o.runStage(ctx, contracts.StageLiquidity, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		scores, err := o.liquidity.Score(ctx, week)
		if err != nil {
			return 0, err
		}
		kept := 0
		for _, s := range scores {
			if s.Qualifies {
				kept++
			}
		}
		return kept, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	var setupSymbols []string
	err = o.runStage(ctx, contracts.StageSetup, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		detected, err := o.setups.Detect(ctx, week, result.Regime)
		if err != nil {
			return 0, err
		}
		setupSymbols = setupSymbols[:0]
		for _, s := range detected {
			setupSymbols = append(setupSymbols, s.Symbol)
		}
		return len(detected), nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	// fundamentals are enrichment, never fatal
	if o.fundamentals != nil && len(setupSymbols) > 0 {
		fundCtx, cancel := context.WithTimeout(ctx, o.cfg.BatchTimeout)
		if _, err := o.fundamentals.Refresh(fundCtx, setupSymbols); err != nil {
			o.log.WithError(err).Warn("Fundamental refresh failed, continuing without")
		}
		cancel()
	}

	err = o.runStage(ctx, contracts.StageRisk, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		sizes, err := o.sizer.Size(ctx, week, result.Regime)
		if err != nil {
			return 0, err
		}
		kept := 0
		for _, s := range sizes {
			if s.Qualifies {
				kept++
			}
		}
		return kept, nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	return o.tail(ctx, result, started)
}

// tail runs S6 and S8, which execute on every run, gated or not
func (o *Orchestrator) tail(ctx context.Context, result *RunResult, started time.Time) (*RunResult, error) {
	err := o.runStage(ctx, contracts.StagePortfolio, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		alloc, err := o.portfolio.Construct(ctx, result.Week, result.Regime)
		if err != nil {
			return 0, err
		}
		return len(alloc.Positions), nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	err = o.runStage(ctx, contracts.StageRecommend, o.cfg.ComputeTimeout, result, func(ctx context.Context) (int, error) {
		rec, err := o.assembler.Assemble(ctx, result.Week, result.Regime, result.Counts)
		if err != nil {
			return 0, err
		}
		result.Recommendation = rec
		return len(rec.Cards), nil
	})
	if err != nil {
		return o.finish(result, started, err)
	}

	return o.finish(result, started, nil)
}

func (o *Orchestrator) finish(result *RunResult, started time.Time, err error) (*RunResult, error) {
	result.Duration = time.Since(started)
	if o.mtr != nil {
		o.mtr.RecordRun(err == nil)
	}

	if err != nil {
		o.log.WithError(err).WithField("duration", result.Duration.String()).Error("Weekly pipeline failed")
		return result, err
	}

	cards := 0
	if result.Recommendation != nil {
		cards = len(result.Recommendation.Cards)
	}
	o.log.WithFields(map[string]interface{}{
		"week":     result.Week.Format("2006-01-02"),
		"regime":   string(result.Regime.State),
		"cards":    cards,
		"duration": result.Duration.String(),
	}).Info("Weekly pipeline completed")
	return result, nil
}

// runStage executes one stage with retry, records its result, and
// stores the kept count in the funnel
func (o *Orchestrator) runStage(ctx context.Context, stage contracts.Stage, timeout time.Duration, result *RunResult, fn func(context.Context) (int, error)) error {
	start := time.Now()
	kept, err := o.withRetry(ctx, stage, timeout, fn)
	elapsed := time.Since(start)

	sr := contracts.StageResult{
		Stage:       stage,
		Success:     err == nil,
		OutputCount: kept,
		DurationMS:  elapsed.Milliseconds(),
	}
	if err != nil {
		sr.Error = err.Error()
	}
	result.Stages = append(result.Stages, sr)

	if o.mtr != nil {
		o.mtr.ObserveStage(stage, elapsed, kept)
	}

	if err != nil {
		return fmt.Errorf("%s failed: %w", stage.ShortName(), err)
	}

	if stage != contracts.StageRegime {
		result.Counts[stage] = kept
	}
	o.log.WithFields(map[string]interface{}{
		"stage":    stage.ShortName(),
		"kept":     kept,
		"duration": elapsed.String(),
	}).Info("Stage completed")
	return nil
}

// withRetry runs fn under a per-attempt timeout with exponential
// backoff between attempts
func (o *Orchestrator) withRetry(ctx context.Context, stage contracts.Stage, timeout time.Duration, fn func(context.Context) (int, error)) (int, error) {
	attempts := o.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := o.cfg.RetryInitial

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		kept, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return kept, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		o.log.WithFields(map[string]interface{}{
			"stage":   stage.ShortName(),
			"attempt": attempt,
			"error":   err.Error(),
			"retry":   delay.String(),
		}).Warn("Stage attempt failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}

		delay *= 2
		if delay > o.cfg.RetryMax {
			delay = o.cfg.RetryMax
		}
	}
	return 0, lastErr
}
