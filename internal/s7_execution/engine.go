package s7_execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/internal/metrics"
	"github.com/rohanmb/swingline/pkg/logger"
)

// chaseLimit is how far above the entry band Monday's open may print
// before the trade is abandoned rather than chased
const chaseLimit = 1.02

// healthWeeks is the rolling window for the system self-assessment
const healthWeeks = 12

// statsWeeks is the rolling window for the Kelly outcome snapshot
const statsWeeks = 52

// sectorReturnDays is the lookback for the Friday sector context
const sectorReturnDays = 21

// Engine runs S7: Monday gap decisions over the approved allocation
// and the Friday review with the system health score
type Engine struct {
	portfolio contracts.PortfolioRepository
	repo      contracts.ExecutionRepository
	sizing    contracts.SizingRepository
	provider  marketdata.BarProvider
	mtr       *metrics.Metrics // optional, may be nil
	log       *logger.Logger
}

// NewEngine creates the execution engine
func NewEngine(
	portfolio contracts.PortfolioRepository,
	repo contracts.ExecutionRepository,
	sizing contracts.SizingRepository,
	provider marketdata.BarProvider,
	mtr *metrics.Metrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		portfolio: portfolio,
		repo:      repo,
		sizing:    sizing,
		provider:  provider,
		mtr:       mtr,
		log:       log.WithField("stage", contracts.StageExecution.ShortName()),
	}
}

var _ contracts.ExecutionEngine = (*Engine)(nil)

// AnalyzeMondayGaps decides, for every approved position, whether
// Monday's open still supports the planned entry
func (e *Engine) AnalyzeMondayGaps(ctx context.Context, week time.Time, opens map[string]float64) (*contracts.PremarketAnalysis, error) {
	alloc, err := e.portfolio.GetLatestApproved(ctx)
	if err != nil {
		return nil, fmt.Errorf("get approved allocation: %w", err)
	}

	analysis := &contracts.PremarketAnalysis{
		Week:      week,
		Decisions: make([]contracts.GapDecision, 0, len(alloc.Positions)),
		CreatedAt: time.Now(),
	}

	for _, pos := range alloc.Positions {
		open, ok := opens[pos.Symbol]
		var decision contracts.GapDecision
		if !ok {
			decision = contracts.GapDecision{
				Symbol: pos.Symbol, Week: week,
				Action: contracts.ActionWaitAndWatch,
				Reason: "no premarket print available",
			}
		} else {
			decision = decideGap(pos, open)
			decision.Week = week
		}
		decision.DecidedAt = time.Now()
		analysis.Decisions = append(analysis.Decisions, decision)
		if e.mtr != nil {
			e.mtr.RecordGapDecision(decision.Action)
		}

		switch {
		case decision.Action.IsEntry():
			analysis.EnterCount++
		case decision.Action == contracts.ActionWaitAndWatch:
			analysis.WaitCount++
		default:
			analysis.SkipCount++
		}

		if err := e.repo.UpsertPosition(ctx, trackFromDecision(pos, &decision)); err != nil {
			return nil, fmt.Errorf("track position %s: %w", pos.Symbol, err)
		}
	}

	if err := e.repo.SavePremarket(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save premarket analysis: %w", err)
	}

	e.log.WithFields(map[string]interface{}{
		"positions": len(alloc.Positions),
		"enter":     analysis.EnterCount,
		"skip":      analysis.SkipCount,
		"wait":      analysis.WaitCount,
	}).Info("Monday gap analysis completed")

	return analysis, nil
}

// decideGap is the pure Monday-open decision for one position
func decideGap(pos contracts.AllocatedPosition, open float64) contracts.GapDecision {
	mid := (pos.EntryLow + pos.EntryHigh) / 2
	d := contracts.GapDecision{
		Symbol:    pos.Symbol,
		OpenPrice: open,
		GapPct:    open/mid - 1,
	}

	switch {
	case open <= pos.Stop:
		d.Action = contracts.ActionSkipGappedThroughStop
		d.Reason = fmt.Sprintf("open %.2f at or below stop %.2f, thesis invalidated", open, pos.Stop)
	case open > pos.EntryHigh*chaseLimit:
		d.Action = contracts.ActionSkipDoNotChase
		d.Reason = fmt.Sprintf("open %.2f more than 2%% above entry band top %.2f", open, pos.EntryHigh)
	case open >= pos.EntryLow && open <= pos.EntryHigh:
		d.Action = contracts.ActionEnterAtOpen
		d.Reason = "open inside the entry band"
	case open > pos.Stop && open < pos.EntryLow:
		d.Action = contracts.ActionEnterSmallGapAgainst
		d.Reason = "open below the band but above the stop, better entry"
	default:
		d.Action = contracts.ActionWaitAndWatch
		d.Reason = "open slightly above the band, wait for a pullback into it"
	}
	return d
}

// trackFromDecision seeds the position tracker from a gap decision
func trackFromDecision(pos contracts.AllocatedPosition, d *contracts.GapDecision) *contracts.TrackedPosition {
	tp := &contracts.TrackedPosition{
		Symbol:    pos.Symbol,
		Week:      d.Week,
		Shares:    pos.Shares,
		Stop:      pos.Stop,
		Target1:   pos.Target1,
		Target2:   pos.Target2,
		UpdatedAt: time.Now(),
	}
	switch {
	case d.Action.IsEntry():
		tp.State = contracts.PositionEntered
		tp.EntryPrice = d.OpenPrice
	case d.Action == contracts.ActionWaitAndWatch:
		tp.State = contracts.PositionPending
	default:
		tp.State = contracts.PositionSkipped
	}
	return tp
}

// FridayReview marks positions to market, scores system health and
// persists the weekly summary
func (e *Engine) FridayReview(ctx context.Context, week time.Time, closes map[string]float64) (*contracts.FridaySummary, error) {
	positions, err := e.repo.GetPositions(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get tracked positions: %w", err)
	}

	summary := &contracts.FridaySummary{
		Week:      week,
		Positions: make([]contracts.TrackedPosition, 0, len(positions)),
		CreatedAt: time.Now(),
	}

	wins, decided := 0, 0
	for _, pos := range positions {
		close, ok := closes[pos.Symbol]
		if ok && pos.State != contracts.PositionSkipped {
			markToMarket(&pos, close)
		}
		if err := e.repo.UpsertPosition(ctx, &pos); err != nil {
			return nil, fmt.Errorf("update position %s: %w", pos.Symbol, err)
		}
		summary.Positions = append(summary.Positions, pos)

		switch pos.State {
		case contracts.PositionStopped, contracts.PositionTarget2, contracts.PositionClosed:
			summary.RealizedPnL += pos.RealizedR * riskAmount(&pos)
			summary.WeeklyRSum += pos.RealizedR
			decided++
			if pos.RealizedR > 0 {
				wins++
			}
		case contracts.PositionEntered, contracts.PositionTarget1:
			summary.UnrealizedPnL += pos.UnrealizedR * riskAmount(&pos)
			summary.WeeklyRSum += pos.UnrealizedR
		}
	}
	if decided > 0 {
		summary.WinRate = float64(wins) / float64(decided)
	}

	outcomes, err := e.repo.GetClosedOutcomes(ctx, healthWeeks)
	if err != nil {
		return nil, fmt.Errorf("get closed outcomes: %w", err)
	}
	premarket, err := e.repo.GetLatestPremarket(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest premarket: %w", err)
	}
	summary.Health = scoreHealth(outcomes, executionScore(premarket))
	if e.mtr != nil {
		e.mtr.SetHealthScore(summary.Health.Score)
	}

	// refresh the rolling outcome snapshot; next week's Kelly sizing
	// reads it
	kellyOutcomes, err := e.repo.GetClosedOutcomes(ctx, statsWeeks)
	if err != nil {
		return nil, fmt.Errorf("get closed outcomes: %w", err)
	}
	stats := statsFromOutcomes(kellyOutcomes, time.Now())
	if err := e.sizing.UpsertSystemStats(ctx, &stats); err != nil {
		return nil, fmt.Errorf("update system stats: %w", err)
	}

	summary.SectorMomentum = e.sectorMomentum(ctx)

	if err := e.repo.SaveFridaySummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("save friday summary: %w", err)
	}

	e.log.WithFields(map[string]interface{}{
		"positions":    len(positions),
		"weekly_r_sum": summary.WeeklyRSum,
		"health":       summary.Health.Score,
		"action":       string(summary.Health.Action),
	}).Info("Friday review completed")

	return summary, nil
}

// markToMarket updates one entered position against Friday's close
func markToMarket(pos *contracts.TrackedPosition, close float64) {
	pos.LastClose = close
	pos.UpdatedAt = time.Now()
	if pos.State == contracts.PositionPending || pos.EntryPrice <= 0 {
		return
	}

	risk := pos.EntryPrice - pos.Stop
	if risk <= 0 {
		return
	}
	r := (close - pos.EntryPrice) / risk

	switch {
	case close <= pos.Stop:
		pos.State = contracts.PositionStopped
		pos.RealizedR = r
		pos.UnrealizedR = 0
		pos.Alerts = append(pos.Alerts, "stop hit, position closed")
	case close >= pos.Target2:
		pos.State = contracts.PositionTarget2
		pos.RealizedR = r
		pos.UnrealizedR = 0
		pos.Alerts = append(pos.Alerts, "target 2 reached, position closed")
	case close >= pos.Target1:
		if pos.State != contracts.PositionTarget1 {
			pos.Alerts = append(pos.Alerts, "target 1 reached, trail stop to breakeven")
		}
		pos.State = contracts.PositionTarget1
		pos.UnrealizedR = r
	default:
		pos.UnrealizedR = r
	}
}

func riskAmount(pos *contracts.TrackedPosition) float64 {
	return float64(pos.Shares) * (pos.EntryPrice - pos.Stop)
}

// statsFromOutcomes recomputes the rolling Kelly snapshot from realized
// R multiples. Zero-R outcomes count as losses of zero magnitude.
func statsFromOutcomes(outcomes []float64, asOf time.Time) contracts.SystemStats {
	s := contracts.SystemStats{SampleSize: len(outcomes), AsOf: asOf}

	wins, losses := 0, 0
	winSum, lossSum := 0.0, 0.0
	for _, r := range outcomes {
		if r > 0 {
			wins++
			winSum += r
		} else {
			losses++
			lossSum += -r
		}
	}
	if len(outcomes) > 0 {
		s.WinRate = float64(wins) / float64(len(outcomes))
	}
	if wins > 0 {
		s.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = lossSum / float64(losses)
	}
	return s
}

// scoreHealth computes the weighted 0-100 system health score over the
// rolling closed outcomes, in R multiples
func scoreHealth(outcomes []float64, execScore float64) contracts.SystemHealth {
	h := contracts.SystemHealth{ExecutionScore: execScore}

	if len(outcomes) == 0 {
		// no closed trades yet; neutral score, stand aside
		h.Score = 50
		h.Action = contracts.HealthPause
		return h
	}

	wins := 0
	sum := 0.0
	for _, r := range outcomes {
		if r > 0 {
			wins++
		}
		sum += r
	}
	h.WinRate12W = float64(wins) / float64(len(outcomes))
	h.Expectancy12W = sum / float64(len(outcomes))
	h.DrawdownPct = drawdownPct(outcomes)

	// expectancy normalized over [-0.5R, +1.0R]
	expN := clamp01((h.Expectancy12W + 0.5) / 1.5)
	ddN := clamp01(h.DrawdownPct)

	h.Score = 0.4*h.WinRate12W*100 + 0.3*expN*100 + 0.2*(100-ddN*100) + 0.1*execScore

	switch {
	case h.Score >= 70:
		h.Action = contracts.HealthContinue
	case h.Score >= 50:
		h.Action = contracts.HealthReduce
	case h.Score >= 30:
		h.Action = contracts.HealthPause
	default:
		h.Action = contracts.HealthStop
	}
	return h
}

// drawdownPct is the current drawdown of the cumulative R curve as a
// fraction of its peak, 0 when the curve never went positive
func drawdownPct(outcomes []float64) float64 {
	cum, peak := 0.0, 0.0
	for _, r := range outcomes {
		cum += r
		if cum > peak {
			peak = cum
		}
	}
	if peak <= 0 {
		return 0
	}
	return clamp01((peak - cum) / peak)
}

// executionScore measures fill discipline: the share of Monday
// decisions that resolved to a clear enter or skip. Neutral 75 with no
// premarket history.
func executionScore(premarket *contracts.PremarketAnalysis) float64 {
	if premarket == nil || len(premarket.Decisions) == 0 {
		return 75
	}
	resolved := premarket.EnterCount + premarket.SkipCount
	return 100 * float64(resolved) / float64(len(premarket.Decisions))
}

// sectorMomentum fetches the 20-day return per tracked sector index.
// Failures degrade to a missing entry, never abort the review.
func (e *Engine) sectorMomentum(ctx context.Context) map[string]float64 {
	indexes := append(append([]string{}, marketdata.CyclicalIndexes...), marketdata.DefensiveIndexes...)
	out := make(map[string]float64, len(indexes))
	for _, idx := range indexes {
		bars, err := e.provider.FetchSectorIndex(ctx, idx, sectorReturnDays)
		if err != nil || len(bars) < 2 || bars[0].Close <= 0 {
			e.log.WithField("index", idx).Warn("Sector index unavailable for Friday review")
			continue
		}
		out[idx] = bars[len(bars)-1].Close/bars[0].Close - 1
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
