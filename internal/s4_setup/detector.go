package s4_setup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/logger"
)

// horizon of daily bars fetched per symbol; indicator math needs a
// full trading year plus slack
const horizonDays = 300

// level geometry constants
const (
	entryBandATR    = 0.5  // half-width of the entry band in ATRs
	swingLowWindow  = 20   // bars scanned for the structural stop
	stopStructPad   = 0.99 // structural stop sits 1% under the swing low
	stopVolATR      = 2.0  // volatility stop in ATRs below entryLow
	maxStopDistance = 0.08 // reject stops more than 8% below mid entry
)

// Detector runs S4B: pattern recognition and trade-level construction
// over the liquidity survivors
type Detector struct {
	liquidity   contracts.LiquidityRepository
	momentum    contracts.MomentumRepository
	consistency contracts.ConsistencyRepository
	bars        contracts.BarRepository
	repo        contracts.SetupRepository
	log         *logger.Logger
}

// NewDetector creates the setup detector
func NewDetector(
	liquidity contracts.LiquidityRepository,
	momentum contracts.MomentumRepository,
	consistency contracts.ConsistencyRepository,
	bars contracts.BarRepository,
	repo contracts.SetupRepository,
	log *logger.Logger,
) *Detector {
	return &Detector{
		liquidity:   liquidity,
		momentum:    momentum,
		consistency: consistency,
		bars:        bars,
		repo:        repo,
		log:         log.WithField("stage", contracts.StageSetup.ShortName()),
	}
}

var _ contracts.SetupDetector = (*Detector)(nil)

// Detect recognizes at most one pattern per liquidity-qualified symbol
// and computes its entry band, stop and targets under the regime's
// thresholds
func (d *Detector) Detect(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.TradeSetup, error) {
	th := regime.Thresholds
	if len(th.AllowedSetups) == 0 {
		d.log.WithField("state", string(regime.State)).Info("No setup patterns allowed, skipping detection")
		return nil, nil
	}

	candidates, err := d.liquidity.GetQualified(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get liquidity survivors: %w", err)
	}

	momScores, err := d.momentumBySymbol(ctx, week)
	if err != nil {
		return nil, err
	}
	consScores, err := d.consistencyBySymbol(ctx, week)
	if err != nil {
		return nil, err
	}

	setups := make([]contracts.TradeSetup, 0, len(candidates))
	rejected := map[string]int{}

	for _, cand := range candidates {
		bars, err := d.bars.GetDaily(ctx, cand.Symbol, horizonDays)
		if err != nil {
			return nil, fmt.Errorf("get daily bars for %s: %w", cand.Symbol, err)
		}

		ind, err := marketdata.ComputeIndicators(cand.Symbol, bars)
		if err != nil {
			rejected["insufficient_history"]++
			continue
		}

		m := detectPattern(bars, ind, &th)
		if m == nil {
			rejected["no_pattern"]++
			continue
		}

		setup, reason := buildSetup(cand.Symbol, week, bars, ind, m, &th)
		if setup == nil {
			rejected[reason]++
			continue
		}

		mom, okMom := momScores[cand.Symbol]
		cons, okCons := consScores[cand.Symbol]
		if !okMom || !okCons {
			// should be unreachable given the qualify chain
			d.log.WithField("symbol", cand.Symbol).Warn("Missing upstream score, skipping setup")
			rejected["missing_upstream"]++
			continue
		}
		setup.QualityComposite = 0.25*mom + 0.25*cons + 0.25*cand.Score + 0.25*setup.Confidence

		if err := setup.Validate(); err != nil {
			d.log.WithField("symbol", cand.Symbol).WithField("error", err.Error()).Warn("Setup failed level validation")
			rejected["invalid_levels"]++
			continue
		}
		if err := d.repo.Upsert(ctx, setup); err != nil {
			return nil, fmt.Errorf("upsert setup for %s: %w", cand.Symbol, err)
		}
		setups = append(setups, *setup)
	}

	sort.Slice(setups, func(i, j int) bool {
		return setups[i].QualityComposite > setups[j].QualityComposite
	})

	d.log.WithFields(map[string]interface{}{
		"candidates": len(candidates),
		"detected":   len(setups),
		"rejected":   rejected,
		"state":      string(regime.State),
	}).Info("Setup detection completed")

	return setups, nil
}

// buildSetup derives entry band, stop and targets from a pattern
// match. Returns nil and a reason when the geometry fails a gate.
func buildSetup(symbol string, week time.Time, bars []contracts.DailyBar, ind *contracts.IndicatorSet, m *match, th *contracts.Thresholds) (*contracts.TradeSetup, string) {
	entryLow := m.support - entryBandATR*ind.ATR14
	entryHigh := m.support + entryBandATR*ind.ATR14
	mid := (entryLow + entryHigh) / 2

	swingLow := minLow(bars[len(bars)-swingLowWindow:])
	stopStruct := swingLow * stopStructPad
	stopVol := entryLow - stopVolATR*ind.ATR14

	// tighter of the two candidates
	stop := stopStruct
	method := contracts.StopStructure
	if stopVol > stop {
		stop = stopVol
		method = contracts.StopVolatility
	}
	if stop >= entryLow {
		return nil, "stop_inside_entry"
	}

	risk := mid - stop
	target2 := mid + 3*risk
	if ind.High52 < target2 {
		target2 = ind.High52
	}
	target1 := mid + 2*risk
	if target1 > target2 {
		target1 = target2
	}

	// reward measured to the final target; the 52-week high caps how
	// much the trade can pay
	rr := (target2 - mid) / risk
	if rr < th.RRFloor {
		return nil, "rr_below_floor"
	}

	stopDist := risk / mid
	if stopDist > maxStopDistance {
		return nil, "stop_too_wide"
	}

	return &contracts.TradeSetup{
		Symbol: symbol,
		Week:   week,

		SetupType: m.setupType,
		Support:   m.support,

		EntryLow:   entryLow,
		EntryHigh:  entryHigh,
		Stop:       stop,
		StopMethod: method,
		Target1:    target1,
		Target2:    target2,
		RR:         rr,

		SwingLow:        swingLow,
		StopDistancePct: stopDist,

		Confidence:   m.confidence,
		CalculatedAt: time.Now(),
	}, ""
}

func (d *Detector) momentumBySymbol(ctx context.Context, week time.Time) (map[string]float64, error) {
	scores, err := d.momentum.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get momentum scores: %w", err)
	}
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[s.Symbol] = s.Score
	}
	return out, nil
}

func (d *Detector) consistencyBySymbol(ctx context.Context, week time.Time) (map[string]float64, error) {
	scores, err := d.consistency.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get consistency scores: %w", err)
	}
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		out[s.Symbol] = s.ConsistencyScore
	}
	return out, nil
}
