package s5_risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// benchmarkHorizon is enough daily bars for a stable Nifty ATR(14)
const benchmarkHorizon = 60

// atrHorizon is the per-symbol window for the volatility adjustment
const atrHorizon = 90

// volatility adjustment clamp
const (
	volAdjMin = 0.5
	volAdjMax = 1.5
)

// Kelly fraction clamp. The lower bound keeps the conservative default
// prior from sizing every position to zero.
const (
	kellyMin = 0.25
	kellyMax = 1.0
)

// Sizer runs S5: risk-budget share counts adjusted for volatility,
// Kelly fraction and regime
type Sizer struct {
	setups   contracts.SetupRepository
	bars     contracts.BarRepository
	provider marketdata.BarProvider
	repo     contracts.SizingRepository
	cfg      config.PortfolioConfig
	log      *logger.Logger
}

// NewSizer creates the risk sizer
func NewSizer(
	setups contracts.SetupRepository,
	bars contracts.BarRepository,
	provider marketdata.BarProvider,
	repo contracts.SizingRepository,
	cfg config.PortfolioConfig,
	log *logger.Logger,
) *Sizer {
	return &Sizer{
		setups:   setups,
		bars:     bars,
		provider: provider,
		repo:     repo,
		cfg:      cfg,
		log:      log.WithField("stage", contracts.StageRisk.ShortName()),
	}
}

var _ contracts.RiskSizer = (*Sizer)(nil)

// Size computes a PositionSize for every trade setup of the week
func (s *Sizer) Size(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.PositionSize, error) {
	if regime.Gated() {
		s.log.WithField("state", string(regime.State)).Info("Regime gated, no positions sized")
		return nil, nil
	}

	setups, err := s.setups.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get trade setups: %w", err)
	}
	if len(setups) == 0 {
		return nil, nil
	}

	niftyBars, err := s.provider.FetchBenchmark(ctx, benchmarkHorizon)
	if err != nil {
		return nil, fmt.Errorf("benchmark fetch failed: %w", err)
	}
	niftyATR := atr14(niftyBars)
	if niftyATR <= 0 {
		return nil, fmt.Errorf("benchmark ATR unavailable")
	}

	stats, err := s.repo.GetSystemStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get system stats: %w", err)
	}
	kelly := kellyFraction(stats)

	sizes := make([]contracts.PositionSize, 0, len(setups))
	qualified := 0

	for _, setup := range setups {
		bars, err := s.bars.GetDaily(ctx, setup.Symbol, atrHorizon)
		if err != nil {
			return nil, fmt.Errorf("get daily bars for %s: %w", setup.Symbol, err)
		}
		stockATR := atr14(bars)

		size := sizeSetup(&setup, stockATR, niftyATR, kelly, regime, &s.cfg)
		if err := s.repo.Upsert(ctx, size); err != nil {
			return nil, fmt.Errorf("upsert position size for %s: %w", setup.Symbol, err)
		}
		sizes = append(sizes, *size)
		if size.Qualifies {
			qualified++
		}
	}

	s.log.WithFields(map[string]interface{}{
		"setups":     len(setups),
		"qualified":  qualified,
		"kelly":      kelly,
		"nifty_atr":  niftyATR,
		"multiplier": regime.Multiplier,
	}).Info("Position sizing completed")

	return sizes, nil
}

// sizeSetup applies the full share-count formula to one setup
func sizeSetup(setup *contracts.TradeSetup, stockATR, niftyATR, kelly float64, regime *contracts.Regime, cfg *config.PortfolioConfig) *contracts.PositionSize {
	mid := setup.MidEntry()
	size := &contracts.PositionSize{
		Symbol:       setup.Symbol,
		Week:         setup.Week,
		StopMethod:   setup.StopMethod,
		RiskPerShare: mid - setup.Stop,
		KellyFrac:    kelly,
		RegimeMult:   regime.Multiplier,
		CalculatedAt: time.Now(),
	}

	if size.RiskPerShare <= 0 {
		size.Reason = "no_risk_distance"
		return size
	}
	if setup.StopDistancePct > 0.08 {
		size.Reason = "stop_too_wide"
		return size
	}
	if setup.RR < regime.Thresholds.RRFloor {
		size.Reason = "rr_below_floor"
		return size
	}

	size.BaseShares = int(math.Floor(cfg.Value * cfg.RiskPctPerTrade / size.RiskPerShare))

	size.VolAdj = 1.0
	if stockATR > 0 {
		size.VolAdj = clamp(niftyATR/stockATR, volAdjMin, volAdjMax)
	}

	size.FinalShares = int(math.Floor(float64(size.BaseShares) * size.VolAdj * kelly * regime.Multiplier))

	// capital cap per position
	maxByValue := int(math.Floor(cfg.MaxPositionPct * cfg.Value / mid))
	if size.FinalShares > maxByValue {
		size.FinalShares = maxByValue
		size.CappedByValue = true
	}

	size.FinalRisk = float64(size.FinalShares) * size.RiskPerShare
	size.PositionValue = float64(size.FinalShares) * mid
	size.PositionPct = size.PositionValue / cfg.Value

	if size.FinalShares < 1 {
		size.Reason = "zero_shares"
		return size
	}
	size.Qualifies = true
	return size
}

// kellyFraction derives the clipped Kelly multiplier from the rolling
// outcome stats, falling back to the conservative prior
func kellyFraction(stats *contracts.SystemStats) float64 {
	if stats == nil || !stats.Usable() {
		prior := contracts.DefaultSystemStats()
		stats = &prior
	}
	if stats.AvgWin <= 0 {
		return kellyMin
	}
	k := (stats.WinRate*stats.AvgWin - (1-stats.WinRate)*stats.AvgLoss) / stats.AvgWin
	return clamp(k, kellyMin, kellyMax)
}

// atr14 computes Wilder ATR(14) over a daily series, 0 if too short
func atr14(bars []contracts.DailyBar) float64 {
	if len(bars) < 15 {
		return 0
	}
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	atr := talib.Atr(highs, lows, closes, 14)
	return atr[len(atr)-1]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
