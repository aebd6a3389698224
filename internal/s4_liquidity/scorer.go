package s4_liquidity

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/logger"
)

// horizon of daily bars needed to score a symbol
const horizonDays = 90

// turnover levels (INR crores) that saturate each component
const (
	fullTurnover20D = 10.0
	fullTurnover60D = 8.0
	fullPeak30D     = 50.0
)

// qualification gates
const (
	scoreFloor       = 75.0
	turnoverFloor    = 10.0 // Cr over 20 days
	maxCircuitHits   = 1
	maxAvgGapPercent = 2.0
)

// circuit-hit heuristic: a near-5% move that closed pinned at a single
// price. Daily bars cannot see the intraday band, so a locked bar is
// the best available signal.
const circuitMove = 0.049

const crore = 1e7

// Scorer runs the S4A tradability gate over the consistency survivors
type Scorer struct {
	consistency contracts.ConsistencyRepository
	bars        contracts.BarRepository
	repo        contracts.LiquidityRepository
	log         *logger.Logger
}

// NewScorer creates the liquidity scorer
func NewScorer(
	consistency contracts.ConsistencyRepository,
	bars contracts.BarRepository,
	repo contracts.LiquidityRepository,
	log *logger.Logger,
) *Scorer {
	return &Scorer{
		consistency: consistency,
		bars:        bars,
		repo:        repo,
		log:         log.WithField("stage", contracts.StageLiquidity.ShortName()),
	}
}

var _ contracts.LiquidityScorer = (*Scorer)(nil)

// Score computes the liquidity record for every consistency-qualified
// symbol
func (s *Scorer) Score(ctx context.Context, week time.Time) ([]contracts.LiquidityScore, error) {
	candidates, err := s.consistency.GetQualified(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get consistency survivors: %w", err)
	}

	scores := make([]contracts.LiquidityScore, 0, len(candidates))
	qualified, skipped := 0, 0

	for _, cand := range candidates {
		bars, err := s.bars.GetDaily(ctx, cand.Symbol, horizonDays)
		if err != nil {
			return nil, fmt.Errorf("get daily bars for %s: %w", cand.Symbol, err)
		}
		if len(bars) < 60 {
			skipped++
			continue
		}

		score := scoreBars(cand.Symbol, week, bars)
		if err := s.repo.Upsert(ctx, score); err != nil {
			return nil, fmt.Errorf("upsert liquidity score for %s: %w", cand.Symbol, err)
		}
		scores = append(scores, *score)
		if score.Qualifies {
			qualified++
		}
	}

	s.log.WithFields(map[string]interface{}{
		"scored":    len(scores),
		"qualified": qualified,
		"skipped":   skipped,
	}).Info("Liquidity gate completed")

	return scores, nil
}

// scoreBars derives the liquidity record from a chronological series
func scoreBars(symbol string, week time.Time, bars []contracts.DailyBar) *contracts.LiquidityScore {
	turnovers := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		turnovers[i] = b.Close * float64(b.Volume) / crore
		volumes[i] = float64(b.Volume)
	}

	score := &contracts.LiquidityScore{
		Symbol:       symbol,
		Week:         week,
		CalculatedAt: time.Now(),

		Turnover20DCr: stat.Mean(tail(turnovers, 20), nil),
		Turnover60DCr: stat.Mean(tail(turnovers, 60), nil),
		Peak30DCr:     maxOf(tail(turnovers, 30)),

		CircuitHits30D: circuitHits(tail30(bars)),
		VolStability:   volumeStability(tail(volumes, 20)),
	}
	score.AvgGapPct, score.MaxGapPct = gapStats(tail30(bars))

	t20N := math.Min(1, score.Turnover20DCr/fullTurnover20D)
	t60N := math.Min(1, score.Turnover60DCr/fullTurnover60D)
	peakN := math.Min(1, score.Peak30DCr/fullPeak30D)

	score.Score = 100 * (0.40*t20N + 0.30*t60N + 0.20*peakN + 0.10*score.VolStability)

	score.Qualifies = score.Score >= scoreFloor &&
		score.Turnover20DCr >= turnoverFloor &&
		score.CircuitHits30D <= maxCircuitHits &&
		score.AvgGapPct <= maxAvgGapPercent

	return score
}

// circuitHits counts locked near-limit bars
func circuitHits(bars []contracts.DailyBar) int {
	hits := 0
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		move := math.Abs(bars[i].Close/prev - 1)
		locked := bars[i].High == bars[i].Low && bars[i].Low == bars[i].Close
		if move >= circuitMove && locked {
			hits++
		}
	}
	return hits
}

// gapStats returns mean and max absolute overnight gap in percent
func gapStats(bars []contracts.DailyBar) (avg, max float64) {
	gaps := make([]float64, 0, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		gap := math.Abs(bars[i].Open/prev-1) * 100
		gaps = append(gaps, gap)
		if gap > max {
			max = gap
		}
	}
	if len(gaps) == 0 {
		return 0, 0
	}
	return stat.Mean(gaps, nil), max
}

// volumeStability is 1 minus the volume coefficient of variation,
// floored at zero
func volumeStability(volumes []float64) float64 {
	if len(volumes) < 2 {
		return 0
	}
	m := stat.Mean(volumes, nil)
	if m == 0 {
		return 0
	}
	cv := stat.StdDev(volumes, nil) / m
	if cv > 1 {
		return 0
	}
	return 1 - cv
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}

func tail30(bars []contracts.DailyBar) []contracts.DailyBar {
	// one extra bar so the first day of the window has a previous close
	if len(bars) > 31 {
		return bars[len(bars)-31:]
	}
	return bars
}

func maxOf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if x > m {
			m = x
		}
	}
	return m
}
