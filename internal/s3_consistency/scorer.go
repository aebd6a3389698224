package s3_consistency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/logger"
)

// minimum complete weekly returns for a symbol to be scored
const minWeeks = 40

// window sizes in weeks
const (
	window52 = 52
	window26 = 26
	window13 = 13
)

// composite and regime-ratio gate levels
const (
	compositeFloor = 75.0
	regimeFloor    = 1.0
)

// Scorer runs the weekly-return consistency gate over the momentum
// survivors. Scoring is two-pass: the first pass collects universe
// statistics for normalization, the second scores and filters.
type Scorer struct {
	momentum contracts.MomentumRepository
	bars     contracts.BarRepository
	repo     contracts.ConsistencyRepository
	log      *logger.Logger
}

// NewScorer creates the consistency scorer
func NewScorer(
	momentum contracts.MomentumRepository,
	bars contracts.BarRepository,
	repo contracts.ConsistencyRepository,
	log *logger.Logger,
) *Scorer {
	return &Scorer{
		momentum: momentum,
		bars:     bars,
		repo:     repo,
		log:      log.WithField("stage", contracts.StageConsistency.ShortName()),
	}
}

var _ contracts.ConsistencyScorer = (*Scorer)(nil)

// symbolWindows carries one symbol's return windows between passes
type symbolWindows struct {
	symbol string
	m52    windowMetrics
	m26    windowMetrics
	m13    windowMetrics
}

// Score computes consistency metrics for each momentum-qualified
// symbol and applies the regime-adaptive six-check gate plus the
// binomial significance requirement
func (s *Scorer) Score(ctx context.Context, week time.Time, regime *contracts.Regime) ([]contracts.ConsistencyScore, error) {
	if regime == nil {
		return nil, fmt.Errorf("regime is required")
	}

	candidates, err := s.momentum.GetQualified(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get momentum survivors: %w", err)
	}

	// first pass: windows and universe stats
	windows := make([]symbolWindows, 0, len(candidates))
	all52 := make([]windowMetrics, 0, len(candidates))
	skipped := 0

	for _, cand := range candidates {
		weekly, err := s.bars.GetWeekly(ctx, cand.Symbol, window52+1)
		if err != nil {
			return nil, fmt.Errorf("get weekly bars for %s: %w", cand.Symbol, err)
		}

		returns := contracts.WeeklyReturns(weekly)
		if len(returns) < minWeeks {
			skipped++
			continue
		}

		w := symbolWindows{
			symbol: cand.Symbol,
			m52:    computeWindow(lastN(returns, window52)),
			m26:    computeWindow(lastN(returns, window26)),
			m13:    computeWindow(lastN(returns, window13)),
		}
		windows = append(windows, w)
		all52 = append(all52, w.m52)
	}

	if len(windows) == 0 {
		s.log.WithField("skipped", skipped).Info("No symbols with enough weekly history")
		return nil, nil
	}

	stats := collectUniverseStats(all52)

	// second pass: composites, percentile ranks, gates
	composites := make([]float64, len(windows))
	for i, w := range windows {
		composites[i] = consistencyComposite(w.m52, w.m26.PosPct, stats)
	}
	ranks := percentileRanks(composites)

	scores := make([]contracts.ConsistencyScore, 0, len(windows))
	qualified := 0

	for i, w := range windows {
		score := s.buildScore(week, w, composites[i], ranks[i], regime.Thresholds)
		if err := s.repo.Upsert(ctx, &score); err != nil {
			return nil, fmt.Errorf("upsert consistency score for %s: %w", w.symbol, err)
		}
		scores = append(scores, score)
		if score.Qualifies {
			qualified++
		}
	}

	s.log.WithFields(map[string]interface{}{
		"scored":    len(scores),
		"qualified": qualified,
		"skipped":   skipped,
		"regime":    regime.State,
	}).Info("Consistency gate completed")

	return scores, nil
}

// buildScore assembles one symbol's record and applies the gate
func (s *Scorer) buildScore(week time.Time, w symbolWindows, composite, rank float64, th contracts.Thresholds) contracts.ConsistencyScore {
	m := w.m52
	regimeScore := regimeRatio(w.m13.AvgReturn, m.AvgReturn)
	pValue := binomialP(m.PositiveN, m.Weeks)

	score := contracts.ConsistencyScore{
		Symbol: w.symbol,
		Week:   week,

		PosPct:      m.PosPct,
		Plus3Pct:    m.Plus3Pct,
		Plus5Pct:    m.Plus5Pct,
		Neg5Pct:     m.Neg5Pct,
		AvgReturn:   m.AvgReturn,
		StdDev:      m.StdDev,
		Sharpe:      m.Sharpe,
		Sortino:     m.Sortino,
		DownsideDev: m.DownsideDev,

		BestWeek:     m.BestWeek,
		WorstWeek:    m.WorstWeek,
		MaxWinStreak: m.MaxWinStreak,
		AvgWinStreak: m.AvgWinStreak,

		ConsistencyScore: composite,
		RegimeScore:      regimeScore,
		PercentileRank:   rank,
		FinalScore:       finalRanking(composite, regimeScore, m.Sharpe, rank),

		SignificanceP: pValue,
		Significant:   pValue < significanceAlpha,

		WeeksUsed:    m.Weeks,
		CalculatedAt: time.Now(),
	}

	checks := []bool{
		m.PosPct >= th.PosPctMin,
		m.Plus3Pct >= th.Plus3PctMin && m.Plus3Pct <= th.Plus3PctMax,
		m.StdDev <= th.StdDevMax,
		m.Sharpe >= th.SharpeMin,
		composite >= compositeFloor,
		regimeScore >= regimeFloor,
	}
	for _, pass := range checks {
		if pass {
			score.FiltersPassed++
		}
	}

	// significance is a hard requirement, not one of the six
	score.Qualifies = score.FiltersPassed >= 5 && score.Significant

	return score
}

// percentileRanks assigns each value its 0-100 rank within the run,
// highest value ranked 100
func percentileRanks(values []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })

	ranks := make([]float64, n)
	for pos, i := range idx {
		ranks[i] = float64(n-pos) / float64(n) * 100
	}
	return ranks
}

func lastN(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}
