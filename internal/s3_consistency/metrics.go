package s3_consistency

import (
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// weekly risk-free rate used in Sharpe and Sortino (6% annual)
const riskFreeWeekly = 0.06 / 52

// significance level for the positive-week binomial test
const significanceAlpha = 0.10

// windowMetrics are the raw statistics of one return window
type windowMetrics struct {
	PosPct       float64
	Plus3Pct     float64
	Plus5Pct     float64
	Neg5Pct      float64
	AvgReturn    float64
	StdDev       float64
	Sharpe       float64
	Sortino      float64
	DownsideDev  float64
	BestWeek     float64
	WorstWeek    float64
	MaxWinStreak int
	AvgWinStreak float64
	Weeks        int
	PositiveN    int
}

// computeWindow derives the metric set from a chronological weekly
// return series (fractions)
func computeWindow(returns []float64) windowMetrics {
	m := windowMetrics{Weeks: len(returns)}
	if len(returns) == 0 {
		return m
	}

	m.BestWeek = returns[0]
	m.WorstWeek = returns[0]

	var negative []float64
	streak := 0
	var streaks []int

	for _, r := range returns {
		if r > 0 {
			m.PositiveN++
			streak++
		} else {
			if streak > 0 {
				streaks = append(streaks, streak)
			}
			streak = 0
		}
		if r >= 0.03 {
			m.Plus3Pct++
		}
		if r >= 0.05 {
			m.Plus5Pct++
		}
		if r <= -0.05 {
			m.Neg5Pct++
		}
		if r < 0 {
			negative = append(negative, r)
		}
		if r > m.BestWeek {
			m.BestWeek = r
		}
		if r < m.WorstWeek {
			m.WorstWeek = r
		}
	}
	if streak > 0 {
		streaks = append(streaks, streak)
	}

	n := float64(len(returns))
	m.PosPct = float64(m.PositiveN) / n
	m.Plus3Pct /= n
	m.Plus5Pct /= n
	m.Neg5Pct /= n

	m.AvgReturn = stat.Mean(returns, nil)
	if len(returns) > 1 {
		m.StdDev = stat.StdDev(returns, nil)
	}
	if m.StdDev > 0 {
		m.Sharpe = (m.AvgReturn - riskFreeWeekly) / m.StdDev
	}

	if len(negative) > 1 {
		m.DownsideDev = stat.StdDev(negative, nil)
	}
	if m.DownsideDev > 0 {
		m.Sortino = (m.AvgReturn - riskFreeWeekly) / m.DownsideDev
	}

	if len(streaks) > 0 {
		total := 0
		for _, s := range streaks {
			if s > m.MaxWinStreak {
				m.MaxWinStreak = s
			}
			total += s
		}
		m.AvgWinStreak = float64(total) / float64(len(streaks))
	}

	return m
}

// binomialP is the one-sided p-value for observing at least k positive
// weeks out of n under a fair coin
func binomialP(k, n int) float64 {
	if n == 0 {
		return 1
	}
	dist := distuv.Binomial{N: float64(n), P: 0.5}
	if k == 0 {
		return 1
	}
	return 1 - dist.CDF(float64(k-1))
}

// universeStats hold the per-run min/max used to normalize metrics
// across the scored universe
type universeStats struct {
	PosMin, PosMax       float64
	Plus3Min, Plus3Max   float64
	StdMin, StdMax       float64
	SharpeMin, SharpeMax float64
}

// win-streak probability normalization band (26-week positive fraction)
const (
	winStreakMin = 0.40
	winStreakMax = 0.80
)

func collectUniverseStats(all []windowMetrics) universeStats {
	u := universeStats{
		PosMin: 1, Plus3Min: 1, StdMin: 1, SharpeMin: 10,
		SharpeMax: -10,
	}
	for _, m := range all {
		u.PosMin = min(u.PosMin, m.PosPct)
		u.PosMax = max(u.PosMax, m.PosPct)
		u.Plus3Min = min(u.Plus3Min, m.Plus3Pct)
		u.Plus3Max = max(u.Plus3Max, m.Plus3Pct)
		u.StdMin = min(u.StdMin, m.StdDev)
		u.StdMax = max(u.StdMax, m.StdDev)
		u.SharpeMin = min(u.SharpeMin, m.Sharpe)
		u.SharpeMax = max(u.SharpeMax, m.Sharpe)
	}
	return u
}

// normalize maps val into 0-100 across [lo, hi]; a degenerate band is
// neutral 50
func normalize(val, lo, hi float64) float64 {
	if hi == lo {
		return 50
	}
	n := (val - lo) / (hi - lo) * 100
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// consistencyComposite is the 0-100 weighted score over normalized
// metrics; volatility enters inverted (lower is better)
func consistencyComposite(m windowMetrics, winStreakProb float64, u universeStats) float64 {
	posN := normalize(m.PosPct, u.PosMin, u.PosMax)
	plus3N := normalize(m.Plus3Pct, u.Plus3Min, u.Plus3Max)
	volN := 100 - normalize(m.StdDev, u.StdMin, u.StdMax)
	sharpeN := normalize(m.Sharpe, u.SharpeMin, u.SharpeMax)
	winN := normalize(winStreakProb, winStreakMin, winStreakMax)

	return 0.25*posN + 0.25*plus3N + 0.20*volN + 0.15*sharpeN + 0.15*winN
}

// regimeRatio compares recent 13-week performance to the 52-week base,
// clipped to [0, 3]
func regimeRatio(avg13, avg52 float64) float64 {
	if avg52 <= 0 {
		if avg13 > 0 {
			return 2.0
		}
		return 1.0
	}
	ratio := avg13 / avg52
	if ratio < 0 {
		return 0
	}
	if ratio > 3 {
		return 3
	}
	return ratio
}

// finalRanking blends the composite, regime ratio, universe percentile
// and Sharpe into the ranking score
func finalRanking(consistency, regime, sharpe, percentile float64) float64 {
	regimeN := regime / 3 * 100
	sharpeN := normalize(sharpe, -0.1, 0.4)

	return 0.40*consistency + 0.25*regimeN + 0.20*percentile + 0.15*sharpeN
}
