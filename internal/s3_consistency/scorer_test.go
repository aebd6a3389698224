package s3_consistency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rohanmb/swingline/internal/contracts"
)

func TestComputeWindow(t *testing.T) {
	returns := []float64{0.04, -0.02, 0.06, 0.01, -0.06, 0.03, 0.02, -0.01}
	m := computeWindow(returns)

	assert.Equal(t, 8, m.Weeks)
	assert.Equal(t, 5, m.PositiveN)
	assert.InDelta(t, 5.0/8, m.PosPct, 1e-9)
	assert.InDelta(t, 3.0/8, m.Plus3Pct, 1e-9, "0.04, 0.06, 0.03")
	assert.InDelta(t, 1.0/8, m.Plus5Pct, 1e-9)
	assert.InDelta(t, 1.0/8, m.Neg5Pct, 1e-9)
	assert.InDelta(t, 0.06, m.BestWeek, 1e-9)
	assert.InDelta(t, -0.06, m.WorstWeek, 1e-9)
	assert.Equal(t, 2, m.MaxWinStreak, "streaks are 1, 2, 2")
	assert.InDelta(t, 5.0/3, m.AvgWinStreak, 1e-9)
	assert.Greater(t, m.StdDev, 0.0)
	assert.Greater(t, m.Sortino, m.Sharpe, "downside dev is smaller than full dev here")
}

func TestBinomialP(t *testing.T) {
	// 27 of 52 positive weeks is statistically indistinguishable from a
	// fair coin
	p := binomialP(27, 52)
	assert.InDelta(t, 0.44, p, 0.02)
	assert.GreaterOrEqual(t, p, significanceAlpha)

	// 34 of 52 is convincingly better than chance
	p = binomialP(34, 52)
	assert.Less(t, p, significanceAlpha)

	// edges
	assert.Equal(t, 1.0, binomialP(0, 52))
	assert.Less(t, binomialP(52, 52), 1e-9)
	assert.Equal(t, 1.0, binomialP(0, 0))
}

func TestRegimeRatio(t *testing.T) {
	tests := []struct {
		name  string
		avg13 float64
		avg52 float64
		want  float64
	}{
		{"recent outperforming", 0.02, 0.01, 2.0},
		{"matching", 0.01, 0.01, 1.0},
		{"clipped high", 0.10, 0.01, 3.0},
		{"negative recent clips to zero", -0.01, 0.01, 0.0},
		{"negative base with positive recent", 0.01, -0.01, 2.0},
		{"negative base and recent", -0.01, -0.01, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, regimeRatio(tt.avg13, tt.avg52), 1e-9)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 50, normalize(0.5, 0, 1), 1e-9)
	assert.InDelta(t, 0, normalize(-1, 0, 1), 1e-9)
	assert.InDelta(t, 100, normalize(2, 0, 1), 1e-9)
	assert.InDelta(t, 50, normalize(5, 1, 1), 1e-9, "degenerate band is neutral")
}

func TestPercentileRanks(t *testing.T) {
	ranks := percentileRanks([]float64{10, 30, 20, 40})

	assert.InDelta(t, 25, ranks[0], 1e-9)
	assert.InDelta(t, 75, ranks[1], 1e-9)
	assert.InDelta(t, 50, ranks[2], 1e-9)
	assert.InDelta(t, 100, ranks[3], 1e-9)
}

func TestBuildScore_GateAndSignificance(t *testing.T) {
	s := &Scorer{}
	th := contracts.ThresholdsFor(contracts.RegimeRiskOn)
	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	// steady compounder: base pattern for 39 weeks, stronger last 13
	returns := make([]float64, 0, 52)
	base := []float64{0.035, 0.02, 0.01, -0.015}
	for i := 0; i < 39; i++ {
		returns = append(returns, base[i%4])
	}
	recent := []float64{0.04, 0.03, 0.02, -0.01}
	for i := 0; i < 13; i++ {
		returns = append(returns, recent[i%4])
	}

	w := symbolWindows{
		symbol: "STEADY",
		m52:    computeWindow(returns),
		m26:    computeWindow(returns[26:]),
		m13:    computeWindow(returns[39:]),
	}

	score := s.buildScore(week, w, 80, 90, th)
	assert.True(t, score.Significant, "p=%v", score.SignificanceP)
	assert.GreaterOrEqual(t, score.FiltersPassed, 5)
	assert.True(t, score.Qualifies)
	assert.Equal(t, 52, score.WeeksUsed)

	// coin flipper: decent composite cannot rescue a 27/52 record
	returns = returns[:0]
	for i := 0; i < 52; i++ {
		if i%2 == 0 || i == 51 {
			returns = append(returns, 0.03)
		} else {
			returns = append(returns, -0.02)
		}
	}
	w = symbolWindows{symbol: "COIN", m52: computeWindow(returns), m26: computeWindow(returns[26:]), m13: computeWindow(returns[39:])}

	score = s.buildScore(week, w, 85, 95, th)
	assert.InDelta(t, 27.0/52, score.PosPct, 1e-9)
	assert.False(t, score.Significant)
	assert.False(t, score.Qualifies, "fails significance regardless of score")
}
