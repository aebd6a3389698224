package s2_momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rohanmb/swingline/internal/contracts"
)

func TestRangeProximity(t *testing.T) {
	tests := []struct {
		name   string
		close  float64
		high52 float64
		low52  float64
		want   float64
	}{
		{"at high", 200, 200, 100, 1.0},
		{"at low", 100, 200, 100, 0.0},
		{"at ninety percent", 190, 200, 100, 0.90},
		{"just below ninety", 189.9, 200, 100, 0.899},
		{"degenerate range", 100, 100, 100, 0.0},
		{"above high clamps", 210, 200, 100, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, rangeProximity(tt.close, tt.high52, tt.low52), 1e-9)
		})
	}
}

func TestProximityFilter_VolumeSurgeRelaxation(t *testing.T) {
	ind := &contracts.IndicatorSet{High52: 200, Low52: 100, Vol30: 0.01}
	bench := &contracts.Benchmark{Vol30: 0.01}

	// close at 85% of range, 2x volume surge: 2A passes via relaxation
	bars := flatBars(300, 185, 1000)
	bars[len(bars)-1].Volume = 2000

	score := scoreSymbol("TEST", week(), bars, ind, bench)
	assert.True(t, score.PassProximity)
	assert.GreaterOrEqual(t, score.VolSurge, 1.5)

	// same proximity without the surge: 2A fails
	bars = flatBars(300, 185, 1000)
	score = scoreSymbol("TEST", week(), bars, ind, bench)
	assert.False(t, score.PassProximity)
}

func TestMAAlignScore(t *testing.T) {
	tests := []struct {
		name  string
		close float64
		ind   contracts.IndicatorSet
		want  int
	}{
		{
			"full alignment",
			110,
			contracts.IndicatorSet{SMA20: 105, SMA50: 100, SMA200: 90, Slope20: 0.002, Slope50: 0.001, Slope200: 0.0005},
			5,
		},
		{
			"slopes too flat",
			110,
			contracts.IndicatorSet{SMA20: 105, SMA50: 100, SMA200: 90, Slope20: 0.0005, Slope50: 0.001, Slope200: 0.0005},
			4,
		},
		{
			"below all averages",
			80,
			contracts.IndicatorSet{SMA20: 105, SMA50: 100, SMA200: 90, Slope20: -0.001, Slope50: 0, Slope200: 0},
			0,
		},
		{
			"stacked but price below short average",
			102,
			contracts.IndicatorSet{SMA20: 105, SMA50: 100, SMA200: 90, Slope20: 0.001, Slope50: 0.0005, Slope200: 0.0002},
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maAlignScore(tt.close, &tt.ind))
		})
	}
}

func TestRelativeStrength_TwoOfThree(t *testing.T) {
	ind := &contracts.IndicatorSet{High52: 200, Low52: 100, Vol30: 0.01}

	// stock flat, benchmark down enough that two horizons clear
	bench := &contracts.Benchmark{Return1M: -0.06, Return3M: -0.11, Return6M: -0.10, Vol30: 0.01}
	bars := flatBars(300, 150, 1000)

	score := scoreSymbol("TEST", week(), bars, ind, bench)
	assert.GreaterOrEqual(t, score.RS1M, 0.05)
	assert.GreaterOrEqual(t, score.RS3M, 0.10)
	assert.Less(t, score.RS6M, 0.15)
	assert.True(t, score.PassRelStrength)
}

func TestComposite(t *testing.T) {
	// perfect components pin the score at 100
	assert.InDelta(t, 100, composite(1.0, 0.50, 5, 0.05), 1e-9)

	// neutral RS and acceleration with mid proximity
	got := composite(0.50, 0, 3, 0)
	want := 0.25*50 + 0.25*50 + 0.25*60 + 0.25*50
	assert.InDelta(t, want, got, 1e-9)

	// deep underperformance floors the RS component
	assert.InDelta(t, 0.25*100, composite(1.0, -1.0, 0, -0.10), 1e-9)
}

func TestVolRatioFilter(t *testing.T) {
	ind := &contracts.IndicatorSet{High52: 200, Low52: 100, Vol30: 0.016}
	bench := &contracts.Benchmark{Vol30: 0.010}
	bars := flatBars(300, 150, 1000)

	score := scoreSymbol("TEST", week(), bars, ind, bench)
	assert.InDelta(t, 1.6, score.VolRatio, 1e-9)
	assert.False(t, score.PassVolRatio)

	ind.Vol30 = 0.015
	score = scoreSymbol("TEST", week(), bars, ind, bench)
	assert.True(t, score.PassVolRatio, "exactly 1.5x passes")
}

func TestQualifies_FourOfFive(t *testing.T) {
	// rising series near its high, with supportive indicators
	bars := risingBars(300, 100, 0.002)
	last := bars[len(bars)-1].Close
	ind := &contracts.IndicatorSet{
		High52: last * 1.01, Low52: 100,
		SMA20: last * 0.98, SMA50: last * 0.95, SMA200: last * 0.80,
		Slope20: 0.002, Slope50: 0.002, Slope200: 0.002,
		Vol30: 0.01,
	}
	bench := &contracts.Benchmark{Return1M: 0.0, Return3M: 0.0, Return6M: 0.0, Vol30: 0.01}

	score := scoreSymbol("TEST", week(), bars, ind, bench)
	assert.GreaterOrEqual(t, score.FiltersPassed, 4)
	assert.True(t, score.Qualifies)

	// flat laggard fails nearly everything
	bars = flatBars(300, 110, 1000)
	ind = &contracts.IndicatorSet{
		High52: 200, Low52: 100,
		SMA20: 115, SMA50: 120, SMA200: 125,
		Vol30: 0.02,
	}
	bench = &contracts.Benchmark{Return1M: 0.05, Return3M: 0.10, Return6M: 0.20, Vol30: 0.01}

	score = scoreSymbol("TEST", week(), bars, ind, bench)
	assert.Less(t, score.FiltersPassed, 4)
	assert.False(t, score.Qualifies)
}

// helpers

func week() time.Time {
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
}

func flatBars(n int, price float64, volume int64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, n)
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = contracts.DailyBar{
			Symbol: "TEST", Date: date.AddDate(0, 0, i),
			Open: price, High: price, Low: price, Close: price, Volume: volume,
		}
	}
	return bars
}

func risingBars(n int, start, dailyGain float64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, n)
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := range bars {
		bars[i] = contracts.DailyBar{
			Symbol: "TEST", Date: date.AddDate(0, 0, i),
			Open: price, High: price * 1.005, Low: price * 0.995, Close: price, Volume: 1000,
		}
		price *= 1 + dailyGain
	}
	return bars
}
