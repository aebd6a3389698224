package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/logger"
)

func week() time.Time {
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
}

func TestClassify_States(t *testing.T) {
	tests := []struct {
		name           string
		sub            contracts.RegimeSubscores
		wantState      contracts.RegimeState
		wantMultiplier float64
	}{
		{
			"strong everything is RISK_ON",
			contracts.RegimeSubscores{Trend: 90, Breadth: 80, Volatility: 75, Leadership: 75},
			contracts.RegimeRiskOn, 1.0,
		},
		{
			"boundary composite 70 is RISK_ON",
			contracts.RegimeSubscores{Trend: 70, Breadth: 70, Volatility: 70, Leadership: 70},
			contracts.RegimeRiskOn, 1.0,
		},
		{
			"upper choppy with healthy trend gets 0.7",
			contracts.RegimeSubscores{Trend: 70, Breadth: 60, Volatility: 50, Leadership: 50},
			contracts.RegimeChoppy, 0.7,
		},
		{
			"upper choppy with weak trend stays 0.5",
			contracts.RegimeSubscores{Trend: 30, Breadth: 70, Volatility: 70, Leadership: 60},
			contracts.RegimeChoppy, 0.5,
		},
		{
			"lower choppy gets 0.5",
			contracts.RegimeSubscores{Trend: 60, Breadth: 40, Volatility: 40, Leadership: 40},
			contracts.RegimeChoppy, 0.5,
		},
		{
			"weak everything is RISK_OFF",
			contracts.RegimeSubscores{Trend: 20, Breadth: 30, Volatility: 25, Leadership: 25},
			contracts.RegimeRiskOff, 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := classify(week(), tt.sub)
			assert.Equal(t, tt.wantState, r.State)
			assert.Equal(t, tt.wantMultiplier, r.Multiplier)
			assert.Equal(t, contracts.ThresholdsFor(tt.wantState), r.Thresholds)
		})
	}
}

func TestClassify_RiskOffIsGated(t *testing.T) {
	r := classify(week(), contracts.RegimeSubscores{Trend: 10, Breadth: 20, Volatility: 30, Leadership: 20})
	assert.Equal(t, contracts.RegimeRiskOff, r.State)
	assert.True(t, r.Gated())
	assert.Empty(t, r.Thresholds.AllowedSetups)
}

func TestConfidence_Bounds(t *testing.T) {
	for _, composite := range []float64{0, 25, 40, 55, 69.9, 70, 85, 100} {
		sub := contracts.RegimeSubscores{Trend: composite, Breadth: composite, Volatility: composite, Leadership: composite}
		r := classify(week(), sub)
		assert.GreaterOrEqual(t, r.Confidence, 0.0, "composite %v", composite)
		assert.LessOrEqual(t, r.Confidence, 1.0, "composite %v", composite)
	}

	// dead center of CHOPPY is maximally confident
	mid := classify(week(), contracts.RegimeSubscores{Trend: 55, Breadth: 55, Volatility: 55, Leadership: 55})
	assert.InDelta(t, 1.0, mid.Confidence, 1e-9)
}

func TestVolatilityScore(t *testing.T) {
	flat := func(level float64) []float64 {
		out := make([]float64, 12)
		for i := range out {
			out[i] = level
		}
		return out
	}

	// calm flat VIX: band 40 + stable 20 + calm 25
	assert.InDelta(t, 85, volatilityScore(flat(12)), 1e-9)

	// elevated flat VIX: band 10 + stable 20 + calm 25
	assert.InDelta(t, 55, volatilityScore(flat(22)), 1e-9)

	// panic flat VIX: band 0 + stable 20 + calm 25
	assert.InDelta(t, 45, volatilityScore(flat(30)), 1e-9)

	// falling VIX scores the direction bonus
	falling := []float64{20, 19.5, 19, 18.5, 18, 17.5, 17, 16.5, 16, 15.5, 15, 14}
	score := volatilityScore(falling)
	assert.Greater(t, score, volatilityScore(flat(14)))

	// spike withdraws the calm bonus and the direction bonus
	spiked := append(flat(13)[:11], 20)
	assert.Less(t, volatilityScore(spiked), volatilityScore(flat(13)))

	assert.Equal(t, 0.0, volatilityScore(nil))
}

func TestTrendScore(t *testing.T) {
	// steadily rising index: every check passes
	rising := make([]contracts.DailyBar, 300)
	price := 100.0
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rising {
		rising[i] = contracts.DailyBar{Date: date.AddDate(0, 0, i), Close: price, Open: price, High: price, Low: price}
		price *= 1.001
	}
	assert.InDelta(t, 100, trendScore(rising), 1e-9)

	// steadily falling index: every check fails
	falling := make([]contracts.DailyBar, 300)
	price = 100.0
	for i := range falling {
		falling[i] = contracts.DailyBar{Date: date.AddDate(0, 0, i), Close: price, Open: price, High: price, Low: price}
		price *= 0.999
	}
	assert.InDelta(t, 0, trendScore(falling), 1e-9)

	// not enough history
	assert.Equal(t, 0.0, trendScore(rising[:100]))
}

func TestVIXSeries_RealClosesOnly(t *testing.T) {
	c := &Classifier{log: logger.NewNop()}

	// every point of the series is a real VIX print, newest last
	vixBars := make([]contracts.DailyBar, 12)
	for i := range vixBars {
		vixBars[i] = contracts.DailyBar{Close: 14 + 0.1*float64(i)}
	}
	series := c.vixSeries(nil, vixBars)
	require.Len(t, series, 12)
	for i, v := range series {
		assert.InDelta(t, 14+0.1*float64(i), v, 1e-9)
	}

	// without any VIX prints the whole series is the realized-vol
	// proxy; the two sources are never blended
	nifty := make([]contracts.DailyBar, 60)
	price := 100.0
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range nifty {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.99
		}
		nifty[i] = contracts.DailyBar{Date: date.AddDate(0, 0, i), Close: price}
	}
	series = c.vixSeries(nifty, nil)
	require.Len(t, series, 12)
	for _, v := range series {
		assert.Greater(t, v, 0.0)
	}
}
