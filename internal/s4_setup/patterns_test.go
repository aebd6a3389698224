package s4_setup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
)

func flatBar(i int, open, high, low, close float64, volume int64) contracts.DailyBar {
	date := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	return contracts.DailyBar{
		Symbol: "TEST", Date: date.AddDate(0, 0, i),
		Open: open, High: high, Low: low, Close: close, Volume: volume,
	}
}

func TestDetectPullback(t *testing.T) {
	// quiet drift just above a rising 20 DMA, volume drying up over the
	// last three sessions, hammer on the final bar
	bars := make([]contracts.DailyBar, 40)
	for i := range bars {
		vol := int64(1000)
		if i >= len(bars)-3 {
			vol = 600
		}
		bars[i] = flatBar(i, 95.8, 96.5, 95.6, 96, vol)
	}
	last := len(bars) - 1
	bars[last].Low = 95.0 // lower wick 0.8 against a 0.2 body

	ind := &contracts.IndicatorSet{
		SMA20: 95, SMA50: 90, SMA200: 80,
		RSI14: 45, MACDHist: 0.2, MACDHistPrev: -0.1,
		ATR14: 2, High52: 100,
	}

	m := detectPullback(bars, ind)
	require.NotNil(t, m)
	assert.Equal(t, contracts.SetupPullback, m.setupType)
	assert.Equal(t, 95.0, m.support, "support is the 20 DMA")
	// 60 base + 7 zero cross + 7 RSI midzone + 10 hammer
	assert.InDelta(t, 84, m.confidence, 1e-9)

	t.Run("rsi out of zone", func(t *testing.T) {
		hot := *ind
		hot.RSI14 = 60
		assert.Nil(t, detectPullback(bars, &hot))
	})

	t.Run("volume not dried up", func(t *testing.T) {
		noisy := make([]contracts.DailyBar, len(bars))
		copy(noisy, bars)
		for i := range noisy {
			noisy[i].Volume = 1000
		}
		assert.Nil(t, detectPullback(noisy, ind))
	})

	t.Run("broken trend", func(t *testing.T) {
		down := *ind
		down.SMA200 = 92 // sma50 below sma200
		assert.Nil(t, detectPullback(bars, &down))
	})
}

// vcpBars builds 40 wide-range sessions followed by a 20-bar base with
// weekly ranges contracting 6, 5, 4, 3 points
func vcpBars() []contracts.DailyBar {
	bars := make([]contracts.DailyBar, 0, 60)
	for i := 0; i < 40; i++ {
		bars = append(bars, flatBar(i, 100, 103, 97, 100, 1000))
	}
	blocks := []struct{ high, low, close float64 }{
		{106, 100, 103},
		{105.5, 100.5, 103},
		{105, 101, 103},
		{105, 102, 104},
	}
	for k, blk := range blocks {
		for j := 0; j < 5; j++ {
			bars = append(bars, flatBar(40+k*5+j, blk.close, blk.high, blk.low, blk.close, 1000))
		}
	}
	bars[len(bars)-1].Close = 105
	return bars
}

func TestDetectVCPBreakout(t *testing.T) {
	bars := vcpBars()
	ind := &contracts.IndicatorSet{
		SMA20: 103, SMA50: 100, SMA200: 95,
		RSI14: 60, ATR14: 2, High52: 110,
	}

	m := detectVCPBreakout(bars, ind)
	require.NotNil(t, m)
	assert.Equal(t, contracts.SetupVCPBreakout, m.setupType)
	assert.Equal(t, 106.0, m.support, "support is the range high")
	// 55 base + 8 tight range + 8 ATR contraction + 8 weekly tightening;
	// range position 0.83 misses the 0.85 bonus
	assert.InDelta(t, 79, m.confidence, 1e-9)

	t.Run("no contraction", func(t *testing.T) {
		loose := *ind
		loose.ATR14 = 7 // wider than the base period
		assert.Nil(t, detectVCPBreakout(bars, &loose))
	})
}

func TestDetectPattern_RegimeGating(t *testing.T) {
	bars := vcpBars()
	ind := &contracts.IndicatorSet{
		SMA20: 103, SMA50: 100, SMA200: 95,
		RSI14: 60, ATR14: 2, High52: 110,
	}

	riskOn := contracts.ThresholdsFor(contracts.RegimeRiskOn)
	m := detectPattern(bars, ind, &riskOn)
	require.NotNil(t, m)
	assert.Equal(t, contracts.SetupVCPBreakout, m.setupType)

	// CHOPPY allows only pullbacks, so the same base goes undetected
	choppy := contracts.ThresholdsFor(contracts.RegimeChoppy)
	assert.Nil(t, detectPattern(bars, ind, &choppy))
}

func TestDetectRetest(t *testing.T) {
	bars := make([]contracts.DailyBar, 60)
	for i := range bars {
		bars[i] = flatBar(i, 100, 100.5, 99.5, 100, 1000)
	}
	// breakout twelve sessions back: +3% on 3x volume
	bars[48] = flatBar(48, 100, 103.2, 100, 103, 3000)
	// drift back to the level on a third of the breakout volume,
	// holding a higher low in the last five sessions
	for i := 49; i < 55; i++ {
		bars[i] = flatBar(i, 101.5, 102, 100.5, 101.5, 500)
	}
	for i := 55; i < 60; i++ {
		bars[i] = flatBar(i, 101.5, 102, 101, 101.5, 500)
	}

	ind := &contracts.IndicatorSet{ATR14: 1.5, High52: 103.2}

	m := detectRetest(bars, ind)
	require.NotNil(t, m)
	assert.Equal(t, contracts.SetupRetest, m.setupType)
	assert.Equal(t, 103.0, m.support, "support is the breakout close")
	// 60 base + 9 volume spike over 3x + 9 deep volume dry-up; close
	// below the level misses the third bonus
	assert.InDelta(t, 78, m.confidence, 1e-9)

	t.Run("breakout volume too light", func(t *testing.T) {
		light := make([]contracts.DailyBar, len(bars))
		copy(light, bars)
		light[48].Volume = 2000 // below the 2.5x threshold
		assert.Nil(t, detectRetest(light, ind))
	})
}

func TestDetectGapFill(t *testing.T) {
	bars := make([]contracts.DailyBar, 40)
	for i := range bars {
		bars[i] = flatBar(i, 100, 100.5, 99.5, 100, 1000)
	}
	// 1.5% gap up six sessions back on 2x volume
	bars[34] = flatBar(34, 101.5, 102, 101.2, 101.8, 2000)
	for i := 35; i < 39; i++ {
		bars[i] = flatBar(i, 101, 101.3, 100.9, 101, 800)
	}
	// 60% of the gap filled, still above the pre-gap close
	bars[39] = flatBar(39, 101, 101.2, 100.6, 100.9, 800)

	ind := &contracts.IndicatorSet{
		SMA20: 99.5, SMA50: 98, Slope20: 0.001,
		ATR14: 1, High52: 102,
	}

	m := detectGapFill(bars, ind)
	require.NotNil(t, m)
	assert.Equal(t, contracts.SetupGapFill, m.setupType)
	assert.Equal(t, 101.5, m.support, "support is the gap top")
	// 55 base + 8 fill in the sweet spot + 8 close above sma50; gap-day
	// volume misses the 2.2x bonus
	assert.InDelta(t, 71, m.confidence, 1e-9)

	t.Run("gap day volume too light", func(t *testing.T) {
		light := make([]contracts.DailyBar, len(bars))
		copy(light, bars)
		light[34].Volume = 1500 // below the 1.8x threshold
		assert.Nil(t, detectGapFill(light, ind))
	})

	t.Run("flat sma20", func(t *testing.T) {
		flat := *ind
		flat.Slope20 = 0
		assert.Nil(t, detectGapFill(bars, &flat))
	})
}

func TestIsHammer(t *testing.T) {
	assert.True(t, isHammer(flatBar(0, 95.8, 96.1, 95.0, 96, 0)))
	assert.False(t, isHammer(flatBar(0, 96, 96.1, 95.0, 95.8, 0)), "bearish body")
	assert.False(t, isHammer(flatBar(0, 95.8, 96.1, 95.7, 96, 0)), "no wick")
}
