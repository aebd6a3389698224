package s4_liquidity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rohanmb/swingline/internal/contracts"
)

func week() time.Time {
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
}

// liquidBars builds n days at a steady price and volume; close 100,
// volume chosen so daily turnover is turnoverCr crores
func liquidBars(n int, turnoverCr float64) []contracts.DailyBar {
	volume := int64(turnoverCr * crore / 100)
	bars := make([]contracts.DailyBar, n)
	date := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = contracts.DailyBar{
			Symbol: "TEST", Date: date.AddDate(0, 0, i),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: volume,
		}
	}
	return bars
}

func TestScoreBars_LiquidName(t *testing.T) {
	// 50 Cr daily turnover, steady volume, no gaps, no circuits
	score := scoreBars("TEST", week(), liquidBars(90, 50))

	assert.InDelta(t, 50, score.Turnover20DCr, 1e-6)
	assert.InDelta(t, 50, score.Turnover60DCr, 1e-6)
	assert.InDelta(t, 50, score.Peak30DCr, 1e-6)
	assert.Equal(t, 0, score.CircuitHits30D)
	assert.InDelta(t, 0, score.AvgGapPct, 1e-9)
	assert.InDelta(t, 1.0, score.VolStability, 1e-9)

	// all turnover components saturate, stability is perfect
	assert.InDelta(t, 100, score.Score, 1e-6)
	assert.True(t, score.Qualifies)
}

func TestScoreBars_ThinName(t *testing.T) {
	// 2 Cr daily turnover misses the absolute floor and the score floor
	score := scoreBars("TEST", week(), liquidBars(90, 2))

	assert.Less(t, score.Turnover20DCr, turnoverFloor)
	assert.Less(t, score.Score, scoreFloor)
	assert.False(t, score.Qualifies)
}

func TestScoreBars_GappyNameRejected(t *testing.T) {
	bars := liquidBars(90, 50)
	// 3% overnight gaps across the last month
	for i := len(bars) - 30; i < len(bars); i++ {
		bars[i].Open = bars[i-1].Close * 1.03
		bars[i].High = bars[i].Open + 1
	}

	score := scoreBars("TEST", week(), bars)
	assert.Greater(t, score.AvgGapPct, maxAvgGapPercent)
	assert.False(t, score.Qualifies)
}

func TestCircuitHits(t *testing.T) {
	bars := liquidBars(40, 50)

	// one locked 5% up day
	i := len(bars) - 5
	price := bars[i-1].Close * 1.05
	bars[i] = contracts.DailyBar{
		Symbol: "TEST", Date: bars[i].Date,
		Open: price, High: price, Low: price, Close: price, Volume: 1000,
	}

	assert.Equal(t, 1, circuitHits(tail30(bars)))

	// a 5% move that traded through a range is not a circuit
	j := len(bars) - 3
	bars[j].Close = bars[j-1].Close * 1.05
	bars[j].High = bars[j].Close * 1.01
	bars[j].Low = bars[j-1].Close

	assert.Equal(t, 1, circuitHits(tail30(bars)))
}

func TestCircuitGate(t *testing.T) {
	bars := liquidBars(90, 50)

	lock := func(i int, up float64) {
		price := bars[i-1].Close * up
		bars[i] = contracts.DailyBar{
			Symbol: "TEST", Date: bars[i].Date,
			Open: price, High: price, Low: price, Close: price,
			Volume: bars[i].Volume,
		}
	}

	// one circuit is tolerated
	lock(len(bars)-10, 1.05)
	score := scoreBars("TEST", week(), bars)
	assert.Equal(t, 1, score.CircuitHits30D)

	// two is not; note the second locked bar also perturbs gaps, so
	// assert the circuit count drives the failure
	lock(len(bars)-20, 0.95)
	score = scoreBars("TEST", week(), bars)
	assert.Equal(t, 2, score.CircuitHits30D)
	assert.False(t, score.Qualifies)
}

func TestVolumeStability(t *testing.T) {
	steady := []float64{100, 100, 100, 100}
	assert.InDelta(t, 1.0, volumeStability(steady), 1e-9)

	erratic := []float64{10, 1000, 5, 2000, 1}
	assert.InDelta(t, 0.0, volumeStability(erratic), 1e-9)

	assert.Equal(t, 0.0, volumeStability([]float64{100}))
}
