package marketdata

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaSlope(t *testing.T) {
	// MA rising 0.1% per day over its own 20-day lookback
	ma := make([]float64, 60)
	for i := range ma {
		ma[i] = 100 * math.Pow(1.001, float64(i))
	}

	slope := maSlope(ma, 20)
	assert.InDelta(t, 0.001, slope, 0.0001)
}

func TestMaSlope_ShortSeriesClampsLookback(t *testing.T) {
	// only 5 defined values past the warmup
	ma := []float64{0, 0, 0, 100, 101, 102, 103, 104}
	slope := maSlope(ma, 4)

	// lookback clamps to the 4 available steps
	assert.InDelta(t, (104.0/100.0-1)/4, slope, 1e-9)
}

func TestTailStdDev(t *testing.T) {
	values := []float64{0.01, -0.02, 0.015, 0.005, -0.01}

	assert.Equal(t, 0.0, tailStdDev(values[:1], 20), "one value has no deviation")
	assert.Greater(t, tailStdDev(values, 20), 0.0)

	// only the tail is used
	long := append([]float64{5, -5, 5, -5}, values...)
	assert.InDelta(t, tailStdDev(values, 5), tailStdDev(long, 5), 1e-12)
}

func TestParseCandles_ReversesToChronological(t *testing.T) {
	raw := [][]json.Number{
		{"2026-01-07T00:00:00+05:30", "108", "109", "101", "102", "1500", "0"},
		{"2026-01-06T00:00:00+05:30", "104", "110", "103", "108", "2000", "0"},
		{"2026-01-05T00:00:00+05:30", "100", "105", "99", "104", "1000", "0"},
	}

	bars, err := parseCandles("TEST", raw)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.True(t, bars[0].Date.Before(bars[1].Date))
	assert.True(t, bars[1].Date.Before(bars[2].Date))
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 102.0, bars[2].Close)
	assert.Equal(t, 102.0*1500, bars[2].Turnover)
}

func TestParseCandles_ShortRow(t *testing.T) {
	raw := [][]json.Number{{"2026-01-05T00:00:00+05:30", "100", "105"}}

	_, err := parseCandles("TEST", raw)
	assert.Error(t, err)
}
