package marketdata

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/rohanmb/swingline/internal/contracts"
)

// minimum bars to compute the full indicator set (SMA200 plus slope
// lookback and the 52-week extremes)
const minIndicatorBars = 252

// trading-day offsets for benchmark returns
const (
	days1M = 21
	days3M = 63
	days6M = 126
)

// ComputeIndicators derives the latest-bar indicator set for a symbol.
// Input must be chronological daily bars.
func ComputeIndicators(symbol string, bars []contracts.DailyBar) (*contracts.IndicatorSet, error) {
	if len(bars) < minIndicatorBars {
		return nil, fmt.Errorf("%s: need %d bars for indicators, have %d", symbol, minIndicatorBars, len(bars))
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	last := len(bars) - 1

	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	sma200 := talib.Sma(closes, 200)
	atr14 := talib.Atr(highs, lows, closes, 14)
	rsi14 := talib.Rsi(closes, 14)
	_, _, macdHist := talib.Macd(closes, 12, 26, 9)

	returns := contracts.DailyReturns(bars)

	high52, low52 := extremes(bars, 252)

	set := &contracts.IndicatorSet{
		Symbol: symbol,
		Date:   bars[last].Date,

		SMA20:  sma20[last],
		SMA50:  sma50[last],
		SMA200: sma200[last],

		ATR14:        atr14[last],
		RSI14:        rsi14[last],
		MACDHist:     macdHist[last],
		MACDHistPrev: macdHist[last-1],

		Vol20: tailStdDev(returns, 20),
		Vol30: tailStdDev(returns, 30),

		Slope20:  maSlope(sma20, 20),
		Slope50:  maSlope(sma50, 50),
		Slope200: maSlope(sma200, 200),

		High52: high52,
		Low52:  low52,
	}
	return set, nil
}

// ComputeBenchmark derives the Nifty 50 context for the latest bar
func ComputeBenchmark(bars []contracts.DailyBar, vix float64) (*contracts.Benchmark, error) {
	if len(bars) < days6M+1 {
		return nil, fmt.Errorf("benchmark: need %d bars, have %d", days6M+1, len(bars))
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}
	last := len(bars) - 1

	atr14 := talib.Atr(highs, lows, closes, 14)
	returns := contracts.DailyReturns(bars)

	return &contracts.Benchmark{
		Date:  bars[last].Date,
		Close: closes[last],

		Return1M: closes[last]/closes[last-days1M] - 1,
		Return3M: closes[last]/closes[last-days3M] - 1,
		Return6M: closes[last]/closes[last-days6M] - 1,

		ATR14: atr14[last],
		Vol30: tailStdDev(returns, 30),
		VIX:   vix,
	}, nil
}

// maSlope is the per-day fractional change of a moving average over a
// lookback equal to its own period
func maSlope(ma []float64, period int) float64 {
	last := len(ma) - 1
	lookback := period
	// first defined MA value sits at index period-1
	if last-lookback < period-1 {
		lookback = last - (period - 1)
	}
	if lookback <= 0 {
		return 0
	}
	then := ma[last-lookback]
	if then == 0 {
		return 0
	}
	return (ma[last]/then - 1) / float64(lookback)
}

// tailStdDev is the sample stddev of the last n values
func tailStdDev(values []float64, n int) float64 {
	if len(values) < 2 {
		return 0
	}
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return stat.StdDev(values, nil)
}

// extremes returns the max high and min low over the last n bars
func extremes(bars []contracts.DailyBar, n int) (high, low float64) {
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	high = bars[0].High
	low = bars[0].Low
	for _, b := range bars[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low
}
