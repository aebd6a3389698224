package s4_setup

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/rohanmb/swingline/internal/contracts"
)

// maxConfidence caps every pattern score; no daily-bar pattern read is
// certain enough to justify more.
const maxConfidence = 95

// match is a recognized pattern before level construction
type match struct {
	setupType  contracts.SetupType
	support    float64
	confidence float64
}

// detectPattern tries the four recognizers in priority order and
// returns the first hit the regime allows
func detectPattern(bars []contracts.DailyBar, ind *contracts.IndicatorSet, th *contracts.Thresholds) *match {
	type recognizer struct {
		setupType contracts.SetupType
		fn        func([]contracts.DailyBar, *contracts.IndicatorSet) *match
	}
	order := []recognizer{
		{contracts.SetupPullback, detectPullback},
		{contracts.SetupVCPBreakout, detectVCPBreakout},
		{contracts.SetupRetest, detectRetest},
		{contracts.SetupGapFill, detectGapFill},
	}

	for _, r := range order {
		if !th.SetupAllowed(r.setupType) {
			continue
		}
		if m := r.fn(bars, ind); m != nil {
			return m
		}
	}
	return nil
}

// detectPullback looks for a low-volume retreat to a rising moving
// average inside an intact uptrend.
//
// Required: close within [0.95, 1.03] of either sma20 or sma50, 3-day
// volume dried up to <= 0.70x the 20-day average, RSI in the 35-55
// pullback zone, MACD histogram turning up, and close > sma50 >
// sma200.
func detectPullback(bars []contracts.DailyBar, ind *contracts.IndicatorSet) *match {
	if len(bars) < 20 {
		return nil
	}
	last := bars[len(bars)-1]
	if ind.SMA20 <= 0 || ind.SMA50 <= 0 {
		return nil
	}

	nearSupport := nearMA(last.Close, ind.SMA20) || nearMA(last.Close, ind.SMA50)
	vol20 := avgVolume(bars, 20)
	vol3 := avgVolume(bars, 3)
	volDried := vol20 > 0 && vol3 <= 0.70*vol20
	rsiZone := ind.RSI14 >= 35 && ind.RSI14 <= 55
	histTurning := ind.MACDHist > ind.MACDHistPrev
	uptrend := last.Close > ind.SMA50 && ind.SMA50 > ind.SMA200

	if !(nearSupport && volDried && rsiZone && histTurning && uptrend) {
		return nil
	}

	conf := 60.0
	if ind.MACDHistPrev <= 0 {
		// cross from below zero, the strongest form of the turn
		conf += 7
	}
	if ind.RSI14 >= 40 && ind.RSI14 <= 50 {
		conf += 7
	}
	if vol3 <= 0.55*vol20 {
		conf += 7
	}
	if isHammer(last) {
		conf += 10
	}

	return &match{
		setupType:  contracts.SetupPullback,
		support:    ind.SMA20,
		confidence: math.Min(maxConfidence, conf),
	}
}

// detectVCPBreakout looks for a volatility-contraction base: a tight
// 20-day range with the close coiled near the top and ATR shrinking
// against three weeks ago.
func detectVCPBreakout(bars []contracts.DailyBar, ind *contracts.IndicatorSet) *match {
	const window = 20
	if len(bars) < window+36 {
		return nil
	}

	recent := bars[len(bars)-window:]
	hi, lo := rangeOf(recent)
	if lo <= 0 || hi <= lo {
		return nil
	}
	last := recent[len(recent)-1]

	rangePct := (hi - lo) / lo
	mid := (hi + lo) / 2
	nearMid := math.Abs(last.Close-mid)/mid <= 0.05
	rangePos := (last.Close - lo) / (hi - lo)

	atrThen := atrAt(bars, 21)
	contracting := atrThen > 0 && ind.ATR14 < atrThen

	if !(rangePct <= 0.12 && nearMid && contracting && rangePos >= 0.70) {
		return nil
	}

	conf := 55.0
	if rangePct <= 0.09 {
		conf += 8
	}
	if ind.ATR14 < 0.90*atrThen {
		conf += 8
	}
	if rangePos >= 0.85 {
		conf += 8
	}
	if weeklyRangesTightening(recent) {
		conf += 8
	}

	return &match{
		setupType:  contracts.SetupVCPBreakout,
		support:    hi,
		confidence: math.Min(maxConfidence, conf),
	}
}

// detectRetest looks for a high-volume breakout two to three weeks
// back that has since pulled back to the breakout level on drying
// volume while holding a higher low.
func detectRetest(bars []contracts.DailyBar, ind *contracts.IndicatorSet) *match {
	const (
		oldest = 20 // bars back where the breakout may sit
		newest = 8
	)
	if len(bars) < oldest+25 {
		return nil
	}
	last := bars[len(bars)-1]

	// most recent qualifying breakout bar wins
	breakoutIdx := -1
	for i := len(bars) - newest - 1; i >= len(bars)-oldest-1; i-- {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		gain := bars[i].Close/prev - 1
		volBase := avgVolumeBefore(bars, i, 20)
		if gain > 0.02 && volBase > 0 && float64(bars[i].Volume) >= 2.5*volBase {
			breakoutIdx = i
			break
		}
	}
	if breakoutIdx < 0 {
		return nil
	}

	breakoutLevel := bars[breakoutIdx].Close
	breakoutVol := float64(bars[breakoutIdx].Volume)
	holding := last.Close >= 0.97*breakoutLevel
	vol5 := avgVolume(bars, 5)
	volDried := vol5 <= 0.60*breakoutVol
	higherLow := retestHigherLow(bars, breakoutIdx)

	if !(holding && volDried && higherLow) {
		return nil
	}

	volBase := avgVolumeBefore(bars, breakoutIdx, 20)
	conf := 60.0
	if volBase > 0 && breakoutVol >= 3.0*volBase {
		conf += 9
	}
	if last.Close >= breakoutLevel {
		conf += 9
	}
	if vol5 <= 0.45*breakoutVol {
		conf += 9
	}

	return &match{
		setupType:  contracts.SetupRetest,
		support:    breakoutLevel,
		confidence: math.Min(maxConfidence, conf),
	}
}

// detectGapFill looks for a small up-gap over a rising 20-day average
// that has been partially filled and is holding above the pre-gap
// close.
func detectGapFill(bars []contracts.DailyBar, ind *contracts.IndicatorSet) *match {
	if len(bars) < 32 {
		return nil
	}
	last := bars[len(bars)-1]

	// most recent qualifying gap in the last ten sessions, excluding
	// today so a fill has room to develop
	for g := len(bars) - 2; g >= len(bars)-10; g-- {
		gapBottom := bars[g-1].Close
		gapTop := bars[g].Open
		if gapBottom <= 0 || gapTop <= gapBottom {
			continue
		}
		gapPct := gapTop/gapBottom - 1
		if gapPct < 0.005 || gapPct > 0.02 {
			continue
		}

		volBase := avgVolumeBefore(bars, g, 20)
		if volBase <= 0 || float64(bars[g].Volume) < 1.8*volBase {
			continue
		}
		if gapTop <= ind.SMA20 || ind.Slope20 <= 0 {
			continue
		}

		low := minLow(bars[g:])
		fill := (gapTop - low) / (gapTop - gapBottom)
		if fill < 0.50 || fill > 0.75 {
			continue
		}
		if last.Close < gapBottom {
			continue
		}

		conf := 55.0
		if float64(bars[g].Volume) >= 2.2*volBase {
			conf += 8
		}
		if fill >= 0.55 && fill <= 0.70 {
			conf += 8
		}
		if last.Close > ind.SMA50 {
			conf += 8
		}

		return &match{
			setupType:  contracts.SetupGapFill,
			support:    gapTop,
			confidence: math.Min(maxConfidence, conf),
		}
	}
	return nil
}

// nearMA reports close within the 0.95-1.03 pullback band of a moving
// average
func nearMA(close, ma float64) bool {
	return close >= 0.95*ma && close <= 1.03*ma
}

// isHammer reports a long lower wick with a small bullish body
func isHammer(b contracts.DailyBar) bool {
	body := math.Abs(b.Close - b.Open)
	lowerWick := math.Min(b.Open, b.Close) - b.Low
	return b.Close >= b.Open && body > 0 && lowerWick >= 2*body
}

// weeklyRangesTightening checks that each of the last three 5-bar
// blocks has a smaller high-low range than the one before it
func weeklyRangesTightening(bars []contracts.DailyBar) bool {
	if len(bars) < 15 {
		return false
	}
	ranges := make([]float64, 3)
	for k := 0; k < 3; k++ {
		end := len(bars) - k*5
		hi, lo := rangeOf(bars[end-5 : end])
		ranges[k] = hi - lo
	}
	// ranges[0] is the latest week
	return ranges[0] < ranges[1] && ranges[1] < ranges[2]
}

// retestHigherLow checks the last five sessions hold above the lows of
// the stretch between the breakout and the retest
func retestHigherLow(bars []contracts.DailyBar, breakoutIdx int) bool {
	mid := bars[breakoutIdx+1 : len(bars)-5]
	if len(mid) == 0 {
		return true
	}
	return minLow(bars[len(bars)-5:]) > minLow(mid)
}

// atrAt recomputes ATR(14) as of barsBack sessions ago
func atrAt(bars []contracts.DailyBar, barsBack int) float64 {
	end := len(bars) - barsBack
	if end < 15 {
		return 0
	}
	highs := make([]float64, end)
	lows := make([]float64, end)
	closes := make([]float64, end)
	for i := 0; i < end; i++ {
		highs[i] = bars[i].High
		lows[i] = bars[i].Low
		closes[i] = bars[i].Close
	}
	atr := talib.Atr(highs, lows, closes, 14)
	return atr[len(atr)-1]
}

func avgVolume(bars []contracts.DailyBar, n int) float64 {
	return avgVolumeBefore(bars, len(bars), n)
}

// avgVolumeBefore averages volume over the n bars preceding index end
func avgVolumeBefore(bars []contracts.DailyBar, end, n int) float64 {
	start := end - n
	if start < 0 {
		start = 0
	}
	if start >= end {
		return 0
	}
	vols := make([]float64, 0, end-start)
	for _, b := range bars[start:end] {
		vols = append(vols, float64(b.Volume))
	}
	return stat.Mean(vols, nil)
}

func rangeOf(bars []contracts.DailyBar) (hi, lo float64) {
	lo = math.MaxFloat64
	for _, b := range bars {
		if b.High > hi {
			hi = b.High
		}
		if b.Low < lo {
			lo = b.Low
		}
	}
	return hi, lo
}

func minLow(bars []contracts.DailyBar) float64 {
	lo := math.MaxFloat64
	for _, b := range bars {
		if b.Low < lo {
			lo = b.Low
		}
	}
	return lo
}
