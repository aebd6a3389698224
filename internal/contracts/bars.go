package contracts

import "time"

// DailyBar is one day of OHLCV for a symbol
type DailyBar struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	Turnover float64   `json:"turnover"` // close * volume, INR
}

// WeeklyBar is the ISO-week aggregate of daily bars:
// open = first open, high = max high, low = min low, close = last close,
// volume = sum. Partial final weeks are never persisted.
type WeeklyBar struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"` // Monday 00:00
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Return is the weekly close-over-open return
func (w *WeeklyBar) Return() float64 {
	if w.Open == 0 {
		return 0
	}
	return (w.Close - w.Open) / w.Open
}

// IndicatorSet holds the locally computed indicators for the latest bar
// of a symbol. Formulas: simple SMA, Wilder ATR(14), Wilder RSI(14),
// MACD(12,26,9). Slopes are per-day fractional slopes over the MA window.
type IndicatorSet struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA200 float64 `json:"sma200"`

	ATR14    float64 `json:"atr14"`
	RSI14    float64 `json:"rsi14"`
	MACDHist float64 `json:"macd_hist"`
	// Previous bar's MACD histogram, for cross-up detection
	MACDHistPrev float64 `json:"macd_hist_prev"`

	Vol20 float64 `json:"vol20"` // 20d stddev of daily returns
	Vol30 float64 `json:"vol30"` // 30d stddev of daily returns

	Slope20  float64 `json:"slope20"`  // per-day fractional slope
	Slope50  float64 `json:"slope50"`
	Slope200 float64 `json:"slope200"`

	High52 float64 `json:"high52"`
	Low52  float64 `json:"low52"`
}

// Benchmark holds Nifty 50 context for a run date
type Benchmark struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`

	Return1M float64 `json:"return_1m"`
	Return3M float64 `json:"return_3m"`
	Return6M float64 `json:"return_6m"`

	ATR14 float64 `json:"atr14"`
	Vol30 float64 `json:"vol30"`

	// India VIX close if available; 0 means unavailable and the regime
	// classifier substitutes realized 20d volatility.
	VIX float64 `json:"vix"`
}

// DailyReturns converts a chronological bar series to daily returns
func DailyReturns(bars []DailyBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-bars[i-1].Close)/bars[i-1].Close)
	}
	return returns
}

// WeeklyReturns converts a chronological weekly series to close-to-close
// returns
func WeeklyReturns(bars []WeeklyBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-bars[i-1].Close)/bars[i-1].Close)
	}
	return returns
}
