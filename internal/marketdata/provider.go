package marketdata

import (
	"context"

	"github.com/rohanmb/swingline/internal/contracts"
)

// Instrument is one row of the NSE equity master
type Instrument struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	ISIN     string  `json:"isin"`
	Segment  string  `json:"segment"`         // NSE_EQ
	Type     string  `json:"instrument_type"` // EQ
	Sector   string  `json:"sector"`
	LotSize  int     `json:"lot_size"`
	TickSize float64 `json:"tick_size"`
}

// Tracked Nifty indexes, in containment order
const (
	IndexNifty50  = "NIFTY50"
	IndexNifty100 = "NIFTY100"
	IndexNifty200 = "NIFTY200"
	IndexNifty500 = "NIFTY500"
)

// Sector indexes used by the regime leadership sub-score. Cyclicals
// minus defensives is the leadership spread.
var (
	CyclicalIndexes  = []string{"NIFTYBANK", "NIFTYMETAL", "NIFTYREALTY", "NIFTYAUTO"}
	DefensiveIndexes = []string{"NIFTYPHARMA", "NIFTYFMCG", "NIFTYIT"}
)

// ReferenceProvider serves the slowly changing reference data (S1 inputs)
type ReferenceProvider interface {
	FetchInstruments(ctx context.Context) ([]Instrument, error)
	FetchMTFList(ctx context.Context) (map[string]bool, error)
	FetchIndexConstituents(ctx context.Context, index string) (map[string]bool, error)
}

// BarProvider serves OHLCV series. A symbol whose fetch fails after
// retry is omitted from batch results (logged, not fatal); a benchmark
// failure is fatal for the calling stage.
type BarProvider interface {
	FetchDaily(ctx context.Context, symbol string, horizonDays int) ([]contracts.DailyBar, error)
	FetchBatch(ctx context.Context, symbols []string, horizonDays int) (map[string][]contracts.DailyBar, error)
	FetchBenchmark(ctx context.Context, horizonDays int) ([]contracts.DailyBar, error)
	FetchSectorIndex(ctx context.Context, index string, days int) ([]contracts.DailyBar, error)
	// FetchVIX returns the India VIX daily series, empty if unavailable
	FetchVIX(ctx context.Context) ([]contracts.DailyBar, error)
}

// FundamentalProvider serves the optional monthly fundamentals and
// institutional holdings
type FundamentalProvider interface {
	FetchFundamentals(ctx context.Context, symbol string) (*contracts.FundamentalScore, error)
	FetchHoldings(ctx context.Context, symbol string) (*contracts.Holdings, error)
}

// Provider is the full adapter surface the pipeline consumes
type Provider interface {
	ReferenceProvider
	BarProvider
	FundamentalProvider
}
