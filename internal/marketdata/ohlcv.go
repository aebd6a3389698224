package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/redis"
)

// benchmark and volatility index instruments
const (
	instrumentNifty50 = "NSE_INDEX:NIFTY 50"
	instrumentVIX     = "NSE_INDEX:INDIA VIX"
)

var sectorInstrument = map[string]string{
	"NIFTYBANK":   "NSE_INDEX:NIFTY BANK",
	"NIFTYMETAL":  "NSE_INDEX:NIFTY METAL",
	"NIFTYREALTY": "NSE_INDEX:NIFTY REALTY",
	"NIFTYAUTO":   "NSE_INDEX:NIFTY AUTO",
	"NIFTYPHARMA": "NSE_INDEX:NIFTY PHARMA",
	"NIFTYFMCG":   "NSE_INDEX:NIFTY FMCG",
	"NIFTYIT":     "NSE_INDEX:NIFTY IT",
}

// candleResponse is the OHLCV provider's envelope. Candles arrive
// newest-first as [timestamp, open, high, low, close, volume, oi].
type candleResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]json.Number `json:"candles"`
	} `json:"data"`
}

// fetchResult is one worker's outcome for a symbol
type fetchResult struct {
	Symbol string
	Bars   []contracts.DailyBar
	Err    error
}

// FetchDaily returns the chronological daily series for one symbol
func (c *Client) FetchDaily(ctx context.Context, symbol string, horizonDays int) ([]contracts.DailyBar, error) {
	var bars []contracts.DailyBar
	err := c.cache.GetOrSet(ctx, redis.BarsKey(symbol, horizonDays), &bars, redis.TTLDaily, func() (interface{}, error) {
		return c.fetchCandles(ctx, "NSE_EQ:"+symbol, symbol, horizonDays)
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// FetchBatch fetches daily series for many symbols with a bounded
// worker pool. Symbols that fail after retry are omitted from the
// result and logged; the batch itself only fails on context cancel.
func (c *Client) FetchBatch(ctx context.Context, symbols []string, horizonDays int) (map[string][]contracts.DailyBar, error) {
	workers := c.cfg.BatchConcurrency
	if workers < 1 {
		workers = 1
	}

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan fetchResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range symbolCh {
				bars, err := c.FetchDaily(ctx, symbol, horizonDays)
				resultCh <- fetchResult{Symbol: symbol, Bars: bars, Err: err}
			}
		}()
	}

	for _, s := range symbols {
		symbolCh <- s
	}
	close(symbolCh)

	wg.Wait()
	close(resultCh)

	out := make(map[string][]contracts.DailyBar, len(symbols))
	failed := 0
	for res := range resultCh {
		if res.Err != nil {
			failed++
			c.log.WithFields(map[string]interface{}{
				"symbol": res.Symbol,
				"error":  res.Err.Error(),
			}).Warn("OHLCV fetch failed, symbol omitted")
			continue
		}
		out[res.Symbol] = res.Bars
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.log.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"success":   len(out),
		"failed":    failed,
	}).Info("OHLCV batch fetch completed")

	return out, nil
}

// FetchBenchmark returns the Nifty 50 daily series. Unlike per-symbol
// fetches this is fatal on failure, the pipeline cannot run without it.
func (c *Client) FetchBenchmark(ctx context.Context, horizonDays int) ([]contracts.DailyBar, error) {
	var bars []contracts.DailyBar
	err := c.cache.GetOrSet(ctx, redis.BarsKey("NIFTY50", horizonDays), &bars, redis.TTLDaily, func() (interface{}, error) {
		return c.fetchCandles(ctx, instrumentNifty50, "NIFTY50", horizonDays)
	})
	if err != nil {
		return nil, fmt.Errorf("benchmark fetch failed: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("benchmark fetch returned no bars")
	}
	return bars, nil
}

// FetchSectorIndex returns a sector index daily series
func (c *Client) FetchSectorIndex(ctx context.Context, index string, days int) ([]contracts.DailyBar, error) {
	instrument, ok := sectorInstrument[index]
	if !ok {
		return nil, fmt.Errorf("unknown sector index: %s", index)
	}

	var bars []contracts.DailyBar
	err := c.cache.GetOrSet(ctx, redis.BarsKey(index, days), &bars, redis.TTLDaily, func() (interface{}, error) {
		return c.fetchCandles(ctx, instrument, index, days)
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// vixHorizon covers the 10-day VIX average with slack for holidays
const vixHorizon = 15

// FetchVIX returns the India VIX daily series. VIX is optional input,
// so a failed fetch degrades to an empty series (caller substitutes
// realized vol).
func (c *Client) FetchVIX(ctx context.Context) ([]contracts.DailyBar, error) {
	bars, err := c.fetchCandles(ctx, instrumentVIX, "INDIAVIX", vixHorizon)
	if err != nil || len(bars) == 0 {
		c.log.WithError(err).Warn("VIX fetch failed, falling back to realized volatility")
		return nil, nil
	}
	return bars, nil
}

// fetchCandles calls the historical-candle endpoint and normalizes the
// response to chronological DailyBars
func (c *Client) fetchCandles(ctx context.Context, instrument, symbol string, horizonDays int) ([]contracts.DailyBar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	to := time.Now()
	// calendar-day padding so the window covers horizonDays trading days
	from := to.AddDate(0, 0, -(horizonDays*3/2 + 10))

	reqURL := fmt.Sprintf("%s/historical-candle/%s/day/%s/%s",
		c.cfg.OHLCVBaseURL,
		url.PathEscape(instrument),
		to.Format("2006-01-02"),
		from.Format("2006-01-02"),
	)

	resp, err := c.http.GetWithHeaders(ctx, reqURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("candle fetch failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("candle fetch for %s returned status %d", symbol, resp.StatusCode)
	}

	var envelope candleResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("candle decode failed for %s: %w", symbol, err)
	}

	bars, err := parseCandles(symbol, envelope.Data.Candles)
	if err != nil {
		return nil, err
	}

	bars, dropped := CleanBars(bars)
	for _, reason := range dropped {
		c.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"reason": reason,
		}).Warn("Dropped malformed bar")
	}

	if len(bars) > horizonDays {
		bars = bars[len(bars)-horizonDays:]
	}
	return bars, nil
}

// parseCandles converts provider arrays to bars, oldest first
func parseCandles(symbol string, candles [][]json.Number) ([]contracts.DailyBar, error) {
	bars := make([]contracts.DailyBar, 0, len(candles))

	// provider order is newest-first
	for i := len(candles) - 1; i >= 0; i-- {
		row := candles[i]
		if len(row) < 6 {
			return nil, fmt.Errorf("candle row for %s has %d fields, want 6", symbol, len(row))
		}

		date, err := time.Parse(time.RFC3339, row[0].String())
		if err != nil {
			// some providers send bare dates
			date, err = time.Parse("2006-01-02", row[0].String())
			if err != nil {
				return nil, fmt.Errorf("candle timestamp parse failed for %s: %w", symbol, err)
			}
		}

		open, _ := row[1].Float64()
		high, _ := row[2].Float64()
		low, _ := row[3].Float64()
		closeP, _ := row[4].Float64()
		volume, _ := row[5].Int64()

		bars = append(bars, contracts.DailyBar{
			Symbol:   symbol,
			Date:     date.Truncate(24 * time.Hour),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closeP,
			Volume:   volume,
			Turnover: closeP * float64(volume),
		})
	}
	return bars, nil
}
