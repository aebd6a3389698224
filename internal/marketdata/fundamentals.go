package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/redis"
)

// FMP lists NSE equities under the .NS suffix
const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// NSE shareholding endpoint; the www host wants full browser headers
const pathShareholding = "/api/corporate-shareholding?index=equities&symbol="

var holdingsHeaders = map[string]string{
	"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Accept":           "application/json, text/javascript, */*; q=0.01",
	"Referer":          "https://www.nseindia.com/",
	"X-Requested-With": "XMLHttpRequest",
}

type fmpIncomeStatement struct {
	Date            string  `json:"date"`
	Revenue         float64 `json:"revenue"`
	OperatingIncome float64 `json:"operatingIncome"`
	EPS             float64 `json:"eps"`
}

type fmpBalanceSheet struct {
	TotalDebt               float64 `json:"totalDebt"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
}

type fmpCashFlow struct {
	FreeCashFlow float64 `json:"freeCashFlow"`
}

type fmpKeyMetrics struct {
	ReturnOnEquity          float64 `json:"returnOnEquity"`
	ReturnOnCapitalEmployed float64 `json:"returnOnCapitalEmployed"`
	MarketCap               float64 `json:"marketCap"`
}

type shareholdingResponse struct {
	Shareholding []struct {
		Category   string      `json:"category"`
		Percentage json.Number `json:"percentage"`
		PledgePct  json.Number `json:"pledgePercentage"`
	} `json:"shareholding"`
}

// FetchFundamentals builds the raw fundamental snapshot for one symbol
// from the FMP quarterly statements. Returns nil when the feature is
// not configured or FMP has no coverage for the symbol; both are
// normal, fundamentals are optional input.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (*contracts.FundamentalScore, error) {
	if c.cfg.FMPAPIKey == "" {
		return nil, nil
	}

	var cached contracts.FundamentalScore
	if ok, err := c.cache.Get(ctx, redis.FundamentalsKey(symbol), &cached); err == nil && ok {
		return &cached, nil
	}

	score, err := c.fetchFundamentals(ctx, symbol)
	if err != nil || score == nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, redis.FundamentalsKey(symbol), score, redis.TTLDaily); err != nil {
		c.log.WithError(err).Warn("Fundamentals cache write failed")
	}
	return score, nil
}

func (c *Client) fetchFundamentals(ctx context.Context, symbol string) (*contracts.FundamentalScore, error) {
	var income []fmpIncomeStatement
	if err := c.fetchFMP(ctx, "income-statement", symbol, 4, &income); err != nil {
		return nil, err
	}
	if len(income) < 2 {
		c.log.WithField("symbol", symbol).Warn("FMP has no quarterly statements")
		return nil, nil
	}

	// the remaining statements are best effort, partial snapshots still score
	var balance []fmpBalanceSheet
	if err := c.fetchFMP(ctx, "balance-sheet-statement", symbol, 1, &balance); err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("FMP balance sheet unavailable")
	}
	var cashFlow []fmpCashFlow
	if err := c.fetchFMP(ctx, "cash-flow-statement", symbol, 1, &cashFlow); err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("FMP cash flow unavailable")
	}
	var metrics []fmpKeyMetrics
	if err := c.fetchFMP(ctx, "key-metrics", symbol, 1, &metrics); err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("FMP key metrics unavailable")
	}

	score := &contracts.FundamentalScore{Symbol: symbol}

	if prev := income[1].EPS; prev != 0 {
		score.EPSQoQ = (income[0].EPS - prev) / math.Abs(prev)
	}
	// YoY against the same quarter last year when four quarters exist
	if len(income) >= 4 && income[3].Revenue > 0 {
		score.RevenueYoY = (income[0].Revenue - income[3].Revenue) / income[3].Revenue
	} else if income[1].Revenue > 0 {
		score.RevenueYoY = (income[0].Revenue - income[1].Revenue) / income[1].Revenue
	}
	if income[0].Revenue > 0 {
		score.OperatingMargin = income[0].OperatingIncome / income[0].Revenue
	}

	if len(balance) > 0 && balance[0].TotalStockholdersEquity > 0 {
		score.DebtToEquity = balance[0].TotalDebt / balance[0].TotalStockholdersEquity
	}
	if len(metrics) > 0 {
		score.ROE = metrics[0].ReturnOnEquity
		score.ROCE = metrics[0].ReturnOnCapitalEmployed
		if len(cashFlow) > 0 && metrics[0].MarketCap > 0 {
			score.FCFYield = cashFlow[0].FreeCashFlow / metrics[0].MarketCap
		}
	}

	if asOf, err := time.Parse("2006-01-02", income[0].Date); err == nil {
		score.AsOf = asOf
	}
	return score, nil
}

// fetchFMP calls one quarterly-statement endpoint and decodes the array
func (c *Client) fetchFMP(ctx context.Context, endpoint, symbol string, limit int, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/%s/%s?period=quarter&limit=%d&apikey=%s",
		fmpBaseURL, endpoint, url.PathEscape(symbol+".NS"), limit, url.QueryEscape(c.cfg.FMPAPIKey))

	resp, err := c.http.GetWithHeaders(ctx, reqURL, map[string]string{"Accept": "application/json"})
	if err != nil {
		return fmt.Errorf("FMP %s fetch failed for %s: %w", endpoint, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FMP %s for %s returned status %d", endpoint, symbol, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("FMP %s decode failed for %s: %w", endpoint, symbol, err)
	}
	return nil
}

// FetchHoldings reads the NSE shareholding pattern for one symbol.
// Returns nil on any failure, holdings are optional enrichment.
func (c *Client) FetchHoldings(ctx context.Context, symbol string) (*contracts.Holdings, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.cfg.HoldingsBaseURL + pathShareholding + url.QueryEscape(symbol)
	resp, err := c.http.GetWithHeaders(ctx, reqURL, holdingsHeaders)
	if err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("Shareholding fetch failed")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.WithFields(map[string]interface{}{
			"symbol": symbol,
			"status": resp.StatusCode,
		}).Warn("Shareholding fetch rejected")
		return nil, nil
	}

	var envelope shareholdingResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.log.WithError(err).WithField("symbol", symbol).Warn("Shareholding decode failed")
		return nil, nil
	}
	if len(envelope.Shareholding) == 0 {
		return nil, nil
	}

	holdings := &contracts.Holdings{Symbol: symbol, AsOf: time.Now()}
	for _, row := range envelope.Shareholding {
		pct, _ := row.Percentage.Float64()
		category := strings.ToLower(row.Category)
		switch {
		case strings.Contains(category, "foreign"):
			holdings.FIIPct = pct
		case strings.Contains(category, "mutual fund"), strings.Contains(category, "insurance"):
			holdings.DIIPct += pct
		case strings.Contains(category, "promoter"):
			if pledge, err := row.PledgePct.Float64(); err == nil {
				holdings.PromoterPledge = pledge
			}
		}
	}
	return holdings, nil
}
