package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohanmb/swingline/pkg/redis"
)

// NSE archive paths. The equity master and index constituent lists are
// published as CSV; the MTF-approved list is an HTML table.
const (
	pathEquityMaster = "/content/equities/EQUITY_L.csv"
	pathMTFList      = "/content/equities/mtf_securities.htm"
)

var indexListPath = map[string]string{
	IndexNifty50:  "/content/indices/ind_nifty50list.csv",
	IndexNifty100: "/content/indices/ind_nifty100list.csv",
	IndexNifty200: "/content/indices/ind_nifty200list.csv",
	IndexNifty500: "/content/indices/ind_nifty500list.csv",
}

// browser-ish headers; the archives host rejects default Go user agents
var nseHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
	"Accept":     "text/csv,text/html,application/xhtml+xml,*/*",
}

// FetchInstruments downloads and parses the NSE equity master list
func (c *Client) FetchInstruments(ctx context.Context) ([]Instrument, error) {
	var instruments []Instrument
	err := c.cache.GetOrSet(ctx, "instruments:nse", &instruments, redis.TTLLong, func() (interface{}, error) {
		return c.fetchInstruments(ctx)
	})
	if err != nil {
		return nil, err
	}
	return instruments, nil
}

func (c *Client) fetchInstruments(ctx context.Context) ([]Instrument, error) {
	rows, err := c.fetchCSV(ctx, c.cfg.NSEBaseURL+pathEquityMaster)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch equity master: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("equity master returned no rows")
	}

	col := headerIndex(rows[0])
	instruments := make([]Instrument, 0, len(rows)-1)
	for _, row := range rows[1:] {
		series := field(row, col, "SERIES")
		// Only the rolling-settlement equity series is tradable for us
		if series != "EQ" {
			continue
		}
		instruments = append(instruments, Instrument{
			Symbol:  field(row, col, "SYMBOL"),
			Name:    field(row, col, "NAME OF COMPANY"),
			ISIN:    field(row, col, "ISIN NUMBER"),
			Segment: "NSE_EQ",
			Type:    "EQ",
			LotSize: 1,
		})
	}

	c.log.WithField("count", len(instruments)).Info("Fetched NSE equity master")
	return instruments, nil
}

// FetchIndexConstituents returns the symbol set for a Nifty index
func (c *Client) FetchIndexConstituents(ctx context.Context, index string) (map[string]bool, error) {
	path, ok := indexListPath[index]
	if !ok {
		return nil, fmt.Errorf("unknown index: %s", index)
	}

	var symbols []string
	err := c.cache.GetOrSet(ctx, redis.IndexConstituentsKey(index), &symbols, redis.TTLLong, func() (interface{}, error) {
		rows, err := c.fetchCSV(ctx, c.cfg.NSEBaseURL+path)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s constituents: %w", index, err)
		}
		if len(rows) < 2 {
			return nil, fmt.Errorf("%s constituent list returned no rows", index)
		}

		col := headerIndex(rows[0])
		out := make([]string, 0, len(rows)-1)
		for _, row := range rows[1:] {
			if s := field(row, col, "Symbol"); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set, nil
}

// FetchMTFList scrapes the MTF-approved securities table
func (c *Client) FetchMTFList(ctx context.Context) (map[string]bool, error) {
	var symbols []string
	err := c.cache.GetOrSet(ctx, "mtf:nse", &symbols, redis.TTLLong, func() (interface{}, error) {
		return c.fetchMTFList(ctx)
	})
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set, nil
}

func (c *Client) fetchMTFList(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.GetWithHeaders(ctx, c.cfg.NSEBaseURL+pathMTFList, nseHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch MTF list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("MTF list returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MTF list HTML: %w", err)
	}

	var symbols []string
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		symbol := strings.TrimSpace(cells.Eq(1).Text())
		if symbol != "" {
			symbols = append(symbols, symbol)
		}
	})

	if len(symbols) == 0 {
		return nil, fmt.Errorf("MTF list parse found no symbols")
	}

	c.log.WithField("count", len(symbols)).Info("Fetched MTF-approved list")
	return symbols, nil
}

// fetchCSV gets a URL and parses it as CSV, tolerating ragged rows
func (c *Client) fetchCSV(ctx context.Context, url string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.GetWithHeaders(ctx, url, nseHeaders)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CSV parse failed for %s: %w", url, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerIndex maps trimmed header names to column positions
func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
