package s1_universe

import (
	"context"
	"fmt"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/logger"
)

// Builder constructs the tradable universe from the NSE reference data.
// MTF eligibility is the liquidity proxy; index membership is the
// quality bonus. Symbols with neither are Tier D and never persisted
// as active.
type Builder struct {
	provider marketdata.ReferenceProvider
	repo     contracts.StockRepository
	log      *logger.Logger
}

// NewBuilder creates the universe builder
func NewBuilder(provider marketdata.ReferenceProvider, repo contracts.StockRepository, log *logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		repo:     repo,
		log:      log.WithField("stage", contracts.StageUniverse.ShortName()),
	}
}

var _ contracts.UniverseBuilder = (*Builder)(nil)

// Build fetches reference data, scores every instrument, upserts the
// universe, and deactivates symbols that disappeared since the last run
// SSOT: quality score and tier are assigned here and nowhere else
func (b *Builder) Build(ctx context.Context, week time.Time) (*contracts.UniverseResult, error) {
	instruments, err := b.provider.FetchInstruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}

	mtf, err := b.provider.FetchMTFList(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch MTF list: %w", err)
	}

	indexes := make(map[string]map[string]bool, 4)
	for _, index := range []string{
		marketdata.IndexNifty50,
		marketdata.IndexNifty100,
		marketdata.IndexNifty200,
		marketdata.IndexNifty500,
	} {
		set, err := b.provider.FetchIndexConstituents(ctx, index)
		if err != nil {
			return nil, fmt.Errorf("fetch %s constituents: %w", index, err)
		}
		indexes[index] = set
	}

	result := &contracts.UniverseResult{
		Week:       week,
		TierCounts: make(map[contracts.Tier]int),
	}

	now := time.Now()
	stocks := make([]contracts.Stock, 0, len(instruments))
	kept := make([]string, 0, len(instruments))

	for _, inst := range instruments {
		stock := scoreInstrument(inst, mtf, indexes)
		stock.CalculatedAt = now
		result.TierCounts[stock.Tier]++

		// Tier D never enters the universe table
		if stock.Tier == contracts.TierD {
			continue
		}

		stocks = append(stocks, stock)
		kept = append(kept, stock.Symbol)
		if stock.HighQuality() {
			result.HighQuality++
		}
	}
	result.Total = len(stocks)

	if err := b.repo.UpsertBatch(ctx, stocks); err != nil {
		return nil, fmt.Errorf("upsert universe: %w", err)
	}

	deactivated, err := b.repo.DeactivateMissing(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("deactivate missing: %w", err)
	}
	result.Deactivated = deactivated

	b.log.WithFields(map[string]interface{}{
		"total":        result.Total,
		"high_quality": result.HighQuality,
		"deactivated":  result.Deactivated,
		"tier_a":       result.TierCounts[contracts.TierA],
		"tier_b":       result.TierCounts[contracts.TierB],
		"tier_c":       result.TierCounts[contracts.TierC],
	}).Info("Universe built")

	return result, nil
}

// scoreInstrument applies the MTF base plus index-membership bonus
func scoreInstrument(inst marketdata.Instrument, mtf map[string]bool, indexes map[string]map[string]bool) contracts.Stock {
	stock := contracts.Stock{
		Symbol:  inst.Symbol,
		Name:    inst.Name,
		ISIN:    inst.ISIN,
		Sector:  inst.Sector,
		LotSize: inst.LotSize,

		IsMTF:      mtf[inst.Symbol],
		InNifty50:  indexes[marketdata.IndexNifty50][inst.Symbol],
		InNifty100: indexes[marketdata.IndexNifty100][inst.Symbol],
		InNifty200: indexes[marketdata.IndexNifty200][inst.Symbol],
		InNifty500: indexes[marketdata.IndexNifty500][inst.Symbol],
	}

	if !stock.IsMTF && !stock.InAnyIndex() {
		stock.Tier = contracts.TierD
		return stock
	}

	base := 0
	if stock.IsMTF {
		base = 40
	}

	// narrowest index membership wins
	bonus := 0
	switch {
	case stock.InNifty50:
		bonus = 50
	case stock.InNifty100:
		bonus = 35
	case stock.InNifty200:
		bonus = 25
	case stock.InNifty500:
		bonus = 20
	}

	stock.QualityScore = base + bonus
	stock.Tier = contracts.TierFor(stock.QualityScore)
	stock.Active = stock.Tier != contracts.TierD
	return stock
}
