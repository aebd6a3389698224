package s6_portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/config"
	"github.com/rohanmb/swingline/pkg/logger"
)

// correlationDays is the daily-return window for the pairwise filter
const correlationDays = 60

// minCorrelationObs is the fewest aligned observations worth trusting;
// below this the pair is treated as uncorrelated
const minCorrelationObs = 30

// Constructor runs S6: greedy conviction-ordered selection under
// correlation, sector and capital constraints
type Constructor struct {
	sizing contracts.SizingRepository
	setups contracts.SetupRepository
	stocks contracts.StockRepository
	bars   contracts.BarRepository
	repo   contracts.PortfolioRepository
	cfg    config.PortfolioConfig
	log    *logger.Logger
}

// NewConstructor creates the portfolio constructor
func NewConstructor(
	sizing contracts.SizingRepository,
	setups contracts.SetupRepository,
	stocks contracts.StockRepository,
	bars contracts.BarRepository,
	repo contracts.PortfolioRepository,
	cfg config.PortfolioConfig,
	log *logger.Logger,
) *Constructor {
	return &Constructor{
		sizing: sizing,
		setups: setups,
		stocks: stocks,
		bars:   bars,
		repo:   repo,
		cfg:    cfg,
		log:    log.WithField("stage", contracts.StagePortfolio.ShortName()),
	}
}

var _ contracts.PortfolioConstructor = (*Constructor)(nil)

// candidate joins the per-symbol stage outputs needed for selection
type candidate struct {
	symbol  string
	name    string
	sector  string
	size    contracts.PositionSize
	setup   contracts.TradeSetup
	returns []float64 // 60d daily returns for the correlation filter
}

// Construct selects the week's positions and persists the allocation
func (c *Constructor) Construct(ctx context.Context, week time.Time, regime *contracts.Regime) (*contracts.PortfolioAllocation, error) {
	if regime.Gated() {
		alloc := emptyAllocation(week, "regime blocks new positions")
		if err := c.repo.Upsert(ctx, alloc); err != nil {
			return nil, fmt.Errorf("upsert portfolio: %w", err)
		}
		c.log.WithField("state", string(regime.State)).Info("Regime gated, empty portfolio")
		return alloc, nil
	}

	cands, err := c.collectCandidates(ctx, week)
	if err != nil {
		return nil, err
	}

	alloc := allocate(week, cands, &c.cfg, regime.Thresholds.CashReservePct)
	if err := c.repo.Upsert(ctx, alloc); err != nil {
		return nil, fmt.Errorf("upsert portfolio: %w", err)
	}

	c.log.WithFields(map[string]interface{}{
		"candidates":           len(cands),
		"selected":             len(alloc.Positions),
		"correlation_filtered": alloc.CorrelationFiltered,
		"sector_filtered":      alloc.SectorFiltered,
		"capital_filtered":     alloc.CapitalFiltered,
		"allocated_pct":        alloc.AllocatedPct,
	}).Info("Portfolio constructed")

	return alloc, nil
}

func (c *Constructor) collectCandidates(ctx context.Context, week time.Time) ([]candidate, error) {
	sizes, err := c.sizing.GetQualified(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get qualified sizes: %w", err)
	}

	setups, err := c.setups.GetByWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("get trade setups: %w", err)
	}
	setupBySymbol := make(map[string]contracts.TradeSetup, len(setups))
	for _, s := range setups {
		setupBySymbol[s.Symbol] = s
	}

	cands := make([]candidate, 0, len(sizes))
	for _, size := range sizes {
		setup, ok := setupBySymbol[size.Symbol]
		if !ok {
			c.log.WithField("symbol", size.Symbol).Warn("Sized position without a setup, skipping")
			continue
		}

		stock, err := c.stocks.GetBySymbol(ctx, size.Symbol)
		if err != nil {
			return nil, fmt.Errorf("get stock %s: %w", size.Symbol, err)
		}

		bars, err := c.bars.GetDaily(ctx, size.Symbol, correlationDays+1)
		if err != nil {
			return nil, fmt.Errorf("get daily bars for %s: %w", size.Symbol, err)
		}

		cands = append(cands, candidate{
			symbol:  size.Symbol,
			name:    stock.Name,
			sector:  stock.Sector,
			size:    size,
			setup:   setup,
			returns: contracts.DailyReturns(bars),
		})
	}
	return cands, nil
}

// allocate is the pure greedy selection over joined candidates
func allocate(week time.Time, cands []candidate, cfg *config.PortfolioConfig, cashReservePct float64) *contracts.PortfolioAllocation {
	if len(cands) == 0 {
		return emptyAllocation(week, "no qualified candidates")
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].setup.QualityComposite > cands[j].setup.QualityComposite
	})

	alloc := &contracts.PortfolioAllocation{
		Week:             week,
		Positions:        make([]contracts.AllocatedPosition, 0, cfg.MaxPositions),
		SectorAllocation: make(map[string]float64),
		Status:           contracts.StatusDraft,
		CalculatedAt:     time.Now(),
	}

	selected := make([]candidate, 0, cfg.MaxPositions)
	sectorCount := make(map[string]int)
	sectorValue := make(map[string]float64)
	investable := (1 - cashReservePct) * cfg.Value
	cumulative := 0.0
	totalRisk := 0.0

	for _, cand := range cands {
		if len(selected) == cfg.MaxPositions {
			break
		}
		if tooCorrelated(cand, selected, cfg.MaxCorrelation) {
			alloc.CorrelationFiltered++
			continue
		}
		value := cand.size.PositionValue
		if sectorCount[cand.sector] >= cfg.MaxSectorCount ||
			sectorValue[cand.sector]+value > cfg.MaxSectorPct*cfg.Value {
			alloc.SectorFiltered++
			continue
		}
		if cumulative+value > investable {
			alloc.CapitalFiltered++
			continue
		}

		selected = append(selected, cand)
		sectorCount[cand.sector]++
		sectorValue[cand.sector] += value
		cumulative += value
		totalRisk += cand.size.FinalRisk

		alloc.Positions = append(alloc.Positions, contracts.AllocatedPosition{
			Symbol: cand.symbol,
			Name:   cand.name,
			Sector: cand.sector,

			Shares:     cand.size.FinalShares,
			EntryLow:   cand.setup.EntryLow,
			EntryHigh:  cand.setup.EntryHigh,
			Stop:       cand.setup.Stop,
			Target1:    cand.setup.Target1,
			Target2:    cand.setup.Target2,
			Value:      value,
			RiskAmount: cand.size.FinalRisk,

			QualityComposite: cand.setup.QualityComposite,
			Rank:             len(selected),
		})
	}

	for sector, value := range sectorValue {
		alloc.SectorAllocation[sector] = value / cfg.Value
	}
	alloc.AllocatedPct = cumulative / cfg.Value
	alloc.CashPct = 1 - alloc.AllocatedPct
	alloc.TotalRiskPct = totalRisk / cfg.Value

	if len(alloc.Positions) == 0 {
		alloc.Reason = "all candidates filtered by constraints"
	}
	return alloc
}

// tooCorrelated checks the candidate against every selected position
func tooCorrelated(cand candidate, selected []candidate, ceiling float64) bool {
	for _, s := range selected {
		if corr := pairCorrelation(cand.returns, s.returns); corr > ceiling || corr < -ceiling {
			return true
		}
	}
	return false
}

// pairCorrelation is the Pearson correlation over the aligned tails of
// two daily-return series
func pairCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < minCorrelationObs {
		return 0
	}
	return stat.Correlation(a[len(a)-n:], b[len(b)-n:], nil)
}

func emptyAllocation(week time.Time, reason string) *contracts.PortfolioAllocation {
	return &contracts.PortfolioAllocation{
		Week:             week,
		Positions:        []contracts.AllocatedPosition{},
		SectorAllocation: map[string]float64{},
		CashPct:          1.0,
		Status:           contracts.StatusDraft,
		Reason:           reason,
		CalculatedAt:     time.Now(),
	}
}
