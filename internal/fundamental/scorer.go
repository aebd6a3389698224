package fundamental

import (
	"context"
	"strings"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
	"github.com/rohanmb/swingline/pkg/logger"
)

// Component weights of the 0-100 fundamental score
const (
	wGrowth        = 0.30
	wProfitability = 0.30
	wLeverage      = 0.20
	wCashFlow      = 0.20
)

// Qualification thresholds, as fractions. Financials run structurally
// higher leverage and lower ROCE, so they get their own bars.
const (
	epsQoQFloor     = 0.05
	revenueYoYFloor = 0.08
	roceFloor       = 0.18
	roceFloorFin    = 0.12
	roeFloor        = 0.20
	deCeiling       = 0.8
	deCeilingFin    = 4.0
	fcfYieldFloor   = 0.04
)

// Scorer refreshes the optional monthly fundamental snapshots for
// setup-qualified symbols. A missing snapshot never blocks the
// pipeline; downstream conviction weighting renormalizes around it.
type Scorer struct {
	provider marketdata.FundamentalProvider
	stocks   contracts.StockRepository
	repo     contracts.FundamentalRepository
	log      *logger.Logger
}

// NewScorer creates the fundamental scorer
func NewScorer(provider marketdata.FundamentalProvider, stocks contracts.StockRepository, repo contracts.FundamentalRepository, log *logger.Logger) *Scorer {
	return &Scorer{
		provider: provider,
		stocks:   stocks,
		repo:     repo,
		log:      log.WithField("component", "fundamental"),
	}
}

// Refresh fetches, scores and stores snapshots for the given symbols.
// Returns the number of snapshots written; per-symbol failures are
// logged and skipped.
func (s *Scorer) Refresh(ctx context.Context, symbols []string) (int, error) {
	written := 0
	qualified := 0

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		snapshot, err := s.provider.FetchFundamentals(ctx, symbol)
		if err != nil {
			s.log.WithError(err).WithField("symbol", symbol).Warn("Fundamental fetch failed")
			continue
		}
		if snapshot == nil {
			continue
		}

		sector := "Unknown"
		if stock, err := s.stocks.GetBySymbol(ctx, symbol); err == nil {
			sector = stock.Sector
		}

		scoreSnapshot(snapshot, sector)
		snapshot.CalculatedAt = time.Now()

		if err := s.repo.Upsert(ctx, snapshot); err != nil {
			s.log.WithError(err).WithField("symbol", symbol).Warn("Fundamental upsert failed")
			continue
		}
		written++
		if snapshot.Qualified {
			qualified++
		}
	}

	s.log.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"written":   written,
		"qualified": qualified,
	}).Info("Fundamental snapshots refreshed")

	return written, nil
}

// scoreSnapshot fills Score and Qualified on a raw snapshot.
// Qualification needs three of the four component filters to pass.
func scoreSnapshot(f *contracts.FundamentalScore, sector string) {
	fin := isFinancial(sector)

	epsScore := clamp01(f.EPSQoQ/0.10) * 100
	revScore := clamp01(f.RevenueYoY/0.15) * 100
	growth := 0.6*epsScore + 0.4*revScore
	passGrowth := f.EPSQoQ >= epsQoQFloor && f.RevenueYoY >= revenueYoYFloor

	roceBar := roceFloor
	deBar := deCeiling
	if fin {
		roceBar = roceFloorFin
		deBar = deCeilingFin
	}

	roceScore := clamp01(f.ROCE/(roceBar*1.5)) * 100
	roeScore := clamp01(f.ROE/0.30) * 100
	profitability := 0.5*roceScore + 0.5*roeScore
	passProfitability := f.ROCE >= roceBar && f.ROE >= roeFloor

	var leverage float64
	switch {
	case f.DebtToEquity <= 0:
		leverage = 100
	case f.DebtToEquity < deBar:
		leverage = 100 - f.DebtToEquity/deBar*100
	default:
		leverage = 50 - (f.DebtToEquity-deBar)/deBar*50
		if leverage < 0 {
			leverage = 0
		}
	}
	passLeverage := f.DebtToEquity < deBar

	var cashFlow float64
	if f.FCFYield > 0 {
		cashFlow = clamp01(f.FCFYield/0.08) * 100
	} else {
		// negative yield decays from the 50 midpoint
		cashFlow = 50 + f.FCFYield*1000
		if cashFlow < 0 {
			cashFlow = 0
		}
	}
	passCashFlow := f.FCFYield >= fcfYieldFloor

	f.Score = wGrowth*growth + wProfitability*profitability + wLeverage*leverage + wCashFlow*cashFlow

	passed := 0
	for _, p := range []bool{passGrowth, passProfitability, passLeverage, passCashFlow} {
		if p {
			passed++
		}
	}
	f.Qualified = passed >= 3
}

func isFinancial(sector string) bool {
	s := strings.ToUpper(sector)
	return strings.Contains(s, "BANK") ||
		strings.Contains(s, "FINANC") ||
		strings.Contains(s, "NBFC") ||
		strings.Contains(s, "INSURAN")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
