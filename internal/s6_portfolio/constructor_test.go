package s6_portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/pkg/config"
)

func allocCfg() *config.PortfolioConfig {
	return &config.PortfolioConfig{
		Value:          1_000_000,
		MaxPositions:   12,
		MaxSectorPct:   0.25,
		MaxSectorCount: 3,
		MaxCorrelation: 0.70,
	}
}

func allocWeek() time.Time {
	return time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
}

// walsh builds a +-1% return square wave; series with different
// periods over a 64-day window are exactly uncorrelated
func walsh(period int) []float64 {
	r := make([]float64, 64)
	for i := range r {
		if (i/period)%2 == 0 {
			r[i] = 0.01
		} else {
			r[i] = -0.01
		}
	}
	return r
}

func mkCand(symbol, sector string, quality, value float64, returns []float64) candidate {
	return candidate{
		symbol: symbol,
		name:   symbol,
		sector: sector,
		size: contracts.PositionSize{
			Symbol: symbol, FinalShares: 100,
			PositionValue: value, FinalRisk: value * 0.02,
			Qualifies: true,
		},
		setup: contracts.TradeSetup{
			Symbol:   symbol,
			EntryLow: 94, EntryHigh: 96, Stop: 93, Target1: 99, Target2: 100,
			QualityComposite: quality,
		},
		returns: returns,
	}
}

func TestAllocate_CorrelationFilter(t *testing.T) {
	// A and B move in lockstep; A ranks higher and B is dropped
	cands := []candidate{
		mkCand("A", "IT", 90, 100_000, walsh(1)),
		mkCand("B", "BANK", 85, 100_000, walsh(1)),
		mkCand("C", "AUTO", 80, 100_000, walsh(2)),
	}

	alloc := allocate(allocWeek(), cands, allocCfg(), 0.30)

	require.Len(t, alloc.Positions, 2)
	assert.Equal(t, "A", alloc.Positions[0].Symbol)
	assert.Equal(t, "C", alloc.Positions[1].Symbol)
	assert.Equal(t, 1, alloc.CorrelationFiltered)

	// anti-correlation is just as disqualifying
	inverse := walsh(1)
	for i := range inverse {
		inverse[i] = -inverse[i]
	}
	cands[1].returns = inverse
	alloc = allocate(allocWeek(), cands, allocCfg(), 0.30)
	assert.False(t, alloc.Contains("B"))
	assert.Equal(t, 1, alloc.CorrelationFiltered)
}

func TestAllocate_SectorCountCap(t *testing.T) {
	// four uncorrelated banks; the cap keeps the top three by rank
	cands := []candidate{
		mkCand("B1", "BANK", 95, 50_000, walsh(1)),
		mkCand("B2", "BANK", 90, 50_000, walsh(2)),
		mkCand("B3", "BANK", 85, 50_000, walsh(4)),
		mkCand("B4", "BANK", 80, 50_000, walsh(8)),
	}

	alloc := allocate(allocWeek(), cands, allocCfg(), 0.30)

	require.Len(t, alloc.Positions, 3)
	assert.False(t, alloc.Contains("B4"))
	assert.Equal(t, 1, alloc.SectorFiltered)
	assert.InDelta(t, 0.15, alloc.SectorAllocation["BANK"], 1e-9)
}

func TestAllocate_SectorValueCap(t *testing.T) {
	// two positions would put the sector at 27% of the book
	cands := []candidate{
		mkCand("M1", "METAL", 95, 150_000, walsh(1)),
		mkCand("M2", "METAL", 90, 120_000, walsh(2)),
		mkCand("F1", "FMCG", 85, 120_000, walsh(4)),
	}

	alloc := allocate(allocWeek(), cands, allocCfg(), 0.30)

	assert.True(t, alloc.Contains("M1"))
	assert.False(t, alloc.Contains("M2"))
	assert.True(t, alloc.Contains("F1"))
	assert.Equal(t, 1, alloc.SectorFiltered)
}

func TestAllocate_CashReserve(t *testing.T) {
	// 70% investable: 300k + 300k fit, the next 200k does not
	cands := []candidate{
		mkCand("A", "IT", 95, 300_000, walsh(1)),
		mkCand("B", "BANK", 90, 300_000, walsh(2)),
		mkCand("C", "AUTO", 85, 200_000, walsh(4)),
	}

	alloc := allocate(allocWeek(), cands, allocCfg(), 0.30)

	require.Len(t, alloc.Positions, 2)
	assert.Equal(t, 1, alloc.CapitalFiltered)
	assert.InDelta(t, 0.60, alloc.AllocatedPct, 1e-9)
	assert.InDelta(t, 0.40, alloc.CashPct, 1e-9)
}

func TestAllocate_MaxPositions(t *testing.T) {
	cfg := allocCfg()
	cfg.MaxPositions = 2

	cands := []candidate{
		mkCand("A", "IT", 95, 10_000, walsh(1)),
		mkCand("B", "BANK", 90, 10_000, walsh(2)),
		mkCand("C", "AUTO", 85, 10_000, walsh(4)),
	}

	alloc := allocate(allocWeek(), cands, cfg, 0.30)

	require.Len(t, alloc.Positions, 2)
	assert.Equal(t, 1, alloc.Positions[0].Rank)
	assert.Equal(t, 2, alloc.Positions[1].Rank)
}

func TestAllocate_Empty(t *testing.T) {
	alloc := allocate(allocWeek(), nil, allocCfg(), 0.30)

	assert.Empty(t, alloc.Positions)
	assert.Equal(t, "no qualified candidates", alloc.Reason)
	assert.InDelta(t, 1.0, alloc.CashPct, 1e-9)
	assert.Equal(t, contracts.StatusDraft, alloc.Status)
}

func TestPairCorrelation(t *testing.T) {
	assert.InDelta(t, 1.0, pairCorrelation(walsh(1), walsh(1)), 1e-9)
	assert.InDelta(t, 0.0, pairCorrelation(walsh(1), walsh(2)), 1e-9)

	// too few aligned observations is treated as uncorrelated
	assert.Equal(t, 0.0, pairCorrelation(walsh(1)[:10], walsh(1)))
}
