package fundamental

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohanmb/swingline/internal/contracts"
)

func TestScoreSnapshot_CleanCompounder(t *testing.T) {
	f := &contracts.FundamentalScore{
		Symbol: "TEST",
		EPSQoQ: 0.12, RevenueYoY: 0.20,
		ROCE: 0.27, ROE: 0.30,
		DebtToEquity: 0, FCFYield: 0.08,
	}
	scoreSnapshot(f, "IT")

	assert.InDelta(t, 100, f.Score, 1e-9)
	assert.True(t, f.Qualified)
}

func TestScoreSnapshot_Middling(t *testing.T) {
	f := &contracts.FundamentalScore{
		Symbol: "TEST",
		EPSQoQ: 0.05, RevenueYoY: 0.075,
		ROCE: 0.135, ROE: 0.15,
		DebtToEquity: 0.4, FCFYield: 0.02,
	}
	scoreSnapshot(f, "AUTO")

	// every component lands mid-scale, only the leverage filter passes
	assert.InDelta(t, 45, f.Score, 1e-9)
	assert.False(t, f.Qualified)
}

func TestScoreSnapshot_FinancialThresholds(t *testing.T) {
	f := &contracts.FundamentalScore{
		Symbol: "TESTBANK",
		EPSQoQ: 0.08, RevenueYoY: 0.12,
		ROCE: 0.12, ROE: 0.20,
		DebtToEquity: 3.0, FCFYield: 0.05,
	}
	scoreSnapshot(f, "Private Sector Bank")

	// 3.0x leverage passes the financial ceiling but would fail a
	// non-financial outright
	assert.True(t, f.Qualified)
	assert.InDelta(t, 61.5, f.Score, 1e-6)

	g := &contracts.FundamentalScore{
		Symbol: "TESTMFG",
		EPSQoQ: 0.08, RevenueYoY: 0.12,
		ROCE: 0.12, ROE: 0.20,
		DebtToEquity: 3.0, FCFYield: 0.05,
	}
	scoreSnapshot(g, "Capital Goods")
	assert.False(t, g.Qualified)
	assert.Less(t, g.Score, f.Score)
}

func TestScoreSnapshot_NegativeFCFYield(t *testing.T) {
	f := &contracts.FundamentalScore{Symbol: "TEST", FCFYield: -0.02}
	scoreSnapshot(f, "IT")

	// -2% yield decays the cash-flow component from 50 to 30; with all
	// other components at zero, only leverage (no debt) contributes
	assert.InDelta(t, 0.20*100+0.20*30, f.Score, 1e-9)
	assert.False(t, f.Qualified)
}

func TestIsFinancial(t *testing.T) {
	assert.True(t, isFinancial("Private Sector Bank"))
	assert.True(t, isFinancial("Financial Services"))
	assert.True(t, isFinancial("Life Insurance"))
	assert.False(t, isFinancial("Pharmaceuticals"))
	assert.False(t, isFinancial("Unknown"))
}
