package s8_recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
)

func TestConviction10(t *testing.T) {
	fund := &contracts.FundamentalScore{Score: 60}

	// all five components present
	c := conviction10(80, 70, 90, fund, 85)
	assert.InDelta(t, 7.65, c, 1e-9)

	// missing fundamental renormalizes over the remaining 80% of weight
	c = conviction10(80, 70, 90, nil, 85)
	assert.InDelta(t, 64.5/8, c, 1e-9)

	// a uniform profile scores the same either way
	assert.InDelta(t,
		conviction10(75, 75, 75, &contracts.FundamentalScore{Score: 75}, 75),
		conviction10(75, 75, 75, nil, 75),
		1e-9)
}

func cardFixture() cardInputs {
	return cardInputs{
		position: contracts.AllocatedPosition{
			Symbol: "TEST", Name: "Test Industries", Sector: "IT",
			Shares: 100, Value: 9500, RiskAmount: 200,
		},
		setup: contracts.TradeSetup{
			Symbol:    "TEST",
			SetupType: contracts.SetupPullback,
			EntryLow:  94, EntryHigh: 96, Stop: 93,
			StopMethod: contracts.StopStructure,
			Target1:    99, Target2: 100, RR: 2.5,
			Confidence: 85,
		},
		size:        contracts.PositionSize{PositionPct: 0.0095},
		momentum:    80,
		consistency: 70,
		liquidity:   90,
		current:     95.5,
		indicators: &contracts.IndicatorSet{
			High52: 100, SMA20: 95, SMA50: 90, SMA200: 80, ATR14: 2,
		},
	}
}

func TestBuildCard(t *testing.T) {
	week := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	card := buildCard(week, cardFixture())

	assert.Equal(t, "Test Industries", card.Name)
	assert.False(t, card.HasFundamental)
	assert.InDelta(t, 64.5/8, card.Conviction10, 1e-9)
	assert.Equal(t, "Very High", card.ConvictionText)

	assert.InDelta(t, 95.5, card.Current, 1e-9)
	assert.InDelta(t, 100, card.High52, 1e-9)
	assert.Equal(t, contracts.SetupPullback, card.SetupType)

	require.Len(t, card.ActionSteps, 4)
	assert.Contains(t, card.ActionSteps[0], "100 shares")
	assert.Contains(t, card.ActionSteps[0], "94.00-96.00")
	assert.Contains(t, card.ActionSteps[1], "93.00")
	assert.Contains(t, card.GapContingency, "93.00")
	assert.Contains(t, card.GapContingency, "do not chase")

	require.NotEmpty(t, card.Invalidation)
	assert.Contains(t, card.Invalidation[0], "93.00")
}

func TestBuildCard_FundamentalPresent(t *testing.T) {
	in := cardFixture()
	in.fundamental = &contracts.FundamentalScore{Symbol: "TEST", Score: 60}

	card := buildCard(time.Now(), in)
	assert.True(t, card.HasFundamental)
	assert.InDelta(t, 60, card.FundamentalScore, 1e-9)
	assert.InDelta(t, 7.65, card.Conviction10, 1e-9)
	assert.Equal(t, "High", card.ConvictionText)
}

func TestInvalidationPerSetupType(t *testing.T) {
	tests := []struct {
		setupType contracts.SetupType
		fragment  string
	}{
		{contracts.SetupPullback, "50-day"},
		{contracts.SetupVCPBreakout, "Range expansion"},
		{contracts.SetupRetest, "breakout level"},
		{contracts.SetupGapFill, "gap fill"},
	}

	for _, tt := range tests {
		t.Run(string(tt.setupType), func(t *testing.T) {
			in := cardFixture()
			in.setup.SetupType = tt.setupType
			card := buildCard(time.Now(), in)

			found := false
			for _, cond := range card.Invalidation {
				if strings.Contains(cond, tt.fragment) {
					found = true
				}
			}
			assert.True(t, found, "expected invalidation mentioning %q", tt.fragment)
		})
	}
}
