package s1_universe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rohanmb/swingline/internal/contracts"
	"github.com/rohanmb/swingline/internal/marketdata"
)

func TestScoreInstrument(t *testing.T) {
	tests := []struct {
		name      string
		mtf       bool
		in50      bool
		in100     bool
		in200     bool
		in500     bool
		wantScore int
		wantTier  contracts.Tier
	}{
		{"MTF plus Nifty 50", true, true, true, true, true, 90, contracts.TierA},
		{"MTF plus Nifty 100", true, false, true, true, true, 75, contracts.TierB},
		{"MTF plus Nifty 200", true, false, false, true, true, 65, contracts.TierC},
		{"MTF plus Nifty 500", true, false, false, false, true, 60, contracts.TierC},
		{"MTF only", true, false, false, false, false, 40, contracts.TierD},
		{"Nifty 50 without MTF", false, true, true, true, true, 50, contracts.TierD},
		{"neither", false, false, false, false, false, 0, contracts.TierD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := marketdata.Instrument{Symbol: "TEST", Name: "Test Ltd"}
			mtf := map[string]bool{}
			if tt.mtf {
				mtf["TEST"] = true
			}
			indexes := map[string]map[string]bool{
				marketdata.IndexNifty50:  {"TEST": tt.in50},
				marketdata.IndexNifty100: {"TEST": tt.in100},
				marketdata.IndexNifty200: {"TEST": tt.in200},
				marketdata.IndexNifty500: {"TEST": tt.in500},
			}

			stock := scoreInstrument(inst, mtf, indexes)
			assert.Equal(t, tt.wantTier, stock.Tier)
			if tt.wantTier != contracts.TierD {
				assert.Equal(t, tt.wantScore, stock.QualityScore)
				assert.True(t, stock.Active)
			}
		})
	}
}

func TestScoreInstrument_NarrowestIndexWins(t *testing.T) {
	// Nifty 50 members are also in 100/200/500; only the 50 bonus applies
	inst := marketdata.Instrument{Symbol: "RELIANCE"}
	mtf := map[string]bool{"RELIANCE": true}
	indexes := map[string]map[string]bool{
		marketdata.IndexNifty50:  {"RELIANCE": true},
		marketdata.IndexNifty100: {"RELIANCE": true},
		marketdata.IndexNifty200: {"RELIANCE": true},
		marketdata.IndexNifty500: {"RELIANCE": true},
	}

	stock := scoreInstrument(inst, mtf, indexes)
	assert.Equal(t, 90, stock.QualityScore)
	assert.Equal(t, contracts.TierA, stock.Tier)
	assert.True(t, stock.HighQuality())
}

func TestScoreInstrument_ExcludedIsNotActive(t *testing.T) {
	inst := marketdata.Instrument{Symbol: "OBSCURE"}
	indexes := map[string]map[string]bool{
		marketdata.IndexNifty50:  {},
		marketdata.IndexNifty100: {},
		marketdata.IndexNifty200: {},
		marketdata.IndexNifty500: {},
	}

	stock := scoreInstrument(inst, map[string]bool{}, indexes)
	assert.Equal(t, contracts.TierD, stock.Tier)
	assert.False(t, stock.Active)
	assert.False(t, stock.HighQuality())
}
