package contracts

import "time"

// MomentumScore is the S2 record: five boolean filters, a 0-100
// composite, and the raw sub-metrics behind them.
type MomentumScore struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	// Filter 2A: 52-week proximity
	PassProximity  bool    `json:"pass_proximity"`
	Proximity      float64 `json:"proximity"`       // 0-1 position in 52w range
	VolSurge       float64 `json:"vol_surge"`       // latest vs 20d avg volume

	// Filter 2B: MA alignment
	PassMAAlign  bool `json:"pass_ma_align"`
	MAAlignScore int  `json:"ma_align_score"` // 0-5

	// Filter 2C: relative strength vs Nifty
	PassRelStrength bool    `json:"pass_rel_strength"`
	RS1M            float64 `json:"rs_1m"`
	RS3M            float64 `json:"rs_3m"`
	RS6M            float64 `json:"rs_6m"`

	// Filter 2D: composite
	PassComposite bool    `json:"pass_composite"`
	Composite     float64 `json:"composite"` // 0-100

	// Filter 2E: volatility ratio
	PassVolRatio bool    `json:"pass_vol_ratio"`
	VolRatio     float64 `json:"vol_ratio"` // stock vol30 / nifty vol30

	Score         float64 `json:"score"` // 0-100
	FiltersPassed int     `json:"filters_passed"`
	Qualifies     bool    `json:"qualifies"` // >= 4 of 5

	CalculatedAt time.Time `json:"calculated_at"`
}
