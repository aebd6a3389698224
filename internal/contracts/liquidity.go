package contracts

import "time"

// LiquidityScore is the S4A record from 90 days of daily bars.
// Turnover figures are in INR crores.
type LiquidityScore struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	Turnover20DCr float64 `json:"turnover_20d_cr"`
	Turnover60DCr float64 `json:"turnover_60d_cr"`
	Peak30DCr     float64 `json:"peak_30d_cr"`

	CircuitHits30D int     `json:"circuit_hits_30d"`
	AvgGapPct      float64 `json:"avg_gap_pct"` // mean absolute open gap, percent
	MaxGapPct      float64 `json:"max_gap_pct"`
	VolStability   float64 `json:"vol_stability"` // 0-1, 1 - cv(volume)

	Score     float64 `json:"score"` // 0-100
	Qualifies bool    `json:"qualifies"`

	CalculatedAt time.Time `json:"calculated_at"`
}
