package contracts

import "time"

// PositionSize is the S5 record: the fully adjusted share count for a
// trade setup.
type PositionSize struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	StopMethod   StopMethod `json:"stop_method"`
	RiskPerShare float64    `json:"risk_per_share"`

	BaseShares  int     `json:"base_shares"`
	VolAdj      float64 `json:"vol_adj"`    // clamp(niftyATR/stockATR, 0.5, 1.5)
	KellyFrac   float64 `json:"kelly_frac"` // clipped [0,1]
	RegimeMult  float64 `json:"regime_mult"`
	FinalShares int     `json:"final_shares"`

	FinalRisk     float64 `json:"final_risk"`     // INR
	PositionValue float64 `json:"position_value"` // finalShares * midEntry
	PositionPct   float64 `json:"position_pct"`   // of portfolio value
	CappedByValue bool    `json:"capped_by_value"`

	Qualifies bool   `json:"qualifies"`
	Reason    string `json:"reason,omitempty"` // rejection reason if !Qualifies

	CalculatedAt time.Time `json:"calculated_at"`
}

// SystemStats is the rolling 52-week outcome snapshot feeding the Kelly
// fraction. Read-only during a run; only S7 updates it as trades close.
type SystemStats struct {
	WinRate    float64   `json:"win_rate"`
	AvgWin     float64   `json:"avg_win"`  // in R multiples
	AvgLoss    float64   `json:"avg_loss"` // in R multiples, positive
	SampleSize int       `json:"sample_size"`
	AsOf       time.Time `json:"as_of"`
}

// DefaultSystemStats is the prior used with insufficient trade history
func DefaultSystemStats() SystemStats {
	return SystemStats{
		WinRate:    0.50,
		AvgWin:     1.2,
		AvgLoss:    1.1,
		SampleSize: 0,
	}
}

// Usable reports whether there is enough history to trust the stats
func (s *SystemStats) Usable() bool {
	return s.SampleSize >= 20
}
