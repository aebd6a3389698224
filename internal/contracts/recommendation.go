package contracts

import "time"

// ConvictionLabel buckets the 0-10 conviction score
func ConvictionLabel(conviction float64) string {
	switch {
	case conviction >= 8:
		return "Very High"
	case conviction >= 6.5:
		return "High"
	case conviction >= 5:
		return "Medium"
	case conviction >= 3.5:
		return "Low"
	default:
		return "Very Low"
	}
}

// TradeCard is one fully specified recommendation for a symbol
type TradeCard struct {
	// Identification
	Symbol string    `json:"symbol"`
	Name   string    `json:"name"`
	Sector string    `json:"sector"`
	Week   time.Time `json:"week"`

	// Phase scores
	MomentumScore    float64 `json:"momentum_score"`
	ConsistencyScore float64 `json:"consistency_score"`
	LiquidityScore   float64 `json:"liquidity_score"`
	FundamentalScore float64 `json:"fundamental_score"`
	HasFundamental   bool    `json:"has_fundamental"`
	SetupConfidence  float64 `json:"setup_confidence"`
	Conviction10     float64 `json:"conviction_10"`
	ConvictionText   string  `json:"conviction_label"`

	// Technical context
	Current float64 `json:"current"`
	High52  float64 `json:"high52"`
	SMA20   float64 `json:"sma20"`
	SMA50   float64 `json:"sma50"`
	SMA200  float64 `json:"sma200"`
	ATR14   float64 `json:"atr14"`

	// Levels
	SetupType  SetupType  `json:"setup_type"`
	EntryLow   float64    `json:"entry_low"`
	EntryHigh  float64    `json:"entry_high"`
	Stop       float64    `json:"stop"`
	StopMethod StopMethod `json:"stop_method"`
	Target1    float64    `json:"target1"`
	Target2    float64    `json:"target2"`
	RR         float64    `json:"rr"`

	// Sizing
	Shares      int     `json:"shares"`
	Investment  float64 `json:"investment"`
	RiskAmount  float64 `json:"risk_amount"`
	PositionPct float64 `json:"position_pct"`

	// Execution
	ActionSteps    []string `json:"action_steps"`
	GapContingency string   `json:"gap_contingency"`
	Invalidation   []string `json:"invalidation"`
}

// Recommendation is the S8 weekly output consumed on Monday open
type Recommendation struct {
	Week time.Time `json:"week"`

	MarketRegime     RegimeState     `json:"market_regime"`
	RegimeConfidence float64         `json:"regime_confidence"`
	RegimeSubscores  RegimeSubscores `json:"regime_subscores"`

	TotalSetups int         `json:"total_setups"`
	Cards       []TradeCard `json:"cards"`

	// Funnel counts at each stage, plus any fatal stage reasons
	StageCounts  StageCounts `json:"stage_counts"`
	StageReasons []string    `json:"stage_reasons,omitempty"`

	Status    AllocationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Stale reports whether the recommendation has passed its one-week life
func (r *Recommendation) Stale(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
