package contracts

import "time"

// FundamentalScore is the optional monthly-refresh fundamental snapshot.
// When absent for a symbol, the conviction weighting renormalizes over
// the remaining components.
type FundamentalScore struct {
	Symbol string `json:"symbol"`

	EPSQoQ          float64 `json:"eps_qoq"`     // fraction
	RevenueYoY      float64 `json:"revenue_yoy"` // fraction
	ROCE            float64 `json:"roce"`
	ROE             float64 `json:"roe"`
	DebtToEquity    float64 `json:"debt_to_equity"`
	OperatingMargin float64 `json:"operating_margin"`
	FCFYield        float64 `json:"fcf_yield"`

	Score     float64 `json:"score"` // 0-100
	Qualified bool    `json:"qualified"`

	AsOf         time.Time `json:"as_of"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// Holdings is the optional institutional-holdings snapshot
type Holdings struct {
	Symbol string `json:"symbol"`

	FIIPct         float64 `json:"fii_pct"`
	DIIPct         float64 `json:"dii_pct"`
	PromoterPledge float64 `json:"promoter_pledge_pct"`
	FIINetChange30 float64 `json:"fii_net_change_30d"`

	AsOf time.Time `json:"as_of"`
}
