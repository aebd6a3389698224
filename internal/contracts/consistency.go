package contracts

import "time"

// ConsistencyScore is the S3 record over the last 52 weekly returns
// (minimum 40). Thresholds come from the regime classifier.
type ConsistencyScore struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	// Core metrics (fractions, not percentages)
	PosPct      float64 `json:"pos_pct"`
	Plus3Pct    float64 `json:"plus3_pct"`
	Plus5Pct    float64 `json:"plus5_pct"`
	Neg5Pct     float64 `json:"neg5_pct"`
	AvgReturn   float64 `json:"avg_return"`
	StdDev      float64 `json:"std_dev"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	DownsideDev float64 `json:"downside_dev"`

	BestWeek     float64 `json:"best_week"`
	WorstWeek    float64 `json:"worst_week"`
	MaxWinStreak int     `json:"max_win_streak"`
	AvgWinStreak float64 `json:"avg_win_streak"`

	// Composite scores
	ConsistencyScore float64 `json:"consistency_score"` // 0-100
	RegimeScore      float64 `json:"regime_score"`      // 13w/52w avg-return ratio, clipped [0,3]
	PercentileRank   float64 `json:"percentile_rank"`   // 0-100 within this run
	FinalScore       float64 `json:"final_score"`       // 0-100

	// One-sided binomial p-value for posPct > 0.50
	SignificanceP float64 `json:"significance_p"`
	Significant   bool    `json:"significant"` // p < 0.10

	WeeksUsed     int  `json:"weeks_used"`
	FiltersPassed int  `json:"filters_passed"` // 0..6
	Qualifies     bool `json:"qualifies"`      // >= 5/6 AND significant

	CalculatedAt time.Time `json:"calculated_at"`
}
