package contracts

import "time"

// GapAction is the Monday-open decision for an approved position
type GapAction string

const (
	ActionSkipGappedThroughStop GapAction = "SKIP_GAPPED_THROUGH_STOP"
	ActionSkipDoNotChase        GapAction = "SKIP_DO_NOT_CHASE"
	ActionEnterAtOpen           GapAction = "ENTER_AT_OPEN"
	ActionEnterSmallGapAgainst  GapAction = "ENTER_AT_OPEN_SMALL_GAP_AGAINST"
	ActionWaitAndWatch          GapAction = "WAIT_AND_WATCH"
)

// IsEntry reports whether the action results in a filled position
func (a GapAction) IsEntry() bool {
	return a == ActionEnterAtOpen || a == ActionEnterSmallGapAgainst
}

// GapDecision records one Monday-open decision
type GapDecision struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	OpenPrice float64   `json:"open_price"`
	GapPct    float64   `json:"gap_pct"` // open vs entry band midpoint
	Action    GapAction `json:"action"`
	Reason    string    `json:"reason"`

	DecidedAt time.Time `json:"decided_at"`
}

// PremarketAnalysis is the persisted Monday pre-open snapshot
type PremarketAnalysis struct {
	Week       time.Time     `json:"week"`
	Decisions  []GapDecision `json:"decisions"`
	EnterCount int           `json:"enter_count"`
	SkipCount  int           `json:"skip_count"`
	WaitCount  int           `json:"wait_count"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PositionState tracks a position through its life
type PositionState string

const (
	PositionPending   PositionState = "pending" // approved, not yet Monday
	PositionEntered   PositionState = "entered"
	PositionSkipped   PositionState = "skipped"
	PositionStopped   PositionState = "stopped"
	PositionTarget1   PositionState = "target1_hit"
	PositionTarget2   PositionState = "target2_hit"
	PositionClosed    PositionState = "closed"
)

// TrackedPosition is the live state of an entered position
type TrackedPosition struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	State      PositionState `json:"state"`
	EntryPrice float64       `json:"entry_price"`
	Shares     int           `json:"shares"`
	Stop       float64       `json:"stop"`
	Target1    float64       `json:"target1"`
	Target2    float64       `json:"target2"`

	LastClose    float64   `json:"last_close"`
	UnrealizedR  float64   `json:"unrealized_r"`
	RealizedR    float64   `json:"realized_r"`
	Alerts       []string  `json:"alerts,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HealthAction is the system-level recommendation from the health score
type HealthAction string

const (
	HealthContinue HealthAction = "CONTINUE" // score >= 70
	HealthReduce   HealthAction = "REDUCE"   // 50-69
	HealthPause    HealthAction = "PAUSE"    // 30-49
	HealthStop     HealthAction = "STOP"     // < 30
)

// SystemHealth is the rolling 12-week engine self-assessment
type SystemHealth struct {
	Score          float64      `json:"score"` // 0-100
	WinRate12W     float64      `json:"win_rate_12w"`
	Expectancy12W  float64      `json:"expectancy_12w"` // in R
	DrawdownPct    float64      `json:"drawdown_pct"`
	ExecutionScore float64      `json:"execution_score"` // 0-100 fill discipline
	Action         HealthAction `json:"recommended_action"`
}

// FridaySummary is the end-of-week review for a run week
type FridaySummary struct {
	Week time.Time `json:"week"`

	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	WeeklyRSum    float64 `json:"weekly_r_sum"`
	WinRate       float64 `json:"win_rate"`

	Positions []TrackedPosition `json:"positions"`

	// Sector context: mean 20d return per sector index
	SectorMomentum map[string]float64 `json:"sector_momentum,omitempty"`

	Health SystemHealth `json:"health"`

	CreatedAt time.Time `json:"created_at"`
}
