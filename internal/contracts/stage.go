package contracts

// Pipeline stage definitions (SSOT)
// Every log line, snapshot and DB row uses these constants.
//
// Weekly flow:
//   S1 → S2 → [REGIME] → S3 → S4A → S4B → S5 → S6 → S8
//   S7 runs independently on Monday open and Friday close against the
//   latest approved portfolio.

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: tradable universe and quality tiering
	StageUniverse Stage = "S1_UNIVERSE"

	// StageMomentum S2: five-filter momentum gate
	StageMomentum Stage = "S2_MOMENTUM"

	// StageRegime market regime classification; gates everything after S2
	StageRegime Stage = "REGIME"

	// StageConsistency S3: weekly-return consistency gate
	StageConsistency Stage = "S3_CONSISTENCY"

	// StageLiquidity S4A: liquidity and tradability gate
	StageLiquidity Stage = "S4A_LIQUIDITY"

	// StageSetup S4B: chart pattern detection and trade levels
	StageSetup Stage = "S4B_SETUP"

	// StageRisk S5: stop selection and position sizing
	StageRisk Stage = "S5_RISK"

	// StagePortfolio S6: correlation/sector constrained selection
	StagePortfolio Stage = "S6_PORTFOLIO"

	// StageExecution S7: Monday gap decisions, Friday summary
	StageExecution Stage = "S7_EXECUTION"

	// StageRecommend S8: trade card assembly and conviction
	StageRecommend Stage = "S8_RECOMMEND"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns the abbreviated stage name (e.g., "S1", "S4A")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageMomentum:
		return "S2"
	case StageRegime:
		return "REGIME"
	case StageConsistency:
		return "S3"
	case StageLiquidity:
		return "S4A"
	case StageSetup:
		return "S4B"
	case StageRisk:
		return "S5"
	case StagePortfolio:
		return "S6"
	case StageExecution:
		return "S7"
	case StageRecommend:
		return "S8"
	default:
		return "UNKNOWN"
	}
}

// WeeklyStages returns the weekly pipeline stages in execution order.
// S7 is excluded: it is event-driven (Monday open, Friday close).
func WeeklyStages() []Stage {
	return []Stage{
		StageUniverse,
		StageMomentum,
		StageRegime,
		StageConsistency,
		StageLiquidity,
		StageSetup,
		StageRisk,
		StagePortfolio,
		StageRecommend,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range WeeklyStages() {
		if string(stage) == s {
			return true
		}
	}
	return s == string(StageExecution)
}

// StageResult records the outcome of a single stage within a run
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// StageCounts maps each stage to the number of symbols it kept.
// Carried on the Recommendation so a consumer can see the funnel.
type StageCounts map[Stage]int
