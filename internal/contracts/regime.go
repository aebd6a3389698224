package contracts

import "time"

// RegimeState classifies the market environment
type RegimeState string

const (
	RegimeRiskOn  RegimeState = "RISK_ON"
	RegimeChoppy  RegimeState = "CHOPPY"
	RegimeRiskOff RegimeState = "RISK_OFF"
)

// RegimeSubscores are the four equally weighted components, each 0-100
type RegimeSubscores struct {
	Trend      float64 `json:"trend"`
	Breadth    float64 `json:"breadth"`
	Volatility float64 `json:"volatility"`
	Leadership float64 `json:"leadership"`
}

// Regime is the weekly market classification that gates the pipeline
type Regime struct {
	Week       time.Time       `json:"week"`
	State      RegimeState     `json:"state"`
	Composite  float64         `json:"composite"`  // 0-100
	Confidence float64         `json:"confidence"` // 0-1
	Subscores  RegimeSubscores `json:"subscores"`

	// Position-size scalar in {0, 0.5, 0.7, 1.0}
	Multiplier float64 `json:"multiplier"`

	Thresholds Thresholds `json:"thresholds"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// Gated reports whether the regime blocks new positions entirely
func (r *Regime) Gated() bool {
	return r.State == RegimeRiskOff || r.Multiplier == 0
}

// Thresholds are the regime-adaptive gates injected into the scoring
// stages. Produced once per run by the classifier; no global state.
type Thresholds struct {
	// S3 consistency gates
	PosPctMin   float64 `json:"pos_pct_min"`
	Plus3PctMin float64 `json:"plus3_pct_min"`
	Plus3PctMax float64 `json:"plus3_pct_max"`
	StdDevMax   float64 `json:"std_dev_max"`
	SharpeMin   float64 `json:"sharpe_min"`

	// S4B/S5 trade geometry
	RRFloor float64 `json:"rr_floor"`

	// Allowed setup patterns; under CHOPPY only PULLBACK survives
	AllowedSetups []SetupType `json:"allowed_setups"`

	// Cash reserve fraction for S6
	CashReservePct float64 `json:"cash_reserve_pct"`
}

// SetupAllowed reports whether a pattern may be traded under these
// thresholds
func (t *Thresholds) SetupAllowed(st SetupType) bool {
	for _, allowed := range t.AllowedSetups {
		if allowed == st {
			return true
		}
	}
	return false
}

// ThresholdsFor returns the adaptive threshold set for a regime state
func ThresholdsFor(state RegimeState) Thresholds {
	switch state {
	case RegimeRiskOn:
		return Thresholds{
			PosPctMin:      0.60,
			Plus3PctMin:    0.22,
			Plus3PctMax:    0.40,
			StdDevMax:      0.065,
			SharpeMin:      0.12,
			RRFloor:        2.0,
			AllowedSetups:  []SetupType{SetupPullback, SetupVCPBreakout, SetupRetest, SetupGapFill},
			CashReservePct: 0.30,
		}
	case RegimeChoppy:
		return Thresholds{
			PosPctMin:      0.65,
			Plus3PctMin:    0.25,
			Plus3PctMax:    0.35,
			StdDevMax:      0.060,
			SharpeMin:      0.15,
			RRFloor:        2.5,
			AllowedSetups:  []SetupType{SetupPullback},
			CashReservePct: 0.35,
		}
	default: // RISK_OFF: the gates are moot, but keep them defined
		return Thresholds{
			PosPctMin:      0.70,
			Plus3PctMin:    0.20,
			Plus3PctMax:    0.30,
			StdDevMax:      0.045,
			SharpeMin:      0.18,
			RRFloor:        2.5,
			AllowedSetups:  nil,
			CashReservePct: 1.0,
		}
	}
}
