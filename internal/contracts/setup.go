package contracts

import (
	"fmt"
	"time"
)

// SetupType is one of the four recognized chart patterns
type SetupType string

const (
	SetupPullback    SetupType = "PULLBACK"
	SetupVCPBreakout SetupType = "VCP_BREAKOUT"
	SetupRetest      SetupType = "RETEST"
	SetupGapFill     SetupType = "GAP_FILL"
)

// StopMethod says which of the two candidate stops was tighter
type StopMethod string

const (
	StopStructure  StopMethod = "structure"  // swing low * 0.99
	StopVolatility StopMethod = "volatility" // entryLow - 2*ATR
)

// TradeSetup is the S4B record: a detected pattern with a fully
// specified entry band, stop and targets. A symbol emits zero or one
// setup per week.
type TradeSetup struct {
	Symbol string    `json:"symbol"`
	Week   time.Time `json:"week"`

	SetupType SetupType `json:"setup_type"`
	Support   float64   `json:"support"`

	EntryLow   float64    `json:"entry_low"`
	EntryHigh  float64    `json:"entry_high"`
	Stop       float64    `json:"stop"`
	StopMethod StopMethod `json:"stop_method"`
	Target1    float64    `json:"target1"`
	Target2    float64    `json:"target2"`
	RR         float64    `json:"rr"`

	SwingLow        float64 `json:"swing_low"`
	StopDistancePct float64 `json:"stop_distance_pct"`

	Confidence       float64 `json:"confidence"`        // 0-100, pattern-specific
	QualityComposite float64 `json:"quality_composite"` // 0-100 rank key

	CalculatedAt time.Time `json:"calculated_at"`
}

// MidEntry is the midpoint of the entry band
func (s *TradeSetup) MidEntry() float64 {
	return (s.EntryLow + s.EntryHigh) / 2
}

// Validate checks the level ordering invariant:
// stop < entryLow < entryHigh < target1 <= target2
func (s *TradeSetup) Validate() error {
	if !(s.Stop < s.EntryLow) {
		return fmt.Errorf("setup %s: stop %.2f not below entry low %.2f", s.Symbol, s.Stop, s.EntryLow)
	}
	if !(s.EntryLow < s.EntryHigh) {
		return fmt.Errorf("setup %s: entry band inverted [%.2f, %.2f]", s.Symbol, s.EntryLow, s.EntryHigh)
	}
	if !(s.EntryHigh < s.Target1) {
		return fmt.Errorf("setup %s: target1 %.2f not above entry high %.2f", s.Symbol, s.Target1, s.EntryHigh)
	}
	if s.Target1 > s.Target2 {
		return fmt.Errorf("setup %s: target1 %.2f above target2 %.2f", s.Symbol, s.Target1, s.Target2)
	}
	return nil
}
