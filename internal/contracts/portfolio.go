package contracts

import "time"

// AllocationStatus is the lifecycle of a weekly allocation
type AllocationStatus string

const (
	StatusDraft    AllocationStatus = "draft"
	StatusApproved AllocationStatus = "approved"
	StatusExecuted AllocationStatus = "executed"
	StatusExpired  AllocationStatus = "expired"
)

// AllocatedPosition is one selected position in the weekly portfolio
type AllocatedPosition struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`

	Shares     int     `json:"shares"`
	EntryLow   float64 `json:"entry_low"`
	EntryHigh  float64 `json:"entry_high"`
	Stop       float64 `json:"stop"`
	Target1    float64 `json:"target1"`
	Target2    float64 `json:"target2"`
	Value      float64 `json:"value"`       // shares * midEntry
	RiskAmount float64 `json:"risk_amount"` // shares * riskPerShare

	QualityComposite float64 `json:"quality_composite"`
	Rank             int     `json:"rank"`
}

// PortfolioAllocation is the S6 record for a week
type PortfolioAllocation struct {
	Week time.Time `json:"week"`

	Positions        []AllocatedPosition `json:"positions"`
	SectorAllocation map[string]float64  `json:"sector_allocation"` // sector -> fraction of portfolio

	AllocatedPct float64 `json:"allocated_pct"`
	CashPct      float64 `json:"cash_pct"`
	TotalRiskPct float64 `json:"total_risk_pct"`

	// Funnel accounting for the recommendation record
	CorrelationFiltered int `json:"correlation_filtered"`
	SectorFiltered      int `json:"sector_filtered"`
	CapitalFiltered     int `json:"capital_filtered"`

	Status AllocationStatus `json:"status"`
	Reason string           `json:"reason,omitempty"` // why empty, when empty

	CalculatedAt time.Time `json:"calculated_at"`
}

// Contains reports whether a symbol was selected
func (p *PortfolioAllocation) Contains(symbol string) bool {
	for _, pos := range p.Positions {
		if pos.Symbol == symbol {
			return true
		}
	}
	return false
}

// TotalValue sums position values
func (p *PortfolioAllocation) TotalValue() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Value
	}
	return total
}
