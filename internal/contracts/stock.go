package contracts

import "time"

// Tier buckets the universe by quality score
type Tier string

const (
	TierA Tier = "A" // quality >= 90
	TierB Tier = "B" // quality >= 75
	TierC Tier = "C" // quality >= 60
	TierD Tier = "D" // excluded from the pipeline
)

// TierFor maps a quality score to a tier
func TierFor(qualityScore int) Tier {
	switch {
	case qualityScore >= 90:
		return TierA
	case qualityScore >= 75:
		return TierB
	case qualityScore >= 60:
		return TierC
	default:
		return TierD
	}
}

// Stock is the S1 universe record, keyed by symbol.
// SSOT: quality score and tier are assigned only by the universe builder.
type Stock struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	ISIN    string `json:"isin"`
	Sector  string `json:"sector"`
	LotSize int    `json:"lot_size"`

	IsMTF      bool `json:"is_mtf"`
	InNifty50  bool `json:"in_nifty_50"`
	InNifty100 bool `json:"in_nifty_100"`
	InNifty200 bool `json:"in_nifty_200"`
	InNifty500 bool `json:"in_nifty_500"`

	QualityScore int  `json:"quality_score"` // 0..100
	Tier         Tier `json:"tier"`
	Active       bool `json:"active"`

	CalculatedAt time.Time `json:"calculated_at"`
}

// InAnyIndex reports whether the stock belongs to any tracked Nifty index
func (s *Stock) InAnyIndex() bool {
	return s.InNifty50 || s.InNifty100 || s.InNifty200 || s.InNifty500
}

// HighQuality reports whether the stock clears the momentum-stage floor
func (s *Stock) HighQuality() bool {
	return s.Active && s.QualityScore >= 60
}
