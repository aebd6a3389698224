package marketdata

import (
	"fmt"
	"math"

	"github.com/rohanmb/swingline/internal/contracts"
)

// maxDailyMove above which a series is considered unadjusted for a
// corporate action (split/bonus) and unusable for scoring
const maxDailyMove = 0.50

// CleanBars drops malformed bars from a series and reports why each was
// dropped. Malformed means non-positive prices, high below low, or the
// range not containing open/close.
func CleanBars(bars []contracts.DailyBar) ([]contracts.DailyBar, []string) {
	clean := make([]contracts.DailyBar, 0, len(bars))
	var dropped []string

	for _, b := range bars {
		switch {
		case b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0:
			dropped = append(dropped, fmt.Sprintf("%s: non-positive price", b.Date.Format("2006-01-02")))
		case b.High < b.Low:
			dropped = append(dropped, fmt.Sprintf("%s: high below low", b.Date.Format("2006-01-02")))
		case b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low:
			dropped = append(dropped, fmt.Sprintf("%s: open/close outside range", b.Date.Format("2006-01-02")))
		case b.Volume < 0:
			dropped = append(dropped, fmt.Sprintf("%s: negative volume", b.Date.Format("2006-01-02")))
		default:
			clean = append(clean, b)
		}
	}
	return clean, dropped
}

// ValidateSeries rejects a series containing a single-day close move
// beyond maxDailyMove. Such a move almost always means the provider
// served unadjusted prices across a corporate action, so every derived
// indicator would be wrong.
func ValidateSeries(symbol string, bars []contracts.DailyBar) error {
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		move := math.Abs(bars[i].Close/prev - 1)
		if move > maxDailyMove {
			return fmt.Errorf("%s: %.1f%% move on %s suggests unadjusted corporate action",
				symbol, move*100, bars[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}
