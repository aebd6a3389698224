package marketdata

import (
	"sort"
	"time"

	"github.com/rohanmb/swingline/internal/contracts"
)

// ResampleWeekly aggregates chronological daily bars into ISO-week bars:
// open of the first session, max high, min low, close of the last
// session, summed volume. The final week is dropped unless its last
// session is a Friday, so a mid-week run never persists a partial week.
func ResampleWeekly(bars []contracts.DailyBar) []contracts.WeeklyBar {
	if len(bars) == 0 {
		return nil
	}

	byWeek := make(map[time.Time]*contracts.WeeklyBar)
	lastSession := make(map[time.Time]time.Time)

	for _, b := range bars {
		week := contracts.WeekStart(b.Date)
		agg, ok := byWeek[week]
		if !ok {
			byWeek[week] = &contracts.WeeklyBar{
				Symbol: b.Symbol,
				Week:   week,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			lastSession[week] = b.Date
			continue
		}

		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
		if b.Date.After(lastSession[week]) {
			lastSession[week] = b.Date
		}
	}

	weeks := make([]time.Time, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })

	// drop the in-progress final week
	if n := len(weeks); n > 0 {
		final := weeks[n-1]
		if lastSession[final].Weekday() != time.Friday {
			weeks = weeks[:n-1]
		}
	}

	out := make([]contracts.WeeklyBar, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, *byWeek[w])
	}
	return out
}
