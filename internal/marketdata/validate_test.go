package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanmb/swingline/internal/contracts"
)

func TestCleanBars(t *testing.T) {
	bars := []contracts.DailyBar{
		bar(day(2026, 1, 5), 100, 105, 99, 104, 1000),   // ok
		bar(day(2026, 1, 6), 104, 100, 103, 102, 2000),  // high below low
		bar(day(2026, 1, 7), 0, 109, 101, 102, 1500),    // zero open
		bar(day(2026, 1, 8), 102, 106, 100, 108, 1200),  // close above high
		bar(day(2026, 1, 9), 105, 112, 104, 111, -3000), // negative volume
		bar(day(2026, 1, 12), 111, 113, 110, 112, 900),  // ok
	}

	clean, dropped := CleanBars(bars)
	require.Len(t, clean, 2)
	assert.Len(t, dropped, 4)
	assert.Equal(t, day(2026, 1, 5), clean[0].Date)
	assert.Equal(t, day(2026, 1, 12), clean[1].Date)
}

func TestValidateSeries(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		wantErr bool
	}{
		{"normal moves", []float64{100, 103, 98, 102}, false},
		{"exactly 50 percent up", []float64{100, 150}, false},
		{"split-like drop", []float64{400, 100}, true},
		{"bonus-like jump", []float64{100, 260}, true},
		{"single bar", []float64{100}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := make([]contracts.DailyBar, len(tt.closes))
			for i, c := range tt.closes {
				bars[i] = bar(day(2026, 1, 5+i), c, c, c, c, 100)
			}

			err := ValidateSeries("TEST", bars)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
