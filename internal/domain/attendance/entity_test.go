package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoffFor_WallClockHourOnDSTDays(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		at   time.Time
	}{
		{"spring forward", time.Date(2026, 3, 8, 9, 0, 0, 0, loc)},
		{"fall back", time.Date(2026, 11, 1, 9, 0, 0, 0, loc)},
		{"regular day", time.Date(2026, 6, 10, 9, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff := CutoffFor(tt.at, loc, 19)

			local := cutoff.In(loc)
			assert.Equal(t, 19, local.Hour())
			assert.Equal(t, 0, local.Minute())
			assert.Equal(t, tt.at.Day(), local.Day())
		})
	}
}

func TestCutoffFor_UsesLocalCalendarDay(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	// 20:00 UTC on March 2 is already March 3 in WIB.
	at := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	cutoff := CutoffFor(at, wib, 19)

	assert.True(t, cutoff.Equal(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)))
}
