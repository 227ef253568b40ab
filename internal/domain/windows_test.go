package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNDVIWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{"before June uses last year", date(2025, time.May, 20), date(2024, time.May, 1)},
		{"January uses last year", date(2025, time.January, 3), date(2024, time.May, 1)},
		{"June uses this year", date(2025, time.June, 1), date(2025, time.May, 1)},
		{"autumn uses this year", date(2025, time.October, 9), date(2025, time.May, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NDVIWindow(tt.now)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantStart.AddDate(0, 1, 0), w.End)
		})
	}
}

func TestRainfallWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"February uses the previous cool season", date(2025, time.February, 10), date(2023, time.November, 1), date(2024, time.April, 1)},
		{"March uses the season just ending", date(2025, time.March, 1), date(2024, time.November, 1), date(2025, time.April, 1)},
		{"December", date(2025, time.December, 24), date(2024, time.November, 1), date(2025, time.April, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := RainfallWindow(tt.now)
			assert.Equal(t, tt.wantStart, w.Start)
			assert.Equal(t, tt.wantEnd, w.End)
		})
	}
}

func TestCurrentWindows(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(date(2025, time.July, 15)))
	defer SetClock(nil)

	w := CurrentWindows()

	assert.Equal(t, date(2025, time.May, 1), w.Greenness.Start)
	assert.Equal(t, date(2024, time.November, 1), w.Rainfall.Start)
	assert.Equal(t, ET0Window, w.ET0)
}
