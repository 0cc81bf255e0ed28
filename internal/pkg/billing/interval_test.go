package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 30, 0, 0, time.UTC)
}

func TestNextBillingDate(t *testing.T) {
	tests := []struct {
		name     string
		prev     time.Time
		interval string
		anchor   int
		want     time.Time
	}{
		{"monthly mid month", date(2024, 1, 15), models.IntervalMonthly, 15, date(2024, 2, 15)},
		{"monthly year rollover", date(2024, 12, 10), models.IntervalMonthly, 10, date(2025, 1, 10)},
		{"monthly clamps to leap february", date(2024, 1, 31), models.IntervalMonthly, 31, date(2024, 2, 29)},
		{"monthly restores anchor after short month", date(2024, 2, 29), models.IntervalMonthly, 31, date(2024, 3, 31)},
		{"monthly clamps to thirty days", date(2024, 3, 31), models.IntervalMonthly, 31, date(2024, 4, 30)},
		{"monthly without anchor uses prev day", date(2024, 5, 20), models.IntervalMonthly, 0, date(2024, 6, 20)},
		{"annual", date(2024, 1, 1), models.IntervalAnnual, 1, date(2025, 1, 1)},
		{"annual from leap day", date(2024, 2, 29), models.IntervalAnnual, 29, date(2025, 2, 28)},
		{"interval is case insensitive", date(2024, 1, 1), " Monthly ", 1, date(2024, 2, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextBillingDate(tt.prev, tt.interval, tt.anchor)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestNextBillingDateRejectsOneTime(t *testing.T) {
	_, err := NextBillingDate(date(2024, 1, 1), models.IntervalOneTime, 1)
	assert.ErrorIs(t, err, ErrUnsupportedInterval)
}
