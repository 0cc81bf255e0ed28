package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/ServicePortal/app/models"
)

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case models.IntervalMonthly, models.IntervalAnnual:
		return i
	default:
		return "unknown"
	}
}

// NextBillingDate moves prev forward by one interval. The day of month is the
// anchor day clamped to the length of the target month, so a Jan 31 anchor
// bills on Feb 29 and then on Mar 31 again. An anchor of 0 uses prev's day.
func NextBillingDate(prev time.Time, interval string, anchorDay int) (time.Time, error) {
	if anchorDay <= 0 || anchorDay > 31 {
		anchorDay = prev.Day()
	}

	year, month := prev.Year(), prev.Month()
	switch normalizeInterval(interval) {
	case models.IntervalMonthly:
		month++
		if month > time.December {
			month = time.January
			year++
		}
	case models.IntervalAnnual:
		year++
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
	}

	day := anchorDay
	if last := daysIn(year, month, prev.Location()); day > last {
		day = last
	}
	return time.Date(year, month, day, prev.Hour(), prev.Minute(), prev.Second(), prev.Nanosecond(), prev.Location()), nil
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
