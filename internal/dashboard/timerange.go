package dashboard

import "time"

// TimeRange is the dashboard look-back window.
type TimeRange string

const (
	Range1Month  TimeRange = "1m"
	Range3Months TimeRange = "3m"
	Range6Months TimeRange = "6m"
	Range1Year   TimeRange = "1y"

	DefaultRange = Range6Months
)

// ParseTimeRange maps a query value to a TimeRange. Unknown or empty values
// fall back to DefaultRange.
func ParseTimeRange(s string) TimeRange {
	switch TimeRange(s) {
	case Range1Month, Range3Months, Range6Months, Range1Year:
		return TimeRange(s)
	default:
		return DefaultRange
	}
}

// Since returns the first day included in the window ending at now.
func (r TimeRange) Since(now time.Time) time.Time {
	switch r {
	case Range1Month:
		return now.AddDate(0, -1, 0)
	case Range3Months:
		return now.AddDate(0, -3, 0)
	case Range1Year:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -6, 0)
	}
}
