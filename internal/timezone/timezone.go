package timezone

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"gymnexus/internal/gymerr"
)

const DefaultTimezone = "America/Bogota"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clock returns a now-function pinned to the gym's timezone.
func Clock(tz string) func() time.Time {
	loc := Location(tz)
	return func() time.Time {
		return time.Now().In(loc)
	}
}

// Date truncates t to its calendar day, expressed as midnight UTC so that
// day arithmetic never crosses a DST boundary.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

func AddDays(t time.Time, days int) time.Time {
	return Date(t).AddDate(0, 0, days)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", gymerr.ErrInvalidFormat, s)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
