package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// Period names a reporting window that ends at the time of the request.
type Period string

var ErrInvalidPeriod = errors.New("invalid period")

// Periods lists the recognized periods in display order.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly}
}

// ParsePeriod accepts exactly "daily", "weekly" or "monthly".
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	switch p {
	case Daily, Weekly, Monthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// WindowStart returns the inclusive start of the window containing now:
// midnight today, midnight of the most recent Monday, or midnight on the
// first of the month. Midnight is taken in now's location.
func (p Period) WindowStart(now time.Time) time.Time {
	y, m, d := now.Date()
	loc := now.Location()
	switch p {
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Weekly:
		// Monday=0 ... Sunday=6
		offset := (int(now.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return now
	}
}

// Label is the heading used in summary reports.
func (p Period) Label() string {
	switch p {
	case Daily:
		return "Today"
	case Weekly:
		return "This Week"
	case Monthly:
		return "This Month"
	default:
		return string(p)
	}
}

func (p Period) String() string {
	return string(p)
}
