package ledger

import (
	"fmt"
	"time"
)

// PageName names the page a transaction at t is written to, e.g.
// "December Week 1".
func PageName(t time.Time) string {
	return fmt.Sprintf("%s Week %d", t.Month(), WeekOfMonth(t))
}

// WeekOfMonth returns 1..6: the day of month offset by the weekday of the
// first of the month (Monday=0), divided into weeks and rounded up.
func WeekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := (int(first.Weekday()) + 6) % 7
	return (t.Day() + offset + 6) / 7
}
