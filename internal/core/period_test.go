package core

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	for _, in := range []string{"daily", "weekly", "monthly"} {
		if _, err := ParsePeriod(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	for _, in := range []string{"", "yearly", "week", "Weekly", " daily", "MONTHLY"} {
		if _, err := ParsePeriod(in); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("%q: expected ErrInvalidPeriod, got %v", in, err)
		}
	}
}

func TestWindowStart(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// Thursday
	now := time.Date(2025, 12, 11, 15, 30, 0, 0, loc)
	cases := []struct {
		p    Period
		want time.Time
	}{
		{Daily, time.Date(2025, 12, 11, 0, 0, 0, 0, loc)},
		{Weekly, time.Date(2025, 12, 8, 0, 0, 0, 0, loc)},
		{Monthly, time.Date(2025, 12, 1, 0, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		if got := tc.p.WindowStart(now); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.p, got, tc.want)
		}
	}
}

func TestWeeklyWindowStartEdges(t *testing.T) {
	monday := time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC)
	if got := Weekly.WindowStart(monday); !got.Equal(time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("monday: got %s", got)
	}
	sunday := time.Date(2025, 12, 14, 23, 59, 0, 0, time.UTC)
	if got := Weekly.WindowStart(sunday); !got.Equal(time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("sunday: got %s", got)
	}
	// crosses a month boundary
	wed := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	if got := Weekly.WindowStart(wed); !got.Equal(time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month boundary: got %s", got)
	}
}

func TestPeriodLabel(t *testing.T) {
	if Daily.Label() != "Today" || Weekly.Label() != "This Week" || Monthly.Label() != "This Month" {
		t.Fatalf("unexpected labels")
	}
}
