package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionValidate(t *testing.T) {
	ts := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	good := Transaction{
		Timestamp:    ts,
		Seller:       "Asha",
		Action:       Sale,
		Counterparty: "Priya",
		Amount:       decimal.NewFromInt(3),
		Price:        decimal.NewFromInt(450),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero timestamp", func(tx *Transaction) { tx.Timestamp = time.Time{} }, ErrZeroTimestamp},
		{"empty seller", func(tx *Transaction) { tx.Seller = " " }, ErrEmptySeller},
		{"bad action", func(tx *Transaction) { tx.Action = "Gift" }, ErrInvalidAction},
		{"empty counterparty", func(tx *Transaction) { tx.Counterparty = "" }, ErrEmptyCounterparty},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrNegativeAmount},
		{"negative price", func(tx *Transaction) { tx.Price = decimal.NewFromInt(-1) }, ErrNegativePrice},
	}
	for _, tc := range cases {
		tx := good
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestZeroAmountAndPriceAreValid(t *testing.T) {
	tx := Intent{Action: Buy}.Transaction(time.Now(), "Asha")
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestIntentTransactionDefaultsCounterparty(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := Intent{Action: Sale, Amount: decimal.NewFromInt(1), Counterparty: "  ", Price: decimal.NewFromInt(2)}.Transaction(ts, "Ravi")
	if tx.Counterparty != UnknownCounterparty {
		t.Fatalf("expected default counterparty, got %q", tx.Counterparty)
	}
	if !tx.Timestamp.Equal(ts) || tx.Seller != "Ravi" || tx.Action != Sale {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestParseAction(t *testing.T) {
	for in, want := range map[string]Action{"Sale": Sale, "sale": Sale, " BUY ": Buy} {
		got, err := ParseAction(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q err=%v", in, got, err)
		}
	}
	if _, err := ParseAction("refund"); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestWeekID(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC), "202548"},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "202601"},
		// ISO year differs from calendar year
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), "202501"},
	}
	for _, tc := range cases {
		if got := WeekID(tc.t); got != tc.want {
			t.Fatalf("WeekID(%s) = %s, want %s", tc.t.Format(time.DateOnly), got, tc.want)
		}
	}
}
