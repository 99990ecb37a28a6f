package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowerbot/internal/core"
)

func TestEncodeRowColumnOrder(t *testing.T) {
	ts := time.Date(2025, 11, 26, 14, 5, 9, 0, time.UTC)
	row := EncodeRow(core.Transaction{
		Timestamp:    ts,
		Seller:       "Asha",
		Action:       core.Sale,
		Counterparty: "Priya",
		Amount:       decimal.RequireFromString("2.5"),
		Price:        decimal.NewFromInt(450),
	})
	require.Len(t, row, len(Header))
	assert.Equal(t, []any{"2025-11-26 14:05:09", "Asha", "Sale", "Priya", 2.5, 450.0, "202548"}, row)
}

func TestDecodeRow(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	t.Run("numeric cells", func(t *testing.T) {
		tx, err := DecodeRow([]any{"2025-11-26 14:05:09", "Asha", "Buy", "Mill", 2.5, 450.0, "202548"}, loc)
		require.NoError(t, err)
		assert.True(t, tx.Timestamp.Equal(time.Date(2025, 11, 26, 14, 5, 9, 0, loc)))
		assert.Equal(t, core.Buy, tx.Action)
		assert.Equal(t, "Mill", tx.Counterparty)
		assert.Equal(t, "2.5", tx.Amount.String())
		assert.Equal(t, "450", tx.Price.String())
	})

	t.Run("string cells and missing week id", func(t *testing.T) {
		tx, err := DecodeRow([]any{"2025-11-26 14:05:09", "Asha", "sale", "", "3", "1,200.50"}, loc)
		require.NoError(t, err)
		assert.Equal(t, core.Sale, tx.Action)
		assert.Equal(t, core.UnknownCounterparty, tx.Counterparty)
		assert.Equal(t, "1200.5", tx.Price.String())
	})

	bad := [][]any{
		{"Timestamp", "Seller", "Action", "Buyer/Source", "Amount(g)", "Price(INR)", "WeekID"},
		{"2025-11-26 14:05:09", "Asha", "Sale"},
		{"2025-11-26 14:05:09", "Asha", "Gift", "Priya", 1.0, 1.0},
		{"2025-11-26 14:05:09", "Asha", "Sale", "Priya", "lots", 1.0},
		{"2025-11-26 14:05:09", "Asha", "Sale", "Priya", -1.0, 1.0},
		{"2025-11-26 14:05:09", "", "Sale", "Priya", 1.0, 1.0},
	}
	for i, row := range bad {
		_, err := DecodeRow(row, loc)
		if !errors.Is(err, ErrMalformedRow) {
			t.Fatalf("case %d: expected ErrMalformedRow, got %v", i, err)
		}
	}
}

func TestRoundTripThroughRow(t *testing.T) {
	tx := core.Transaction{
		Timestamp:    time.Date(2026, 1, 3, 8, 0, 0, 0, time.UTC),
		Seller:       "Ravi",
		Action:       core.Buy,
		Counterparty: "Supplier",
		Amount:       decimal.NewFromInt(100),
		Price:        decimal.NewFromInt(500),
	}
	got, err := DecodeRow(EncodeRow(tx), time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(tx.Timestamp))
	assert.True(t, got.Amount.Equal(tx.Amount))
	assert.True(t, got.Price.Equal(tx.Price))
	assert.Equal(t, tx.Counterparty, got.Counterparty)
}

func TestIsHeader(t *testing.T) {
	assert.True(t, IsHeader([]any{"Timestamp", "Seller"}))
	assert.False(t, IsHeader([]any{"2025-11-26 14:05:09"}))
	assert.False(t, IsHeader(nil))
}

func TestPageName(t *testing.T) {
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), "December Week 1"},
		{time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC), "December Week 2"},
		// November 2025 starts on a Saturday
		{time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC), "November Week 1"},
		{time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC), "November Week 2"},
		{time.Date(2025, 11, 30, 9, 0, 0, 0, time.UTC), "November Week 5"},
		// March 2026 starts on a Sunday
		{time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC), "March Week 6"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PageName(tc.t), tc.t.Format(time.DateOnly))
	}
}
