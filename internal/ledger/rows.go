// Package ledger defines the ledger ports and the persisted row shape shared
// by every backend.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"flowerbot/internal/core"
)

// TimestampLayout is how timestamps are written to a page.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the fixed column order of every page.
var Header = []string{"Timestamp", "Seller", "Action", "Buyer/Source", "Amount(g)", "Price(INR)", "WeekID"}

var ErrMalformedRow = errors.New("malformed ledger row")

// EncodeRow renders a transaction in Header order. Amount and price are
// written as numbers so the sheet can sum them.
func EncodeRow(tx core.Transaction) []any {
	return []any{
		tx.Timestamp.Format(TimestampLayout),
		tx.Seller,
		tx.Action.String(),
		tx.Counterparty,
		tx.Amount.InexactFloat64(),
		tx.Price.InexactFloat64(),
		core.WeekID(tx.Timestamp),
	}
}

// DecodeRow parses a row read back from a page. Timestamps carry no zone and
// are interpreted in loc. Cells may be strings or numbers.
func DecodeRow(row []any, loc *time.Location) (core.Transaction, error) {
	if len(row) < 6 {
		return core.Transaction{}, fmt.Errorf("%w: %d columns", ErrMalformedRow, len(row))
	}
	if loc == nil {
		loc = time.Local
	}
	ts, err := time.ParseInLocation(TimestampLayout, cellString(row[0]), loc)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedRow, err)
	}
	action, err := core.ParseAction(cellString(row[2]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	amount, err := cellDecimal(row[4])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: amount: %v", ErrMalformedRow, err)
	}
	price, err := cellDecimal(row[5])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: price: %v", ErrMalformedRow, err)
	}
	cp := cellString(row[3])
	if cp == "" {
		cp = core.UnknownCounterparty
	}
	tx := core.Transaction{
		Timestamp:    ts,
		Seller:       cellString(row[1]),
		Action:       action,
		Counterparty: cp,
		Amount:       amount,
		Price:        price,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return tx, nil
}

// IsHeader reports whether the row is the column header of a page.
func IsHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(cellString(row[0]), Header[0])
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func cellDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("not finite: %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	s := strings.ReplaceAll(cellString(v), ",", "")
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
