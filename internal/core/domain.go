package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Sale Action = "Sale"
	Buy  Action = "Buy"
)

// UnknownCounterparty is recorded when a message does not name the other side.
const UnknownCounterparty = "Unknown"

type (
	// Action is the side of a transaction as stored in the ledger.
	Action string

	// Transaction is one logged Sale or Buy. It is never mutated once appended.
	Transaction struct {
		Timestamp    time.Time
		Seller       string // who logged it
		Action       Action
		Counterparty string          // buyer for a Sale, supplier for a Buy
		Amount       decimal.Decimal // grams
		Price        decimal.Decimal // INR
	}

	// Intent is what the interpreter extracts from a chat message.
	Intent struct {
		Action       Action
		Amount       decimal.Decimal
		Counterparty string
		Price        decimal.Decimal
	}
)

var (
	ErrInvalidAction     = errors.New("invalid action")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrNegativePrice     = errors.New("price must not be negative")
	ErrEmptyCounterparty = errors.New("empty counterparty")
	ErrEmptySeller       = errors.New("empty seller")
	ErrZeroTimestamp     = errors.New("timestamp cannot be zero")
)

// ParseAction maps a stored action label back to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sale":
		return Sale, nil
	case "buy":
		return Buy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

func (a Action) Valid() bool {
	return a == Sale || a == Buy
}

func (a Action) String() string {
	return string(a)
}

func (t Transaction) Validate() error {
	if t.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if strings.TrimSpace(t.Seller) == "" {
		return ErrEmptySeller
	}
	if !t.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, t.Action)
	}
	if strings.TrimSpace(t.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Transaction stamps the intent with the logging time and seller.
func (i Intent) Transaction(ts time.Time, seller string) Transaction {
	cp := strings.TrimSpace(i.Counterparty)
	if cp == "" {
		cp = UnknownCounterparty
	}
	return Transaction{
		Timestamp:    ts,
		Seller:       seller,
		Action:       i.Action,
		Counterparty: cp,
		Amount:       i.Amount,
		Price:        i.Price,
	}
}

// WeekID returns the ISO year and two-digit ISO week, e.g. "202548".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d%02d", year, week)
}
