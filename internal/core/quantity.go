// Package core provides quantity parsing for amounts and prices typed in chat.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidNumber = errors.New("invalid number")

// ParseQuantity converts a plain non-negative decimal ("100", "2.5", ".5", "5.")
// into a decimal.Decimal.
//
// Signs, exponents, thousands separators and any other characters are rejected,
// so "-5", "1e3" and "1,000" all return ErrInvalidNumber.
func ParseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidNumber
	}
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r <= unicode.MaxASCII && unicode.IsDigit(r):
			digits++
		default:
			return decimal.Zero, ErrInvalidNumber
		}
	}
	if digits == 0 || dots > 1 {
		return decimal.Zero, ErrInvalidNumber
	}
	if strings.HasSuffix(s, ".") {
		s = strings.TrimSuffix(s, ".")
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}
