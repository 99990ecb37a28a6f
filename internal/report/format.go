package report

import (
	"math/big"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// money renders an INR amount with thousands separators and two decimals.
// The digits come from the decimal itself, never from a float.
func money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = "-", rest
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return sign + s
	}
	return sign + humanize.BigComma(n) + "." + frac
}
