// Package report renders period and per-person summaries of the ledger.
// Every call loads the whole ledger, so reports always reflect the store at
// read time and nothing is cached between calls.
package report

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
	applog "flowerbot/internal/log"
)

const (
	NoData        = "No data available."
	InvalidPeriod = "Invalid period. Use daily, weekly or monthly."
	// NoDetailedData is the detailed report's empty-window reply.
	NoDetailedData = "No data."

	recentSales = 10
	entityWidth = 10
)

type Engine struct {
	reader ledger.Reader
	clock  func() time.Time
	logger *applog.Logger
}

type Option func(*Engine)

// WithClock overrides time.Now. The returned time's location decides where
// days, weeks and months begin.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(applog.ComponentReport) }
}

func New(reader ledger.Reader, opts ...Option) *Engine {
	e := &Engine{
		reader: reader,
		clock:  time.Now,
		logger: applog.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// totals aggregates one side (sales or purchases) of a set of rows.
type totals struct {
	volume decimal.Decimal
	value  decimal.Decimal
	count  int
}

func (t *totals) add(tx core.Transaction) {
	t.volume = t.volume.Add(tx.Amount)
	t.value = t.value.Add(tx.Price)
	t.count++
}

// perUnit is value/volume, or zero when nothing moved.
func (t totals) perUnit() decimal.Decimal {
	if t.volume.IsZero() {
		return decimal.Zero
	}
	return t.value.Div(t.volume)
}

type breakdown struct {
	sales totals
	buys  totals
}

func (b breakdown) profit() decimal.Decimal {
	return b.sales.value.Sub(b.buys.value)
}

func split(rows []core.Transaction) breakdown {
	var b breakdown
	for _, tx := range rows {
		switch tx.Action {
		case core.Sale:
			b.sales.add(tx)
		case core.Buy:
			b.buys.add(tx)
		}
	}
	return b
}

const (
	kindSummary  = "summary"
	kindDetailed = "detailed"
	kindPerson   = "person"
)

// load returns the ledger or ok=false when there is nothing to report on.
func (e *Engine) load(ctx context.Context, kind string) ([]core.Transaction, bool) {
	rows, err := e.reader.LoadAll(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load ledger",
			applog.FieldOperation, applog.OpLoad, "report", kind, applog.FieldError, err)
		return nil, false
	}
	return rows, len(rows) > 0
}

// window returns the rows at or after the period's start.
func window(rows []core.Transaction, p core.Period, now time.Time) []core.Transaction {
	start := p.WindowStart(now)
	var out []core.Transaction
	for _, tx := range rows {
		if !tx.Timestamp.Before(start) {
			out = append(out, tx)
		}
	}
	return out
}

// Summary reports sale and purchase volume, revenue, cost and profit for the
// current day, week or month.
func (e *Engine) Summary(ctx context.Context, period string) string {
	p, err := core.ParsePeriod(period)
	if err != nil {
		return InvalidPeriod
	}
	rows, ok := e.load(ctx, kindSummary)
	if !ok {
		return NoData
	}
	now := e.clock()
	in := window(rows, p, now)
	if len(in) == 0 {
		return fmt.Sprintf("No transactions found for %s.", p.Label())
	}
	b := split(in)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 *Report: %s*\n\n", p.Label())
	sb.WriteString("*Sales:*\n")
	fmt.Fprintf(&sb, "• Volume: %sg\n", b.sales.volume)
	fmt.Fprintf(&sb, "• Revenue: %s INR\n\n", b.sales.value)
	sb.WriteString("*Purchases:*\n")
	fmt.Fprintf(&sb, "• Volume: %sg\n", b.buys.volume)
	fmt.Fprintf(&sb, "• Cost: %s INR\n\n", b.buys.value)
	fmt.Fprintf(&sb, "💰 *Net Profit:* %s INR", b.profit())

	e.logger.DebugContext(ctx, "Report generated",
		applog.FieldOperation, applog.OpReport, "report", kindSummary,
		applog.FieldPeriod, string(p), "rows", len(in))
	return sb.String()
}

// Detailed extends Summary with per-unit averages, counts, the top buyer and
// a table of every row in the window, newest first.
func (e *Engine) Detailed(ctx context.Context, period string) string {
	p, err := core.ParsePeriod(period)
	if err != nil {
		return InvalidPeriod
	}
	rows, ok := e.load(ctx, kindDetailed)
	if !ok {
		return NoData
	}
	now := e.clock()
	in := window(rows, p, now)
	if len(in) == 0 {
		return NoDetailedData
	}
	b := split(in)

	top := "N/A"
	if name, value, ok := topBuyer(in); ok {
		top = fmt.Sprintf("%s (₹%s)", name, money(value))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 *Detailed Report (%s)*\n\n", p)
	sb.WriteString("*💰 Financials:*\n")
	fmt.Fprintf(&sb, "• Revenue: ₹%s\n", money(b.sales.value))
	fmt.Fprintf(&sb, "• Cost: ₹%s\n", money(b.buys.value))
	fmt.Fprintf(&sb, "• Profit: ₹%s\n\n", money(b.profit()))
	sb.WriteString("*📦 Inventory & Volume:*\n")
	fmt.Fprintf(&sb, "• Sold: %sg (Avg: ₹%s/g)\n", b.sales.volume, b.sales.perUnit().StringFixed(2))
	fmt.Fprintf(&sb, "• Bought: %sg (Avg: ₹%s/g)\n", b.buys.volume, b.buys.perUnit().StringFixed(2))
	fmt.Fprintf(&sb, "• Txns: %d Sales, %d Buys\n", b.sales.count, b.buys.count)
	fmt.Fprintf(&sb, "• Top Buyer: %s\n\n", top)

	sorted := slices.Clone(in)
	slices.SortStableFunc(sorted, func(a, b core.Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	loc := now.Location()
	sb.WriteString("*📋 All Transactions:*\n```\n")
	fmt.Fprintf(&sb, "%-10s | %-4s | %-10s | %-5s | %s\n", "Date", "Act", "Entity", "Amt", "Price")
	sb.WriteString(strings.Repeat("-", 50) + "\n")
	for _, tx := range sorted {
		fmt.Fprintf(&sb, "%-10s | %-4s | %-10s | %-5s | %s\n",
			tx.Timestamp.In(loc).Format(time.DateOnly),
			truncate(tx.Action.String(), 4),
			truncate(tx.Counterparty, entityWidth),
			tx.Amount, tx.Price)
	}
	sb.WriteString("```")

	e.logger.DebugContext(ctx, "Report generated",
		applog.FieldOperation, applog.OpReport, "report", kindDetailed,
		applog.FieldPeriod, string(p), "rows", len(in))
	return sb.String()
}

// Person reports one seller's sales across the whole ledger. The name is
// matched case-insensitively and shown title-cased.
func (e *Engine) Person(ctx context.Context, name string) string {
	rows, ok := e.load(ctx, kindPerson)
	if !ok {
		return NoData
	}

	var mine []core.Transaction
	for _, tx := range rows {
		if strings.ToLower(tx.Seller) == strings.ToLower(name) {
			mine = append(mine, tx)
		}
	}
	if len(mine) == 0 {
		return fmt.Sprintf("No transactions found for '%s'.", name)
	}

	var sales []core.Transaction
	for _, tx := range mine {
		if tx.Action == core.Sale {
			sales = append(sales, tx)
		}
	}
	b := split(sales)

	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 *Report for %s*\n\n", cases.Title(language.Und).String(name))
	sb.WriteString("*Stats:*\n")
	fmt.Fprintf(&sb, "• Vol: %sg\n", b.sales.volume)
	fmt.Fprintf(&sb, "• Rev: ₹%s\n", b.sales.value)
	fmt.Fprintf(&sb, "• Txns: %d", b.sales.count)

	if len(sales) > 0 {
		recent := sales[max(0, len(sales)-recentSales):]
		loc := e.clock().Location()
		sb.WriteString("\n\n*Recent Sales:*\n```\n")
		fmt.Fprintf(&sb, "%-10s | %-10s | %-5s | %s\n", "Date", "Buyer", "Amt", "Price")
		sb.WriteString(strings.Repeat("-", 42) + "\n")
		for _, tx := range recent {
			fmt.Fprintf(&sb, "%-10s | %-10s | %-5s | %s\n",
				tx.Timestamp.In(loc).Format(time.DateOnly),
				truncate(tx.Counterparty, entityWidth),
				tx.Amount, tx.Price)
		}
		sb.WriteString("```")
	}
	return sb.String()
}

// topBuyer returns the counterparty with the largest summed sale price.
// Ties go to the lexicographically smallest name.
func topBuyer(rows []core.Transaction) (string, decimal.Decimal, bool) {
	sums := map[string]decimal.Decimal{}
	for _, tx := range rows {
		if tx.Action == core.Sale {
			sums[tx.Counterparty] = sums[tx.Counterparty].Add(tx.Price)
		}
	}
	var (
		best  string
		value decimal.Decimal
		found bool
	)
	for name, v := range sums {
		if !found || v.GreaterThan(value) || (v.Equal(value) && name < best) {
			best, value, found = name, v, true
		}
	}
	return best, value, found
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
