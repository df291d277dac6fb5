/*
report.go - Immutable analysis result and derived queries

PURPOSE:
  The Report aggregates everything one engine run produced: the sorted
  transactions, loss sales, violations, warnings, and summary counts.
  Built once per input dataset, never mutated after construction.

DERIVED VIEWS:
  ActiveWindows and CheckTicker are pure functions of (Report, asOf).
  They recompute on every call - results are never cached across reference
  date changes - and never mutate the Report, so they are safe to call
  concurrently and repeatedly.

ACTIVE WINDOW PREDICATE:
  A loss sale is active relative to asOf iff saleDate + 31 days > asOf.
  The sale on day D is active through D+30 and inactive starting D+31.

SEE ALSO:
  - engine.go: Constructs the Report
  - types.go: LossSale window arithmetic, TickerStatus
*/
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT - Immutable aggregate of one engine run
// =============================================================================

type Report struct {
	transactions []Transaction // sorted (date, Buy-before-Sell)
	lossSales    []*LossSale
	violations   []*Violation
	warnings     []string
	skippedSells int
}

func newReport(transactions []Transaction, lossSales []*LossSale, violations []*Violation, warnings []string, skippedSells int) *Report {
	return &Report{
		transactions: transactions,
		lossSales:    lossSales,
		violations:   violations,
		warnings:     warnings,
		skippedSells: skippedSells,
	}
}

// Transactions returns the analyzed transactions in processing order.
func (r *Report) Transactions() []Transaction {
	out := make([]Transaction, len(r.transactions))
	copy(out, r.transactions)
	return out
}

// LossSales returns all loss sales, ordered by sale date.
func (r *Report) LossSales() []*LossSale {
	out := make([]*LossSale, len(r.lossSales))
	copy(out, r.lossSales)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SaleDate.Before(out[j].SaleDate) })
	return out
}

// Violations returns all violations, ordered by triggering buy date.
func (r *Report) Violations() []*Violation {
	out := make([]*Violation, len(r.violations))
	copy(out, r.violations)
	sort.SliceStable(out, func(i, j int) bool { return out[i].BuyDate.Before(out[j].BuyDate) })
	return out
}

// Warnings returns the non-fatal warnings recorded during the run.
func (r *Report) Warnings() []string {
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// =============================================================================
// SUMMARY - Counts and date range for display
// =============================================================================

type Summary struct {
	TotalTransactions int
	Buys              int
	Sells             int
	TickerCount       int
	FirstDate         Date
	LastDate          Date
	LossSaleCount     int
	ViolationCount    int
	SkippedSells      int
	TotalLoss         decimal.Decimal
	TotalDisallowed   decimal.Decimal
}

func (r *Report) Summary() Summary {
	s := Summary{
		TotalTransactions: len(r.transactions),
		LossSaleCount:     len(r.lossSales),
		ViolationCount:    len(r.violations),
		SkippedSells:      r.skippedSells,
		TotalLoss:         decimal.Zero,
		TotalDisallowed:   decimal.Zero,
	}

	tickers := make(map[string]bool)
	for _, tx := range r.transactions {
		tickers[tx.Ticker] = true
		switch tx.Kind {
		case Buy:
			s.Buys++
		case Sell:
			s.Sells++
		}
	}
	s.TickerCount = len(tickers)

	if len(r.transactions) > 0 {
		// transactions are sorted, so the range is just the endpoints
		s.FirstDate = r.transactions[0].Date
		s.LastDate = r.transactions[len(r.transactions)-1].Date
	}

	for _, ls := range r.lossSales {
		s.TotalLoss = s.TotalLoss.Add(ls.LossAmount)
	}
	for _, v := range r.violations {
		s.TotalDisallowed = s.TotalDisallowed.Add(v.DisallowedLoss)
	}
	return s
}

// =============================================================================
// ACTIVE WINDOWS - Derived view, parameterized by reference date
// =============================================================================

// ActiveWindows returns the loss sales whose wash window is still open
// relative to asOf, ordered by sale date.
func (r *Report) ActiveWindows(asOf Date) []*LossSale {
	var active []*LossSale
	for _, ls := range r.lossSales {
		if ls.Active(asOf) {
			active = append(active, ls)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].SaleDate.Before(active[j].SaleDate) })
	return active
}

// TickerWindows groups a ticker's active windows for display.
type TickerWindows struct {
	Ticker    string
	TotalLoss decimal.Decimal
	Windows   []*LossSale
}

// ActiveWindowsByTicker groups active windows per ticker, ranked by summed
// loss amount descending (ties broken by ticker name ascending).
func (r *Report) ActiveWindowsByTicker(asOf Date) []TickerWindows {
	byTicker := make(map[string]*TickerWindows)
	var order []string

	for _, ls := range r.ActiveWindows(asOf) {
		group, ok := byTicker[ls.Ticker]
		if !ok {
			group = &TickerWindows{Ticker: ls.Ticker, TotalLoss: decimal.Zero}
			byTicker[ls.Ticker] = group
			order = append(order, ls.Ticker)
		}
		group.TotalLoss = group.TotalLoss.Add(ls.LossAmount)
		group.Windows = append(group.Windows, ls)
	}

	groups := make([]TickerWindows, 0, len(order))
	for _, ticker := range order {
		groups = append(groups, *byTicker[ticker])
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if !groups[i].TotalLoss.Equal(groups[j].TotalLoss) {
			return groups[i].TotalLoss.GreaterThan(groups[j].TotalLoss)
		}
		return groups[i].Ticker < groups[j].Ticker
	})
	return groups
}

// =============================================================================
// TICKER CHECK - "Is it safe to buy?"
// =============================================================================

// CheckTicker reports whether buying the given ticker on asOf would fall
// inside an active wash window. Ticker matching is case-insensitive exact
// match only - no equivalence classes.
func (r *Report) CheckTicker(asOf Date, ticker string) TickerStatus {
	var matches []*LossSale
	for _, ls := range r.ActiveWindows(asOf) {
		if strings.EqualFold(ls.Ticker, ticker) {
			matches = append(matches, ls)
		}
	}

	if len(matches) == 0 {
		return TickerStatus{
			Ticker:    ticker,
			CheckDate: asOf,
			Safe:      true,
			Message:   fmt.Sprintf("%s is clear - no wash sale restrictions", ticker),
		}
	}

	// The binding restriction is the latest safe date across matches.
	safeDate := matches[0].SafeDate()
	for _, ls := range matches[1:] {
		if ls.SafeDate().After(safeDate) {
			safeDate = ls.SafeDate()
		}
	}
	daysUntil := DaysBetween(asOf, safeDate)

	return TickerStatus{
		Ticker:        ticker,
		CheckDate:     asOf,
		Safe:          false,
		ActiveWindows: matches,
		SafeDate:      safeDate,
		DaysUntilSafe: daysUntil,
		Message: fmt.Sprintf("WASH SALE WARNING: do not buy %s - safe after %s (%d days)",
			ticker, safeDate, daysUntil),
	}
}
