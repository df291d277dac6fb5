/*
Package engine provides the core wash sale detection engine.

PURPOSE:
  This package contains the types and algorithms for detecting IRS wash sale
  violations in a brokerage transaction history: FIFO cost-basis lot matching,
  loss-sale identification, bidirectional wash-window correlation, and
  active-restriction queries against a caller-supplied reference date.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: A validated Buy or Sell record (the engine's only input)
  - Lot: A discrete acquisition of shares, tracked until fully sold
  - LossSale: A realized loss with its 61-day wash window
  - Violation: A buy correlated with a loss sale inside the window
  - TickerStatus: Answer to "is it safe to buy this ticker today?"

DESIGN PRINCIPLES:
  1. Immutability: Transactions, LossSales, and Violations are never revised
  2. Precision: Uses decimal.Decimal for all currency and share quantities
  3. Explicit time: The reference date is always a parameter, never ambient
  4. Best effort: Bad rows become warnings, never aborted runs

USAGE:
  report := engine.BuildReport(transactions)
  for _, v := range report.Violations() {
      fmt.Println(v.Ticker, v.BuyDate, v.DisallowedLoss)
  }
  status := report.CheckTicker(engine.Today(), "XYZ")

SEE ALSO:
  - ledger.go: FIFO lot matching
  - correlator.go: Wash-window correlation and deduplication
  - report.go: Immutable report and derived queries
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION - Validated input record
// =============================================================================

type TransactionKind string

const (
	Buy  TransactionKind = "Buy"
	Sell TransactionKind = "Sell"
)

// Transaction is a single validated trade. It is produced by the ingestion
// layer (or constructed directly in tests) and never mutated by the engine.
//
// Amount is the signed settlement cash flow: negative for buys, positive
// for sells.
type Transaction struct {
	Date     Date
	Ticker   string
	Kind     TransactionKind
	Quantity decimal.Decimal // shares, > 0
	Price    decimal.Decimal // unit price, >= 0
	Amount   decimal.Decimal // signed cash flow
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s @ $%s", t.Date, t.Kind, t.Quantity, t.Ticker, t.Price)
}

// =============================================================================
// LOT - A discrete acquisition, owned by the LotLedger
// =============================================================================

// Lot tracks one buy until it is fully matched against sells.
//
// INVARIANT: 0 <= Remaining <= Quantity. Remaining only decreases, and the
// lot is removed from its queue once Remaining falls to the depletion epsilon.
type Lot struct {
	Ticker    string
	Acquired  Date
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Remaining decimal.Decimal
}

// lotFromBuy creates a fresh lot from a buy transaction.
func lotFromBuy(tx Transaction) *Lot {
	return &Lot{
		Ticker:    tx.Ticker,
		Acquired:  tx.Date,
		Quantity:  tx.Quantity,
		Price:     tx.Price,
		Remaining: tx.Quantity,
	}
}

// depletionEpsilon tolerates floating accumulation from fractional-share
// brokers. It applies ONLY to lot depletion, never to loss or violation
// amounts.
var depletionEpsilon = decimal.RequireFromString("0.0001")

func (l *Lot) depleted() bool {
	return l.Remaining.LessThanOrEqual(depletionEpsilon)
}

func (l *Lot) String() string {
	return fmt.Sprintf("Lot(%s, %s/%s %s @ $%s)", l.Acquired, l.Remaining, l.Quantity, l.Ticker, l.Price)
}

// =============================================================================
// LOSS SALE - Realized loss with its wash window
// =============================================================================

// WashWindowDays is the number of calendar days on each side of a loss sale
// in which a repurchase triggers the wash rule. The full window spans 61
// days: 30 before, the sale day, 30 after.
const WashWindowDays = 30

// LossSale records a sell whose matched proceeds fell below matched cost
// basis. Created once by the engine's single pass, immutable thereafter.
//
// QuantitySold may be less than the original sell order if open lots were
// insufficient (partial fill).
type LossSale struct {
	Ticker       string
	SaleDate     Date
	QuantitySold decimal.Decimal
	Proceeds     decimal.Decimal
	CostBasis    decimal.Decimal
	LossAmount   decimal.Decimal // positive
}

// WindowStart is the first day of the wash window (30 days before the sale).
func (ls *LossSale) WindowStart() Date { return ls.SaleDate.AddDays(-WashWindowDays) }

// WindowEnd is the last day of the wash window (30 days after the sale).
func (ls *LossSale) WindowEnd() Date { return ls.SaleDate.AddDays(WashWindowDays) }

// InWashWindow reports whether d falls within the window, inclusive both ends.
func (ls *LossSale) InWashWindow(d Date) bool {
	return !d.Before(ls.WindowStart()) && !d.After(ls.WindowEnd())
}

// SafeDate is the first date a repurchase no longer triggers the wash rule:
// the day after the window closes (SaleDate + 31 days).
func (ls *LossSale) SafeDate() Date { return ls.WindowEnd().AddDays(1) }

// Active reports whether the window is still open relative to asOf.
func (ls *LossSale) Active(asOf Date) bool { return ls.SafeDate().After(asOf) }

// DaysUntilSafe returns the number of days from asOf until SafeDate,
// or 0 if the window has already closed.
func (ls *LossSale) DaysUntilSafe(asOf Date) int {
	if !ls.Active(asOf) {
		return 0
	}
	return DaysBetween(asOf, ls.SafeDate())
}

func (ls *LossSale) String() string {
	return fmt.Sprintf("LossSale(%s, %s, loss=$%s)", ls.Ticker, ls.SaleDate, ls.LossAmount.StringFixed(2))
}

// =============================================================================
// VIOLATION - A buy correlated with a loss sale
// =============================================================================

// Violation records a buy inside the wash window of a loss sale. Many
// violations may reference one LossSale (one per correlated buy).
//
// DisallowedLoss is a per-pair proportional estimate:
//
//	min(buyQty, soldQty) / soldQty * lossAmount
//
// Estimates against the same LossSale are NOT netted against each other or
// capped by the total loss. This is a documented modeling simplification.
type Violation struct {
	Ticker         string
	LossSale       *LossSale // reference, owned by the Report
	BuyDate        Date
	BuyQuantity    decimal.Decimal
	DisallowedLoss decimal.Decimal
}

func (v *Violation) String() string {
	return fmt.Sprintf("WashSale: bought %s %s on %s within %d days of loss sale on %s (disallowed: $%s)",
		v.BuyQuantity, v.Ticker, v.BuyDate, WashWindowDays, v.LossSale.SaleDate, v.DisallowedLoss.StringFixed(2))
}

// disallowedLoss computes the proportional estimate for one (lossSale, buy)
// pair. QuantitySold is always positive here: loss sales are only created
// for matched quantity > 0.
func disallowedLoss(ls *LossSale, buyQuantity decimal.Decimal) decimal.Decimal {
	matched := decimal.Min(buyQuantity, ls.QuantitySold)
	return matched.Div(ls.QuantitySold).Mul(ls.LossAmount)
}

// =============================================================================
// TICKER STATUS - Result of a safe-to-buy check
// =============================================================================

// TickerStatus answers a single-ticker "is it safe to buy" query against a
// report and reference date.
type TickerStatus struct {
	Ticker        string
	CheckDate     Date
	Safe          bool
	ActiveWindows []*LossSale // empty when Safe
	SafeDate      Date        // zero when Safe
	DaysUntilSafe int         // 0 when Safe
	Message       string
}
