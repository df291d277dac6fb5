/*
ledger.go - FIFO lot ledger for cost basis matching

PURPOSE:
  Tracks open buy lots per ticker and matches sells against them, oldest
  lot first. The matched cost basis is what turns a sell's proceeds into a
  realized gain or loss.

CRITICAL INVARIANTS:
  1. FIFO: Lots are consumed strictly in acquisition order
  2. Queue order = acquisition order: buys append at the tail
  3. Lot.Remaining only decreases; depleted lots leave the queue
  4. A sell with no open lots is SKIPPED with a warning, never an error

PARTIAL FILLS:
  When open lots cannot cover a sell's full quantity, the sell's proceeds
  are pro-rated to the matched portion and the shortfall is reported as a
  warning. This models shares transferred in with no recorded acquisition.

OWNERSHIP:
  The LotLedger exclusively owns all lots for the duration of one engine
  run. Fresh state per run - nothing is shared across invocations.

SEE ALSO:
  - engine.go: Drives the ledger through one chronological pass
  - correlator.go: Consumes the loss sales derived from sell results
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SELL RESULT - Outcome of matching one sell against open lots
// =============================================================================

// SellResult reports how a sell transaction was matched. Proceeds is already
// pro-rated when the match was partial.
type SellResult struct {
	Ticker       string
	QuantitySold decimal.Decimal
	Proceeds     decimal.Decimal
	CostBasis    decimal.Decimal
	GainLoss     decimal.Decimal // positive = gain, negative = loss
}

func (r SellResult) IsLoss() bool { return r.GainLoss.IsNegative() }

// LossAmount returns the loss as a positive number, or zero for a gain.
func (r SellResult) LossAmount() decimal.Decimal {
	if r.IsLoss() {
		return r.GainLoss.Neg()
	}
	return decimal.Zero
}

// =============================================================================
// LOT LEDGER - Per-ticker FIFO queues of open lots
// =============================================================================

// LotLedger owns the open acquisition lots for one engine run.
type LotLedger struct {
	lots     map[string][]*Lot
	warnings []string
}

func NewLotLedger() *LotLedger {
	return &LotLedger{lots: make(map[string][]*Lot)}
}

// Warnings returns the non-fatal warnings accumulated so far.
func (l *LotLedger) Warnings() []string {
	out := make([]string, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// AddLot appends a buy transaction as a new lot at the tail of its ticker's
// queue. Callers feed transactions in chronological order, so tail-append
// keeps the queue in acquisition order.
func (l *LotLedger) AddLot(tx Transaction) {
	l.lots[tx.Ticker] = append(l.lots[tx.Ticker], lotFromBuy(tx))
}

// SellShares matches a sell against the ticker's open lots, oldest first.
//
// Returns ok=false when the ticker has no open lots at all: the sell is
// skipped entirely for cost-basis purposes and a warning is recorded.
func (l *LotLedger) SellShares(tx Transaction) (SellResult, bool) {
	queue := l.lots[tx.Ticker]
	if len(queue) == 0 {
		l.warn("no buy lots found for %s - skipping sell on %s", tx.Ticker, tx.Date)
		return SellResult{}, false
	}

	stillNeeded := tx.Quantity
	quantitySold := decimal.Zero
	costBasis := decimal.Zero

	for _, lot := range queue {
		if !stillNeeded.IsPositive() {
			break
		}
		take := decimal.Min(lot.Remaining, stillNeeded)
		lot.Remaining = lot.Remaining.Sub(take)
		quantitySold = quantitySold.Add(take)
		costBasis = costBasis.Add(take.Mul(lot.Price))
		stillNeeded = stillNeeded.Sub(take)
	}

	// Drop depleted lots from the head of the queue.
	open := queue[:0]
	for _, lot := range queue {
		if !lot.depleted() {
			open = append(open, lot)
		}
	}
	l.lots[tx.Ticker] = open

	// Pro-rate proceeds when lots could not cover the full order.
	proceeds := tx.Amount
	if quantitySold.LessThan(tx.Quantity) {
		l.warn("could only match %s of %s shares for %s sell on %s - missing %s shares",
			quantitySold, tx.Quantity, tx.Ticker, tx.Date, stillNeeded)
		proceeds = tx.Amount.Mul(quantitySold.Div(tx.Quantity))
	}

	return SellResult{
		Ticker:       tx.Ticker,
		QuantitySold: quantitySold,
		Proceeds:     proceeds,
		CostBasis:    costBasis,
		GainLoss:     proceeds.Sub(costBasis),
	}, true
}

// =============================================================================
// POSITION QUERIES
// =============================================================================

// OpenLots returns copies of the remaining lots for a ticker, oldest first.
func (l *LotLedger) OpenLots(ticker string) []Lot {
	var out []Lot
	for _, lot := range l.lots[ticker] {
		out = append(out, *lot)
	}
	return out
}

// Position returns the total remaining shares for a ticker.
func (l *LotLedger) Position(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[ticker] {
		total = total.Add(lot.Remaining)
	}
	return total
}

// CostBasis returns the total cost basis of the remaining shares for a ticker.
func (l *LotLedger) CostBasis(ticker string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[ticker] {
		total = total.Add(lot.Remaining.Mul(lot.Price))
	}
	return total
}

// Tickers returns every ticker that still has open lots.
func (l *LotLedger) Tickers() []string {
	var out []string
	for ticker, lots := range l.lots {
		if len(lots) > 0 {
			out = append(out, ticker)
		}
	}
	return out
}

func (l *LotLedger) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
