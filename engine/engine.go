/*
engine.go - Single-pass report construction

PURPOSE:
  Drives one chronological pass over a transaction history, feeding the
  FIFO lot ledger and the wash-window correlator, and assembles the
  resulting immutable Report.

ORDERING RULE (critical correctness invariant):
  Transactions are processed in non-decreasing date order. When dates tie,
  every Buy on that date processes before every Sell on that date. This
  determines which lots exist to satisfy a same-day sell. The engine
  re-sorts defensively rather than trusting input order.

STATE:
  All mutable state (lot queues, seen-violation set) is local to one
  BuildReport call and discarded afterward. Concurrent calls on independent
  inputs are safe without locking.

ERROR POLICY:
  BuildReport never fails on well-formed input. Sells with no open lots are
  skipped with a warning; partially matched sells are pro-rated with a
  warning. Warnings surface on the Report, processing always continues.

SEE ALSO:
  - ledger.go: FIFO matching
  - correlator.go: Violation detection
  - report.go: The result type and its derived queries
*/
package engine

import "sort"

// BuildReport runs the wash sale analysis over a transaction history and
// returns the immutable result. The input slice is not modified.
func BuildReport(transactions []Transaction) *Report {
	sorted := sortChronological(transactions)

	ledger := NewLotLedger()
	corr := newCorrelator()
	skippedSells := 0

	for _, tx := range sorted {
		switch tx.Kind {
		case Buy:
			corr.observeBuy(tx)
			ledger.AddLot(tx)

		case Sell:
			result, ok := ledger.SellShares(tx)
			if !ok {
				skippedSells++
				continue
			}
			if result.IsLoss() {
				corr.recordLossSale(&LossSale{
					Ticker:       tx.Ticker,
					SaleDate:     tx.Date,
					QuantitySold: result.QuantitySold,
					Proceeds:     result.Proceeds,
					CostBasis:    result.CostBasis,
					LossAmount:   result.LossAmount(),
				})
			}
		}
	}

	return newReport(sorted, corr.lossSales, corr.violations, ledger.Warnings(), skippedSells)
}

// sortChronological returns a copy sorted by (date, Buy-before-Sell).
// The sort is stable so same-day buys (and same-day sells) keep their
// input order relative to each other.
func sortChronological(transactions []Transaction) []Transaction {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Kind == Buy && sorted[j].Kind == Sell
	})
	return sorted
}
