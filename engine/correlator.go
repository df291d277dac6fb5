/*
correlator.go - Bidirectional wash-window correlation

PURPOSE:
  A wash sale can be triggered by a buy on EITHER side of the loss sale:
  up to 30 days before or 30 days after. Two passes cover both directions
  inside the engine's single chronological traversal:

  1. FORWARD: every buy is compared against all previously recorded loss
     sales of its ticker. Catches "sell at a loss, then buy back".
  2. BACKWARD: every new loss sale scans all same-ticker buys already seen
     with an earlier date. Catches "buy, then sell older shares at a loss".

DEDUPLICATION:
  The backward pass can rediscover a pair the forward pass already emitted.
  A seen-set keyed by (ticker, saleDate, buyDate) guarantees each pair
  produces exactly one violation, regardless of which pass finds it first.
  The set lives for one engine run only.

SEE ALSO:
  - types.go: Violation and the disallowed-loss formula
  - engine.go: Calls observeBuy/recordLossSale during the single pass
*/
package engine

// violationKey identifies one (loss sale, buy) pair for deduplication.
type violationKey struct {
	ticker   string
	saleDate Date
	buyDate  Date
}

// correlator accumulates loss sales, prior buys, and violations across one
// engine run.
type correlator struct {
	lossSales  []*LossSale
	buys       []Transaction // every buy seen so far, in processing order
	seen       map[violationKey]bool
	violations []*Violation
}

func newCorrelator() *correlator {
	return &correlator{seen: make(map[violationKey]bool)}
}

// observeBuy runs the forward pass for one buy: it is checked against every
// loss sale recorded so far, then remembered for future backward passes.
func (c *correlator) observeBuy(tx Transaction) {
	for _, ls := range c.lossSales {
		if ls.Ticker == tx.Ticker && ls.InWashWindow(tx.Date) {
			c.emit(ls, tx)
		}
	}
	c.buys = append(c.buys, tx)
}

// recordLossSale registers a new loss sale and runs the backward pass:
// every same-ticker buy already processed with an earlier date is checked
// against the new window.
func (c *correlator) recordLossSale(ls *LossSale) {
	c.lossSales = append(c.lossSales, ls)

	for _, buy := range c.buys {
		if buy.Ticker == ls.Ticker && buy.Date.Before(ls.SaleDate) && ls.InWashWindow(buy.Date) {
			c.emit(ls, buy)
		}
	}
}

// emit records a violation for the pair unless an equivalent one exists.
func (c *correlator) emit(ls *LossSale, buy Transaction) {
	key := violationKey{ticker: ls.Ticker, saleDate: ls.SaleDate, buyDate: buy.Date}
	if c.seen[key] {
		return
	}
	c.seen[key] = true

	c.violations = append(c.violations, &Violation{
		Ticker:         ls.Ticker,
		LossSale:       ls,
		BuyDate:        buy.Date,
		BuyQuantity:    buy.Quantity,
		DisallowedLoss: disallowedLoss(ls, buy.Quantity),
	})
}
