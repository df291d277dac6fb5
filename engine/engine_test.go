package engine_test

import (
	"testing"
	"time"

	"github.com/lotwatch/washsale-engine/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ORDERING
// =============================================================================

func TestBuildReport_SameDayBuyProcessedBeforeSell(t *testing.T) {
	// GIVEN: a buy and a sell of the same ticker on the same date, with the
	//        sell listed FIRST in the input
	// WHEN: building the report
	// THEN: the buy is processed first, so the sell matches the same-day lot
	//       instead of warning about missing lots

	day := d(2025, time.March, 10)
	report := engine.BuildReport([]engine.Transaction{
		sellTx(day, "ABC", "10", "4"),
		buyTx(day, "ABC", "10", "5"),
	})

	assert.Empty(t, report.Warnings(), "same-day buy must satisfy the sell")
	require.Len(t, report.LossSales(), 1, "sold at 4 against basis of 5")
	assertDecEqual(t, "10", report.LossSales()[0].LossAmount)
	assert.Equal(t, 0, report.Summary().SkippedSells)
}

func TestBuildReport_ResortsUnorderedInput(t *testing.T) {
	// Input deliberately shuffled; defensive re-sort must restore chronology.
	report := engine.BuildReport([]engine.Transaction{
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
	})

	assert.Empty(t, report.Warnings())
	require.Len(t, report.LossSales(), 1)

	txs := report.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, engine.Buy, txs[0].Kind)
	assert.Equal(t, engine.Sell, txs[1].Kind)
}

// =============================================================================
// WINDOW BOUNDARIES
// =============================================================================

func TestBuildReport_WindowBoundary_Inclusive(t *testing.T) {
	// A loss sale on day D correlates with buys on D-30 and D+30, but not
	// D-31 or D+31.
	saleDay := d(2025, time.June, 30)

	cases := []struct {
		name      string
		buyOffset int
		violation bool
	}{
		{"buy 31 days before", -31, false},
		{"buy 30 days before", -30, true},
		{"buy 30 days after", 30, true},
		{"buy 31 days after", 31, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := engine.BuildReport([]engine.Transaction{
				buyTx(d(2024, time.December, 1), "XYZ", "100", "10"),
				sellTx(saleDay, "XYZ", "100", "6"),
				buyTx(saleDay.AddDays(tc.buyOffset), "XYZ", "50", "5"),
			})

			require.Len(t, report.LossSales(), 1)
			if tc.violation {
				assert.Len(t, report.Violations(), 1)
			} else {
				assert.Empty(t, report.Violations())
			}
		})
	}
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

func TestBuildReport_BuyBeforeLossSale_ExactlyOneViolation(t *testing.T) {
	// GIVEN: a buy 10 days before a loss sale and no buy after it
	// WHEN: both correlation passes run
	// THEN: exactly one violation for the pair, never two

	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2024, time.June, 1), "XYZ", "100", "10"),
		buyTx(d(2025, time.February, 19), "XYZ", "40", "7"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
	})

	require.Len(t, report.LossSales(), 1)
	violations := report.Violations()
	require.Len(t, violations, 1)
	assert.Equal(t, d(2025, time.February, 19), violations[0].BuyDate)
	assertDecEqual(t, "40", violations[0].BuyQuantity)
}

func TestBuildReport_BuysBothSides_OneViolationEach(t *testing.T) {
	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2024, time.June, 1), "XYZ", "100", "10"),
		buyTx(d(2025, time.February, 19), "XYZ", "40", "7"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
		buyTx(d(2025, time.March, 20), "XYZ", "50", "5"),
	})

	violations := report.Violations()
	require.Len(t, violations, 2)
	assert.Equal(t, d(2025, time.February, 19), violations[0].BuyDate)
	assert.Equal(t, d(2025, time.March, 20), violations[1].BuyDate)
}

// =============================================================================
// LOSS DETECTION
// =============================================================================

func TestBuildReport_GainProducesNoLossSale(t *testing.T) {
	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "12"),
		buyTx(d(2025, time.March, 10), "XYZ", "50", "11"),
	})

	assert.Empty(t, report.LossSales())
	assert.Empty(t, report.Violations(), "no loss sale means no violations")
}

func TestBuildReport_BreakEvenProducesNoLossSale(t *testing.T) {
	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "10"),
	})

	assert.Empty(t, report.LossSales())
}

func TestBuildReport_SellNeverBought_SkippedEntirely(t *testing.T) {
	// GIVEN: a sell for a ticker with no recorded acquisition
	// THEN: zero loss sales and violations for it, exactly one warning
	//       naming the ticker and date, and the skip is counted

	report := engine.BuildReport([]engine.Transaction{
		sellTx(d(2025, time.March, 5), "GHOST", "10", "4"),
	})

	assert.Empty(t, report.LossSales())
	assert.Empty(t, report.Violations())
	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "GHOST")
	assert.Contains(t, warnings[0], "2025-03-05")
	assert.Equal(t, 1, report.Summary().SkippedSells)
}

func TestBuildReport_DifferentTicker_NoCorrelation(t *testing.T) {
	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
		buyTx(d(2025, time.March, 10), "ABC", "50", "5"),
	})

	require.Len(t, report.LossSales(), 1)
	assert.Empty(t, report.Violations(), "ABC buy must not correlate with XYZ loss")
}

// =============================================================================
// END TO END
// =============================================================================

func TestBuildReport_EndToEndExample(t *testing.T) {
	// Buy 100 XYZ @ $10 on 2025-01-01, sell 100 @ $6 on 2025-03-01,
	// buy 50 @ $5 on 2025-03-20.

	report := engine.BuildReport([]engine.Transaction{
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
		buyTx(d(2025, time.March, 20), "XYZ", "50", "5"),
	})

	// One loss sale: proceeds 600 against basis 1000.
	lossSales := report.LossSales()
	require.Len(t, lossSales, 1)
	ls := lossSales[0]
	assertDecEqual(t, "100", ls.QuantitySold)
	assertDecEqual(t, "1000", ls.CostBasis)
	assertDecEqual(t, "600", ls.Proceeds)
	assertDecEqual(t, "400", ls.LossAmount)

	// One violation: 50/100 * 400 = 200 disallowed.
	violations := report.Violations()
	require.Len(t, violations, 1)
	v := violations[0]
	assertDecEqual(t, "50", v.BuyQuantity)
	assertDecEqual(t, "200", v.DisallowedLoss)
	assert.Same(t, ls, v.LossSale)

	// Check on 2025-03-25: unsafe until 2025-04-01.
	status := report.CheckTicker(d(2025, time.March, 25), "XYZ")
	assert.False(t, status.Safe)
	assert.Equal(t, d(2025, time.April, 1), status.SafeDate)
	assert.Equal(t, 7, status.DaysUntilSafe)

	// Summary counts.
	s := report.Summary()
	assert.Equal(t, 3, s.TotalTransactions)
	assert.Equal(t, 2, s.Buys)
	assert.Equal(t, 1, s.Sells)
	assert.Equal(t, 1, s.TickerCount)
	assert.Equal(t, d(2025, time.January, 1), s.FirstDate)
	assert.Equal(t, d(2025, time.March, 20), s.LastDate)
	assertDecEqual(t, "400", s.TotalLoss)
	assertDecEqual(t, "200", s.TotalDisallowed)
}

func TestBuildReport_FreshStatePerInvocation(t *testing.T) {
	txs := []engine.Transaction{
		buyTx(d(2025, time.January, 1), "XYZ", "100", "10"),
		sellTx(d(2025, time.March, 1), "XYZ", "100", "6"),
	}

	first := engine.BuildReport(txs)
	second := engine.BuildReport(txs)

	assert.Len(t, first.LossSales(), 1)
	assert.Len(t, second.LossSales(), 1, "runs must not share lot or dedup state")
}
