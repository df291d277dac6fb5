/*
main.go - Command-line wash sale analyzer

PURPOSE:
  One-shot analysis of a Robinhood activity CSV: parse, run the engine,
  print loss sales, violations, and active wash windows to stdout.

USAGE:
  washtrack [flags] <transactions.csv>

COMMAND-LINE FLAGS:
  -date    Override the reference date (YYYY-MM-DD). Default: today.
  -check   Also run a safe-to-buy check for the given ticker.

EXAMPLES:
  washtrack transactions.csv
  washtrack -date=2025-12-23 transactions.csv
  washtrack -check=XYZ transactions.csv

SEE ALSO:
  - ingest/robinhood.go: CSV parsing
  - engine/report.go: The report being rendered
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lotwatch/washsale-engine/engine"
	"github.com/lotwatch/washsale-engine/ingest"
)

func main() {
	dateFlag := flag.String("date", "", "Override today's date (YYYY-MM-DD)")
	checkFlag := flag.String("check", "", "Ticker to run a safe-to-buy check for")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: washtrack [flags] <transactions.csv>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	asOf := engine.Today()
	if *dateFlag != "" {
		parsed, err := engine.ParseDate(*dateFlag)
		if err != nil {
			log.Fatalf("Invalid -date: %v", err)
		}
		asOf = parsed
	}

	result, err := ingest.ParseRobinhoodFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", flag.Arg(0), err)
	}

	report := engine.BuildReport(result.Transactions)
	printSummary(report, asOf)

	if len(result.Warnings) > 0 || len(report.Warnings()) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range result.Warnings {
			fmt.Printf("  import: %s\n", w)
		}
		for _, w := range report.Warnings() {
			fmt.Printf("  %s\n", w)
		}
	}

	if *checkFlag != "" {
		status := report.CheckTicker(asOf, *checkFlag)
		fmt.Printf("\n%s\n", status.Message)
	}
}

func printSummary(report *engine.Report, asOf engine.Date) {
	s := report.Summary()

	fmt.Printf("Analyzed %d transactions (%d buys, %d sells, %d tickers)",
		s.TotalTransactions, s.Buys, s.Sells, s.TickerCount)
	if !s.FirstDate.IsZero() {
		fmt.Printf(" from %s to %s", s.FirstDate, s.LastDate)
	}
	fmt.Println()
	if s.SkippedSells > 0 {
		fmt.Printf("Skipped %d sells with no recorded buy lots\n", s.SkippedSells)
	}

	fmt.Printf("\nLoss sales: %d (total loss $%s)\n", s.LossSaleCount, s.TotalLoss.StringFixed(2))
	for _, ls := range report.LossSales() {
		fmt.Printf("  %s  sold %s %s  proceeds $%s  basis $%s  loss $%s\n",
			ls.SaleDate, ls.QuantitySold, ls.Ticker,
			ls.Proceeds.StringFixed(2), ls.CostBasis.StringFixed(2), ls.LossAmount.StringFixed(2))
	}

	fmt.Printf("\nWash sale violations: %d (total disallowed $%s)\n",
		s.ViolationCount, s.TotalDisallowed.StringFixed(2))
	for _, v := range report.Violations() {
		fmt.Printf("  %s\n", v)
	}

	windows := report.ActiveWindowsByTicker(asOf)
	fmt.Printf("\nActive wash windows as of %s:\n", asOf)
	if len(windows) == 0 {
		fmt.Println("  none - all clear")
		return
	}
	for _, group := range windows {
		fmt.Printf("  %s (loss $%s at risk):\n", group.Ticker, group.TotalLoss.StringFixed(2))
		for _, ls := range group.Windows {
			fmt.Printf("    sold %s, safe to buy %s (%d days)\n",
				ls.SaleDate, ls.SafeDate(), ls.DaysUntilSafe(asOf))
		}
	}
}
