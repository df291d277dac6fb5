/*
Package ingest parses raw brokerage activity exports into validated engine
transactions.

PURPOSE:
  The engine consumes already-validated Transaction records; this package is
  the boundary where messy tabular text becomes those records. Currently one
  format is supported: the Robinhood activity-history CSV.

FORMAT (Robinhood activity CSV):
  Columns: Activity Date, Instrument, Description, Trans Code, Quantity,
  Price, Amount.
  - Dates are MM/DD/YYYY
  - Amounts look like "$10,193.66" or "($9,994.21)" (parentheses = negative)
  - Trans Code carries many values (CDIV, ACH, GOLD, ...); only Buy and
    Sell rows are trades

VALIDATION POLICY:
  Non-trade rows are filtered silently - they are expected. Malformed TRADE
  rows (bad date, unparseable quantity/price/amount, zero quantity) are
  skipped with a row-numbered warning rather than coerced to zero: a zeroed
  field would silently corrupt cost basis downstream.

OUTPUT:
  Validated transactions plus parse warnings. Tickers are upper-cased so
  the engine's per-ticker state never splits on case.

SEE ALSO:
  - engine/types.go: The Transaction record this package produces
*/
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lotwatch/washsale-engine/engine"
	"github.com/shopspring/decimal"
)

// Column headers required in a Robinhood activity CSV.
var requiredColumns = []string{
	"Activity Date", "Instrument", "Trans Code", "Quantity", "Price", "Amount",
}

// Result carries the parsed transactions and any row-level warnings.
type Result struct {
	Transactions []engine.Transaction
	Warnings     []string
}

// ParseRobinhoodFile parses a Robinhood activity CSV from disk.
func ParseRobinhoodFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ParseRobinhood(f)
}

// ParseRobinhood parses a Robinhood activity CSV from a reader.
//
// Returns an error only for structural problems (empty file, missing
// columns, unreadable CSV). Bad rows become warnings in the Result.
func ParseRobinhood(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Robinhood pads some rows unevenly

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("CSV missing required column %q", name)
		}
	}

	result := &Result{}
	rowNum := 1 // header was row 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.warn(rowNum, "unreadable row: %v", err)
			continue
		}

		field := func(name string) string {
			i := col[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		code := field("Trans Code")
		if code != "Buy" && code != "Sell" {
			continue // dividends, transfers, interest, fees
		}

		ticker := strings.ToUpper(field("Instrument"))
		if ticker == "" {
			result.warn(rowNum, "missing instrument")
			continue
		}

		date, err := parseActivityDate(field("Activity Date"))
		if err != nil {
			result.warn(rowNum, "%v", err)
			continue
		}
		quantity, err := parseQuantity(field("Quantity"))
		if err != nil {
			result.warn(rowNum, "bad quantity: %v", err)
			continue
		}
		if !quantity.IsPositive() {
			result.warn(rowNum, "non-positive quantity %s", quantity)
			continue
		}
		price, err := parseDollars(field("Price"))
		if err != nil {
			result.warn(rowNum, "bad price: %v", err)
			continue
		}
		amount, err := parseDollars(field("Amount"))
		if err != nil {
			result.warn(rowNum, "bad amount: %v", err)
			continue
		}

		kind := engine.Buy
		if code == "Sell" {
			kind = engine.Sell
		}

		result.Transactions = append(result.Transactions, engine.Transaction{
			Date:     date,
			Ticker:   ticker,
			Kind:     kind,
			Quantity: quantity,
			Price:    price,
			Amount:   amount,
		})
	}

	return result, nil
}

func (r *Result) warn(row int, format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("row %d skipped: %s", row, fmt.Sprintf(format, args...)))
}

// parseActivityDate parses the MM/DD/YYYY format Robinhood uses.
func parseActivityDate(s string) (engine.Date, error) {
	t, err := time.Parse("01/02/2006", s)
	if err != nil {
		return engine.Date{}, fmt.Errorf("invalid date %q", s)
	}
	return engine.DateOf(t), nil
}

// parseDollars parses "$10,193.66" or "($9,994.21)" (parentheses = negative).
// An empty field parses as zero: Robinhood leaves Amount blank on some rows.
func parseDollars(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	negative := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	cleaned := strings.NewReplacer("(", "", ")", "", "$", "", ",", "").Replace(s)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid dollar amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func parseQuantity(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", s)
	}
	return d, nil
}
