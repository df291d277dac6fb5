/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

MONEY AND QUANTITIES:
  Rendered as decimal strings ("400", "12.345"), never JSON numbers.
  A JSON number is a float on the wire and would round exactly the values
  the engine keeps exact.

DATES:
  Always YYYY-MM-DD strings.

SEE ALSO:
  - handlers.go: Builds these from engine/store types
*/
package api

import (
	"github.com/lotwatch/washsale-engine/engine"
	"github.com/lotwatch/washsale-engine/store"
)

// =============================================================================
// PORTFOLIO
// =============================================================================

type PortfolioDTO struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Source           string `json:"source"`
	TransactionCount int    `json:"transaction_count"`
	WarningCount     int    `json:"warning_count"`
	CreatedAt        string `json:"created_at"`
}

func portfolioDTO(p store.Portfolio) PortfolioDTO {
	return PortfolioDTO{
		ID:               p.ID,
		Name:             p.Name,
		Source:           p.Source,
		TransactionCount: p.TransactionCount,
		WarningCount:     p.WarningCount,
		CreatedAt:        p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// UploadResponse is returned after a successful CSV import.
type UploadResponse struct {
	Portfolio      PortfolioDTO `json:"portfolio"`
	ImportWarnings []string     `json:"import_warnings,omitempty"`
}

// =============================================================================
// REPORT
// =============================================================================

type SummaryDTO struct {
	TotalTransactions int    `json:"total_transactions"`
	Buys              int    `json:"buys"`
	Sells             int    `json:"sells"`
	TickerCount       int    `json:"ticker_count"`
	FirstDate         string `json:"first_date,omitempty"`
	LastDate          string `json:"last_date,omitempty"`
	LossSaleCount     int    `json:"loss_sale_count"`
	ViolationCount    int    `json:"violation_count"`
	SkippedSells      int    `json:"skipped_sells"`
	TotalLoss         string `json:"total_loss"`
	TotalDisallowed   string `json:"total_disallowed"`
}

type LossSaleDTO struct {
	Ticker       string `json:"ticker"`
	SaleDate     string `json:"sale_date"`
	QuantitySold string `json:"quantity_sold"`
	Proceeds     string `json:"proceeds"`
	CostBasis    string `json:"cost_basis"`
	LossAmount   string `json:"loss_amount"`
	SafeDate     string `json:"safe_date"`
}

type ViolationDTO struct {
	Ticker         string `json:"ticker"`
	SaleDate       string `json:"sale_date"`
	BuyDate        string `json:"buy_date"`
	BuyQuantity    string `json:"buy_quantity"`
	DisallowedLoss string `json:"disallowed_loss"`
}

type ReportResponse struct {
	PortfolioID int64          `json:"portfolio_id"`
	AsOf        string         `json:"as_of"`
	Summary     SummaryDTO     `json:"summary"`
	LossSales   []LossSaleDTO  `json:"loss_sales"`
	Violations  []ViolationDTO `json:"violations"`
	Warnings    []string       `json:"warnings,omitempty"`
}

func summaryDTO(s engine.Summary) SummaryDTO {
	dto := SummaryDTO{
		TotalTransactions: s.TotalTransactions,
		Buys:              s.Buys,
		Sells:             s.Sells,
		TickerCount:       s.TickerCount,
		LossSaleCount:     s.LossSaleCount,
		ViolationCount:    s.ViolationCount,
		SkippedSells:      s.SkippedSells,
		TotalLoss:         s.TotalLoss.String(),
		TotalDisallowed:   s.TotalDisallowed.String(),
	}
	if !s.FirstDate.IsZero() {
		dto.FirstDate = s.FirstDate.String()
		dto.LastDate = s.LastDate.String()
	}
	return dto
}

func lossSaleDTO(ls *engine.LossSale) LossSaleDTO {
	return LossSaleDTO{
		Ticker:       ls.Ticker,
		SaleDate:     ls.SaleDate.String(),
		QuantitySold: ls.QuantitySold.String(),
		Proceeds:     ls.Proceeds.String(),
		CostBasis:    ls.CostBasis.String(),
		LossAmount:   ls.LossAmount.String(),
		SafeDate:     ls.SafeDate().String(),
	}
}

func violationDTO(v *engine.Violation) ViolationDTO {
	return ViolationDTO{
		Ticker:         v.Ticker,
		SaleDate:       v.LossSale.SaleDate.String(),
		BuyDate:        v.BuyDate.String(),
		BuyQuantity:    v.BuyQuantity.String(),
		DisallowedLoss: v.DisallowedLoss.String(),
	}
}

// =============================================================================
// ACTIVE WINDOWS / TICKER CHECK
// =============================================================================

type TickerWindowsDTO struct {
	Ticker    string        `json:"ticker"`
	TotalLoss string        `json:"total_loss"`
	Windows   []LossSaleDTO `json:"windows"`
}

type ActiveWindowsResponse struct {
	PortfolioID int64              `json:"portfolio_id"`
	AsOf        string             `json:"as_of"`
	Tickers     []TickerWindowsDTO `json:"tickers"`
}

type CheckResponse struct {
	Ticker        string        `json:"ticker"`
	AsOf          string        `json:"as_of"`
	Safe          bool          `json:"safe"`
	SafeDate      string        `json:"safe_date,omitempty"`
	DaysUntilSafe int           `json:"days_until_safe"`
	Message       string        `json:"message"`
	ActiveWindows []LossSaleDTO `json:"active_windows,omitempty"`
}

// =============================================================================
// ANALYSIS HISTORY
// =============================================================================

type AnalysisRunDTO struct {
	ID          int64  `json:"id"`
	PortfolioID int64  `json:"portfolio_id"`
	AsOf        string `json:"as_of"`
	LossSales   int    `json:"loss_sales"`
	Violations  int    `json:"violations"`
	Warnings    int    `json:"warnings"`
	CreatedAt   string `json:"created_at"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
