/*
Package store defines the persistence interface for imported transaction
histories and recorded analysis runs.

PURPOSE:
  The engine itself is pure and stateless; persistence exists so users can
  upload a brokerage export once and re-query it against different
  reference dates. The Store keeps:
  - Portfolios: named, immutable sets of imported transactions
  - Analysis runs: a history of when analyses happened and what they found

IMMUTABILITY CONTRACT:
  A portfolio's transactions are written once at import and never updated.
  Re-importing a corrected export creates a NEW portfolio. Analysis runs
  are append-only.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for testing

SEE ALSO:
  - store/sqlite/sqlite.go: Concrete implementation
  - api/handlers.go: Primary consumer
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lotwatch/washsale-engine/engine"
)

// ErrPortfolioNotFound is returned when a referenced portfolio doesn't exist.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// Portfolio is one imported transaction history.
type Portfolio struct {
	ID               int64
	Name             string
	Source           string // e.g. "robinhood-csv"
	TransactionCount int
	WarningCount     int
	CreatedAt        time.Time
}

// AnalysisRun records one wash sale analysis of a portfolio.
type AnalysisRun struct {
	ID          int64
	PortfolioID int64
	AsOf        engine.Date
	LossSales   int
	Violations  int
	Warnings    int
	CreatedAt   time.Time
}

// Store persists portfolios and their analysis history.
type Store interface {
	// CreatePortfolio saves a new portfolio with its transactions and
	// import warnings, atomically. Returns the new portfolio ID.
	CreatePortfolio(ctx context.Context, name, source string, txs []engine.Transaction, warnings []string) (int64, error)

	// ListPortfolios returns all portfolios, newest first.
	ListPortfolios(ctx context.Context) ([]Portfolio, error)

	// GetPortfolio returns one portfolio. ErrPortfolioNotFound if missing.
	GetPortfolio(ctx context.Context, id int64) (Portfolio, error)

	// Transactions returns a portfolio's transactions in import order.
	// ErrPortfolioNotFound if the portfolio doesn't exist.
	Transactions(ctx context.Context, portfolioID int64) ([]engine.Transaction, error)

	// ImportWarnings returns the warnings recorded at import time.
	ImportWarnings(ctx context.Context, portfolioID int64) ([]string, error)

	// RecordAnalysis appends one analysis run. Returns the run ID.
	RecordAnalysis(ctx context.Context, run AnalysisRun) (int64, error)

	// ListAnalyses returns a portfolio's analysis runs, newest first.
	ListAnalyses(ctx context.Context, portfolioID int64) ([]AnalysisRun, error)

	Close() error
}
