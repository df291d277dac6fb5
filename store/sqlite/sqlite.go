/*
Package sqlite provides a SQLite-backed implementation of store.Store.

PURPOSE:
  Persists imported portfolios, their transactions, import warnings, and
  the append-only analysis-run history. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  portfolios:       One row per imported transaction history
  transactions:     Immutable trade rows belonging to a portfolio
  import_warnings:  Row-level parse warnings captured at import
  analysis_runs:    Append-only record of analyses performed

DECIMAL STORAGE:
  Quantities, prices, and amounts are stored as TEXT in decimal string
  form, never as REAL. SQLite REAL is IEEE float and would reintroduce
  exactly the rounding drift the engine's decimal arithmetic avoids.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within one process.

USAGE:
  st, err := sqlite.New("./data/washtrack.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - store/store.go: Interface definition
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/lotwatch/washsale-engine/engine"
	"github.com/lotwatch/washsale-engine/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS portfolios (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		source TEXT NOT NULL,
		transaction_count INTEGER NOT NULL,
		warning_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Immutable once written: no UPDATE path exists in this package.
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
		trade_date TEXT NOT NULL,
		ticker TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('Buy', 'Sell')),
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio
		ON transactions(portfolio_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_portfolio_date
		ON transactions(portfolio_id, trade_date);

	CREATE TABLE IF NOT EXISTS import_warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
		message TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_import_warnings_portfolio
		ON import_warnings(portfolio_id);

	-- Append-only analysis history
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		portfolio_id INTEGER NOT NULL REFERENCES portfolios(id),
		as_of TEXT NOT NULL,
		loss_sales INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analysis_runs_portfolio
		ON analysis_runs(portfolio_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PORTFOLIOS
// =============================================================================

func (s *Store) CreatePortfolio(ctx context.Context, name, source string, txs []engine.Transaction, warnings []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO portfolios (name, source, transaction_count, warning_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		name, source, len(txs), len(warnings), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to insert portfolio: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT INTO transactions (portfolio_id, trade_date, ticker, kind, quantity, price, amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, tx := range txs {
		_, err := stmt.ExecContext(ctx, id, tx.Date.String(), tx.Ticker, string(tx.Kind),
			tx.Quantity.String(), tx.Price.String(), tx.Amount.String())
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	for _, w := range warnings {
		_, err := dbTx.ExecContext(ctx,
			`INSERT INTO import_warnings (portfolio_id, message) VALUES (?, ?)`, id, w)
		if err != nil {
			return 0, fmt.Errorf("failed to insert warning: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) ListPortfolios(ctx context.Context) ([]store.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, transaction_count, warning_count, created_at
		 FROM portfolios ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPortfolio(ctx context.Context, id int64) (store.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, transaction_count, warning_count, created_at
		 FROM portfolios WHERE id = ?`, id)

	p, err := scanPortfolio(row)
	if err == sql.ErrNoRows {
		return store.Portfolio{}, store.ErrPortfolioNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (store.Portfolio, error) {
	var p store.Portfolio
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &p.Source, &p.TransactionCount, &p.WarningCount, &createdAt); err != nil {
		return store.Portfolio{}, err
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return store.Portfolio{}, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	p.CreatedAt = t
	return p, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) Transactions(ctx context.Context, portfolioID int64) ([]engine.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.portfolioExists(ctx, portfolioID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trade_date, ticker, kind, quantity, price, amount
		 FROM transactions WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Transaction
	for rows.Next() {
		var dateStr, ticker, kind, quantity, price, amount string
		if err := rows.Scan(&dateStr, &ticker, &kind, &quantity, &price, &amount); err != nil {
			return nil, err
		}

		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt trade_date: %w", err)
		}
		tx := engine.Transaction{Date: date, Ticker: ticker, Kind: engine.TransactionKind(kind)}
		if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("corrupt quantity %q: %w", quantity, err)
		}
		if tx.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("corrupt price %q: %w", price, err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) ImportWarnings(ctx context.Context, portfolioID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT message FROM import_warnings WHERE portfolio_id = ? ORDER BY id`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// portfolioExists distinguishes "no transactions" from "no portfolio".
// Callers hold s.mu.
func (s *Store) portfolioExists(ctx context.Context, id int64) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM portfolios WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrPortfolioNotFound
	}
	return err
}

// =============================================================================
// ANALYSIS RUNS
// =============================================================================

func (s *Store) RecordAnalysis(ctx context.Context, run store.AnalysisRun) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analysis_runs (portfolio_id, as_of, loss_sales, violations, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.PortfolioID, run.AsOf.String(), run.LossSales, run.Violations, run.Warnings,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to record analysis: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) ListAnalyses(ctx context.Context, portfolioID int64) ([]store.AnalysisRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, portfolio_id, as_of, loss_sales, violations, warnings, created_at
		 FROM analysis_runs WHERE portfolio_id = ? ORDER BY created_at DESC, id DESC`, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.AnalysisRun
	for rows.Next() {
		var run store.AnalysisRun
		var asOf, createdAt string
		if err := rows.Scan(&run.ID, &run.PortfolioID, &asOf, &run.LossSales, &run.Violations, &run.Warnings, &createdAt); err != nil {
			return nil, err
		}
		if run.AsOf, err = engine.ParseDate(asOf); err != nil {
			return nil, fmt.Errorf("corrupt as_of %q: %w", asOf, err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
