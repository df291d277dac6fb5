// Package memory provides an in-memory store.Store (for testing/dev).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lotwatch/washsale-engine/engine"
	"github.com/lotwatch/washsale-engine/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	portfolios map[int64]store.Portfolio
	txs        map[int64][]engine.Transaction
	warnings   map[int64][]string
	runs       map[int64][]store.AnalysisRun
	nextID     int64
	nextRunID  int64
}

func New() *Memory {
	return &Memory{
		portfolios: make(map[int64]store.Portfolio),
		txs:        make(map[int64][]engine.Transaction),
		warnings:   make(map[int64][]string),
		runs:       make(map[int64][]store.AnalysisRun),
		nextID:     1,
		nextRunID:  1,
	}
}

func (m *Memory) CreatePortfolio(_ context.Context, name, source string, txs []engine.Transaction, warnings []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++

	m.portfolios[id] = store.Portfolio{
		ID:               id,
		Name:             name,
		Source:           source,
		TransactionCount: len(txs),
		WarningCount:     len(warnings),
		CreatedAt:        time.Now().UTC(),
	}
	m.txs[id] = append([]engine.Transaction(nil), txs...)
	m.warnings[id] = append([]string(nil), warnings...)
	return id, nil
}

func (m *Memory) ListPortfolios(_ context.Context) ([]store.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.Portfolio
	// newest first: IDs are monotonic
	for id := m.nextID - 1; id >= 1; id-- {
		if p, ok := m.portfolios[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) GetPortfolio(_ context.Context, id int64) (store.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.portfolios[id]
	if !ok {
		return store.Portfolio{}, store.ErrPortfolioNotFound
	}
	return p, nil
}

func (m *Memory) Transactions(_ context.Context, portfolioID int64) ([]engine.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.portfolios[portfolioID]; !ok {
		return nil, store.ErrPortfolioNotFound
	}
	return append([]engine.Transaction(nil), m.txs[portfolioID]...), nil
}

func (m *Memory) ImportWarnings(_ context.Context, portfolioID int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.warnings[portfolioID]...), nil
}

func (m *Memory) RecordAnalysis(_ context.Context, run store.AnalysisRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.ID = m.nextRunID
	m.nextRunID++
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	// prepend: newest first
	m.runs[run.PortfolioID] = append([]store.AnalysisRun{run}, m.runs[run.PortfolioID]...)
	return run.ID, nil
}

func (m *Memory) ListAnalyses(_ context.Context, portfolioID int64) ([]store.AnalysisRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]store.AnalysisRun(nil), m.runs[portfolioID]...), nil
}

func (m *Memory) Close() error { return nil }
