/*
handlers.go - HTTP API handlers for the wash sale tracker

PURPOSE:
  Exposes the wash sale engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and store.

ENDPOINTS:
  Portfolios:
    POST   /api/portfolios                 Upload a Robinhood activity CSV
    GET    /api/portfolios                 List imported portfolios
    GET    /api/portfolios/{id}            Portfolio details
    GET    /api/portfolios/{id}/warnings   Import warnings

  Analysis:
    GET    /api/portfolios/{id}/report         Full wash sale report
    GET    /api/portfolios/{id}/windows        Active windows grouped by ticker
    GET    /api/portfolios/{id}/check/{ticker} Safe-to-buy check
    GET    /api/portfolios/{id}/analyses       Analysis run history

REFERENCE DATE:
  Report, windows, and check accept ?as_of=YYYY-MM-DD. Missing means
  "today". The reference date is always explicit past this boundary -
  the engine never reads the clock.

REQUEST FLOW:
  1. Parse HTTP request
  2. Load transactions from the store
  3. Run the engine (reports are rebuilt per request - the engine is a
     cheap single pass, and caching across as_of values is exactly the
     staleness bug the design forbids)
  4. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Bad upload, invalid as_of date
  - 404: Unknown portfolio
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lotwatch/washsale-engine/engine"
	"github.com/lotwatch/washsale-engine/ingest"
	"github.com/lotwatch/washsale-engine/store"
)

// maxUploadBytes caps CSV uploads; years of retail trade history fit in a
// few megabytes.
const maxUploadBytes = 16 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store store.Store
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(st store.Store) *Handler {
	return &Handler{Store: st}
}

// =============================================================================
// PORTFOLIO HANDLERS
// =============================================================================

// UploadPortfolio imports a Robinhood activity CSV.
// Expects multipart form data with a "file" part and an optional "name" field.
func (h *Handler) UploadPortfolio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload", err)
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	result, err := ingest.ParseRobinhood(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse CSV", err)
		return
	}

	id, err := h.Store.CreatePortfolio(r.Context(), name, "robinhood-csv", result.Transactions, result.Warnings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save portfolio", err)
		return
	}

	portfolio, err := h.Store.GetPortfolio(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load portfolio", err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		Portfolio:      portfolioDTO(portfolio),
		ImportWarnings: result.Warnings,
	})
}

// ListPortfolios returns all imported portfolios.
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.Store.ListPortfolios(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list portfolios", err)
		return
	}

	dtos := make([]PortfolioDTO, len(portfolios))
	for i, p := range portfolios {
		dtos[i] = portfolioDTO(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": dtos})
}

// GetPortfolio returns one portfolio's details.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	portfolio, err := h.Store.GetPortfolio(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "Failed to load portfolio")
		return
	}
	writeJSON(w, http.StatusOK, portfolioDTO(portfolio))
}

// GetImportWarnings returns the warnings captured when the CSV was imported.
func (h *Handler) GetImportWarnings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.GetPortfolio(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to load portfolio")
		return
	}

	warnings, err := h.Store.ImportWarnings(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load warnings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"warnings": warnings})
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

// GetReport runs the wash sale analysis and returns the full report.
// Each request is a fresh engine run and is recorded in the analysis history.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}

	report, ok := h.buildReport(w, r, id)
	if !ok {
		return
	}
	summary := report.Summary()

	// Analysis history is best effort: a full report still renders if the
	// run cannot be recorded.
	_, _ = h.Store.RecordAnalysis(r.Context(), store.AnalysisRun{
		PortfolioID: id,
		AsOf:        asOf,
		LossSales:   summary.LossSaleCount,
		Violations:  summary.ViolationCount,
		Warnings:    len(report.Warnings()),
	})

	resp := ReportResponse{
		PortfolioID: id,
		AsOf:        asOf.String(),
		Summary:     summaryDTO(summary),
		LossSales:   []LossSaleDTO{},
		Violations:  []ViolationDTO{},
		Warnings:    report.Warnings(),
	}
	for _, ls := range report.LossSales() {
		resp.LossSales = append(resp.LossSales, lossSaleDTO(ls))
	}
	for _, v := range report.Violations() {
		resp.Violations = append(resp.Violations, violationDTO(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetActiveWindows returns the open wash windows grouped by ticker.
func (h *Handler) GetActiveWindows(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}

	report, ok := h.buildReport(w, r, id)
	if !ok {
		return
	}

	resp := ActiveWindowsResponse{PortfolioID: id, AsOf: asOf.String(), Tickers: []TickerWindowsDTO{}}
	for _, group := range report.ActiveWindowsByTicker(asOf) {
		dto := TickerWindowsDTO{Ticker: group.Ticker, TotalLoss: group.TotalLoss.String()}
		for _, ls := range group.Windows {
			dto.Windows = append(dto.Windows, lossSaleDTO(ls))
		}
		resp.Tickers = append(resp.Tickers, dto)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CheckTicker answers whether buying the ticker on as_of would trigger a
// wash sale.
func (h *Handler) CheckTicker(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}
	asOf, ok := asOfParam(w, r)
	if !ok {
		return
	}
	ticker := chi.URLParam(r, "ticker")

	report, ok := h.buildReport(w, r, id)
	if !ok {
		return
	}
	status := report.CheckTicker(asOf, ticker)

	resp := CheckResponse{
		Ticker:        status.Ticker,
		AsOf:          status.CheckDate.String(),
		Safe:          status.Safe,
		DaysUntilSafe: status.DaysUntilSafe,
		Message:       status.Message,
	}
	if !status.Safe {
		resp.SafeDate = status.SafeDate.String()
		for _, ls := range status.ActiveWindows {
			resp.ActiveWindows = append(resp.ActiveWindows, lossSaleDTO(ls))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAnalyses returns the portfolio's analysis run history.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.GetPortfolio(r.Context(), id); err != nil {
		writeStoreError(w, err, "Failed to load portfolio")
		return
	}

	runs, err := h.Store.ListAnalyses(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list analyses", err)
		return
	}

	dtos := make([]AnalysisRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = AnalysisRunDTO{
			ID:          run.ID,
			PortfolioID: run.PortfolioID,
			AsOf:        run.AsOf.String(),
			LossSales:   run.LossSales,
			Violations:  run.Violations,
			Warnings:    run.Warnings,
			CreatedAt:   run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request, portfolioID int64) (*engine.Report, bool) {
	txs, err := h.Store.Transactions(r.Context(), portfolioID)
	if err != nil {
		writeStoreError(w, err, "Failed to load transactions")
		return nil, false
	}
	return engine.BuildReport(txs), true
}

func (h *Handler) portfolioID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid portfolio id %q", raw), err)
		return 0, false
	}
	return id, true
}

// asOfParam parses ?as_of=YYYY-MM-DD, defaulting to today.
func asOfParam(w http.ResponseWriter, r *http.Request) (engine.Date, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return engine.Today(), true
	}
	asOf, err := engine.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date, want YYYY-MM-DD", err)
		return engine.Date{}, false
	}
	return asOf, true
}

func writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrPortfolioNotFound) {
		writeError(w, http.StatusNotFound, "Portfolio not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
