/*
handlers_test.go - Handler tests over an in-memory store

Tests for:
- CSV upload (multipart) and portfolio creation
- Report, active windows, and ticker check endpoints
- as_of parameter handling and error paths
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lotwatch/washsale-engine/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Activity Date,Process Date,Settle Date,Instrument,Description,Trans Code,Quantity,Price,Amount
01/01/2025,01/01/2025,01/02/2025,XYZ,Example Corp,Buy,100,$10.00,"($1,000.00)"
03/01/2025,03/01/2025,03/02/2025,XYZ,Example Corp,Sell,100,$6.00,$600.00
03/20/2025,03/20/2025,03/21/2025,XYZ,Example Corp,Buy,50,$5.00,($250.00)
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := NewHandler(memory.New())
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func uploadCSV(t *testing.T, srv *httptest.Server, csv string) UploadResponse {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "transactions.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "test portfolio"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/portfolios", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var upload UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&upload))
	return upload
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp
}

func TestUploadPortfolio(t *testing.T) {
	srv := newTestServer(t)

	upload := uploadCSV(t, srv, sampleCSV)

	assert.Equal(t, "test portfolio", upload.Portfolio.Name)
	assert.Equal(t, "robinhood-csv", upload.Portfolio.Source)
	assert.Equal(t, 3, upload.Portfolio.TransactionCount)
	assert.Empty(t, upload.ImportWarnings)
}

func TestUploadPortfolio_MissingFile(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "no file"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/portfolios", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetReport_EndToEnd(t *testing.T) {
	// GIVEN: the canonical example history (buy 100 @ 10, sell 100 @ 6,
	//        buy back 50 @ 5 inside the window)
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	var report ReportResponse
	resp := getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/report?as_of=2025-03-25", upload.Portfolio.ID), &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "2025-03-25", report.AsOf)
	assert.Equal(t, 3, report.Summary.TotalTransactions)
	assert.Equal(t, 1, report.Summary.LossSaleCount)
	assert.Equal(t, 1, report.Summary.ViolationCount)
	assert.Equal(t, "400", report.Summary.TotalLoss)
	assert.Equal(t, "200", report.Summary.TotalDisallowed)

	require.Len(t, report.LossSales, 1)
	assert.Equal(t, "XYZ", report.LossSales[0].Ticker)
	assert.Equal(t, "2025-03-01", report.LossSales[0].SaleDate)
	assert.Equal(t, "1000", report.LossSales[0].CostBasis)
	assert.Equal(t, "600", report.LossSales[0].Proceeds)
	assert.Equal(t, "400", report.LossSales[0].LossAmount)
	assert.Equal(t, "2025-04-01", report.LossSales[0].SafeDate)

	require.Len(t, report.Violations, 1)
	assert.Equal(t, "2025-03-20", report.Violations[0].BuyDate)
	assert.Equal(t, "200", report.Violations[0].DisallowedLoss)
}

func TestGetReport_RecordsAnalysisRun(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/report?as_of=2025-03-25", upload.Portfolio.ID), nil)

	var runs struct {
		Runs []AnalysisRunDTO `json:"runs"`
	}
	resp := getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/analyses", upload.Portfolio.ID), &runs)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, "2025-03-25", runs.Runs[0].AsOf)
	assert.Equal(t, 1, runs.Runs[0].LossSales)
	assert.Equal(t, 1, runs.Runs[0].Violations)
}

func TestCheckTicker_UnsafeInsideWindow(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	var check CheckResponse
	resp := getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/check/XYZ?as_of=2025-03-25", upload.Portfolio.ID), &check)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, check.Safe)
	assert.Equal(t, "2025-04-01", check.SafeDate)
	assert.Equal(t, 7, check.DaysUntilSafe)
	require.Len(t, check.ActiveWindows, 1)
}

func TestCheckTicker_SafeAfterWindow(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	var check CheckResponse
	getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/check/xyz?as_of=2025-04-01", upload.Portfolio.ID), &check)

	assert.True(t, check.Safe, "2025-04-01 is the first safe day")
	assert.Equal(t, 0, check.DaysUntilSafe)
	assert.Empty(t, check.ActiveWindows)
}

func TestGetActiveWindows_GroupedByTicker(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	var windows ActiveWindowsResponse
	resp := getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/windows?as_of=2025-03-25", upload.Portfolio.ID), &windows)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, windows.Tickers, 1)
	assert.Equal(t, "XYZ", windows.Tickers[0].Ticker)
	assert.Equal(t, "400", windows.Tickers[0].TotalLoss)
	require.Len(t, windows.Tickers[0].Windows, 1)
}

func TestGetActiveWindows_EmptyAfterExpiry(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	var windows ActiveWindowsResponse
	getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/windows?as_of=2025-06-01", upload.Portfolio.ID), &windows)

	assert.Empty(t, windows.Tickers)
}

func TestPortfolioNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := getJSON(t, srv, "/api/portfolios/999/report", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidAsOf(t *testing.T) {
	srv := newTestServer(t)
	upload := uploadCSV(t, srv, sampleCSV)

	resp := getJSON(t, srv, fmt.Sprintf("/api/portfolios/%d/report?as_of=03-25-2025", upload.Portfolio.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
