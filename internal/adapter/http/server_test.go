package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/pm25-stats/internal/adapter/http"
	"github.com/couchcryptid/pm25-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type staticResults []domain.CityReport

func (s staticResults) Reports() []domain.CityReport { return s }

var testReports = staticResults{
	{
		City:      "beijing",
		Stations:  []string{"PM_Dongsi"},
		Hours:     2,
		Domestic:  domain.BandShares{Heavy: 0.5, Good: 0.5, Hours: 2},
		Reference: domain.BandShares{Heavy: 1, Hours: 2},
		Monthly: []domain.MonthlyAverage{
			{Year: 2015, Month: 1, Label: "2015-01", Means: []float64{120}, Hours: 2},
		},
	},
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, testReports, slog.Default())
}

func serve(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(t, newTestServer(errors.New("batch still running")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCitiesListsSummaries(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/cities")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "beijing", body[0]["city"])
	assert.InDelta(t, 2, body[0]["hours"], 0)
}

func TestCityReturnsReport(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/cities/beijing")
	require.Equal(t, http.StatusOK, rec.Code)

	var report domain.CityReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "beijing", report.City)
	assert.InDelta(t, 0.5, report.Domestic.Heavy, 1e-9)
	assert.InDelta(t, 1.0, report.Reference.Heavy, 1e-9)
}

func TestCityMonthly(t *testing.T) {
	rec := serve(t, newTestServer(nil), "/cities/beijing/monthly")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stations []string                `json:"stations"`
		Months   []domain.MonthlyAverage `json:"months"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"PM_Dongsi"}, body.Stations)
	require.Len(t, body.Months, 1)
	assert.Equal(t, "2015-01", body.Months[0].Label)
}

func TestUnknownCityReturns404(t *testing.T) {
	srv := newTestServer(nil)
	assert.Equal(t, http.StatusNotFound, serve(t, srv, "/cities/lhasa").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, srv, "/cities/lhasa/monthly").Code)
}
