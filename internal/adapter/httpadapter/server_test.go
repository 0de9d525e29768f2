package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// stubProvider is a DatasetProvider returning a fixed bundle or error.
type stubProvider struct {
	bundle    *domain.DatasetBundle
	err       error
	refreshes int
}

func (p *stubProvider) Get(_ context.Context) (*domain.DatasetBundle, error) {
	return p.bundle, p.err
}

func (p *stubProvider) Refresh(_ context.Context) (*domain.DatasetBundle, error) {
	p.refreshes++
	return p.bundle, p.err
}

func (p *stubProvider) CheckReadiness(_ context.Context) error {
	if p.bundle == nil {
		return errors.New("not loaded")
	}
	return nil
}

func day(n int) time.Time {
	return time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func testBundle() *domain.DatasetBundle {
	confirmed := []domain.LongRecord{
		{Country: "Nation1", Subregion: "Alpha", Date: day(0), Value: 100},
		{Country: "Nation1", Subregion: "Alpha", Date: day(1), Value: 150},
		{Country: "Nation2", Date: day(0), Value: 100},
		{Country: "Nation2", Date: day(1), Value: 220},
		{Country: "Nation3", Date: day(0), Value: 10},
		{Country: "Nation3", Date: day(1), Value: 30},
	}
	deaths := []domain.LongRecord{
		{Country: "Nation1", Subregion: "Alpha", Date: day(1), Value: 15},
		{Country: "Nation2", Date: day(1), Value: 5},
	}
	bundle, err := domain.Merge(confirmed, deaths, nil)
	if err != nil {
		panic(err)
	}
	return bundle
}

func newTestServer(p DatasetProvider) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", p, logger)
}

func doRequest(t *testing.T, srv *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestSummary(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	rec, body := doRequest(t, srv, http.MethodGet, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(400), body["total_cases"], "150+220+30 on the latest date")
	assert.Equal(t, float64(20), body["total_deaths"])
	assert.Equal(t, float64(380), body["active_cases"])
	assert.Equal(t, float64(190), body["new_cases"], "50+120+20")
	assert.Equal(t, float64(5), body["case_fatality_rate"])
	assert.Equal(t, float64(3), body["countries"])

	formatted, ok := body["formatted"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "400", formatted["total_cases"])
}

func TestCountries(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	rec, body := doRequest(t, srv, http.MethodGet, "/api/countries")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"Nation1", "Nation2", "Nation3"}, body["countries"])
}

func TestGlobalSeries(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	t.Run("full series", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/global")
		require.Equal(t, http.StatusOK, rec.Code)
		series, ok := body["series"].([]any)
		require.True(t, ok)
		assert.Len(t, series, 2)
	})

	t.Run("date range filter", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/global?start=2020-01-23&end=2020-01-23")
		require.Equal(t, http.StatusOK, rec.Code)
		series := body["series"].([]any)
		assert.Len(t, series, 1)
	})

	t.Run("invalid range is a 400", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/global?start=2020-02-01&end=2020-01-01")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_range", body["error"])
	})

	t.Run("malformed date is a 400", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/global?start=yesterday")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("smoothing adds averaged series of equal length", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/global?smooth=7")
		require.Equal(t, http.StatusOK, rec.Code)
		avg, ok := body["new_cases_avg"].([]any)
		require.True(t, ok)
		assert.Len(t, avg, 2)
	})

	t.Run("growth rate", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/global?growth=1")
		require.Equal(t, http.StatusOK, rec.Code)
		growth, ok := body["growth_rate"].([]any)
		require.True(t, ok)
		require.Len(t, growth, 2)
		assert.Equal(t, float64(0), growth[0])
	})
}

func TestCountrySeries(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	t.Run("known country", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/countries/Nation1")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Nation1", body["country"])
		series := body["series"].([]any)
		assert.Len(t, series, 2)
	})

	t.Run("unknown country yields empty series, not an error", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/countries/Atlantis")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, body["series"])
	})

	t.Run("escaped path segment matches the unescaped name", func(t *testing.T) {
		confirmed := []domain.LongRecord{
			{Country: "Korea, South", Date: day(0), Value: 10},
			{Country: "Korea, South", Date: day(1), Value: 14},
		}
		bundle, err := domain.Merge(confirmed, nil, nil)
		require.NoError(t, err)
		srv := newTestServer(&stubProvider{bundle: bundle})

		rec, body := doRequest(t, srv, http.MethodGet, "/api/countries/Korea%2C%20South")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Korea, South", body["country"])
		assert.Len(t, body["series"], 2)
	})
}

func TestMapPoints(t *testing.T) {
	confirmed := []domain.LongRecord{
		{Country: "Nation1", Subregion: "Alpha", Lat: 10.5, Lon: -20.25, Date: day(0), Value: 100},
		{Country: "Nation1", Subregion: "Alpha", Lat: 10.5, Lon: -20.25, Date: day(1), Value: 150},
		{Country: "Nation2", Lat: 35, Lon: 127.5, Date: day(0), Value: 40},
		{Country: "Nation2", Lat: 35, Lon: 127.5, Date: day(1), Value: 60},
	}
	bundle, err := domain.Merge(confirmed, nil, nil)
	require.NoError(t, err)
	srv := newTestServer(&stubProvider{bundle: bundle})

	t.Run("defaults to latest date", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/map")
		require.Equal(t, http.StatusOK, rec.Code)

		points, ok := body["points"].([]any)
		require.True(t, ok)
		require.Len(t, points, 2)

		first := points[0].(map[string]any)
		assert.Equal(t, "Nation1", first["country"])
		assert.Equal(t, "Alpha", first["subregion"])
		assert.Equal(t, 10.5, first["latitude"])
		assert.Equal(t, -20.25, first["longitude"])
		assert.Equal(t, float64(150), first["total_cases"])
	})

	t.Run("explicit date", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/map?date=2020-01-22")
		require.Equal(t, http.StatusOK, rec.Code)

		points := body["points"].([]any)
		require.Len(t, points, 2)
		first := points[0].(map[string]any)
		assert.Equal(t, float64(100), first["total_cases"])
	})

	t.Run("date outside the span yields empty points, not an error", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/map?date=2019-01-01")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, body["points"])
	})

	t.Run("malformed date is a 400", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/map?date=yesterday")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTop(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	t.Run("defaults to total cases at latest date", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/top?n=2")
		require.Equal(t, http.StatusOK, rec.Code)

		countries := body["countries"].([]any)
		require.Len(t, countries, 2)
		first := countries[0].(map[string]any)
		assert.Equal(t, "Nation2", first["country"])
		assert.Equal(t, float64(220), first["value"])
	})

	t.Run("unknown metric is a 400", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/top?metric=vibes")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCompare(t *testing.T) {
	srv := newTestServer(&stubProvider{bundle: testBundle()})

	t.Run("per-country series", func(t *testing.T) {
		rec, body := doRequest(t, srv, http.MethodGet, "/api/compare?countries=Nation1,Nation2&metric=total_cases")
		require.Equal(t, http.StatusOK, rec.Code)

		series, ok := body["series"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, series, 2)
		nation1 := series["Nation1"].([]any)
		assert.Len(t, nation1, 2)
	})

	t.Run("missing countries parameter is a 400", func(t *testing.T) {
		rec, _ := doRequest(t, srv, http.MethodGet, "/api/compare")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefresh(t *testing.T) {
	provider := &stubProvider{bundle: testBundle()}
	srv := newTestServer(provider)

	rec, body := doRequest(t, srv, http.MethodPost, "/api/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "refreshed", body["status"])
	assert.Equal(t, 1, provider.refreshes)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"fetch error", &domain.FetchError{Category: domain.CategoryConfirmed, Err: errors.New("down")}, http.StatusBadGateway, "fetch_error"},
		{"schema error", &domain.SchemaError{Category: domain.CategoryDeaths, Reason: "columns moved"}, http.StatusBadGateway, "schema_error"},
		{"empty dataset", domain.ErrEmptyDataset, http.StatusBadGateway, "empty_dataset"},
		{"unknown error", errors.New("wat"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubProvider{err: tt.err})
			rec, body := doRequest(t, srv, http.MethodGet, "/api/summary")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantKind, body["error"])
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	t.Run("healthz always healthy", func(t *testing.T) {
		srv := newTestServer(&stubProvider{})
		rec, body := doRequest(t, srv, http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("readyz reflects dataset availability", func(t *testing.T) {
		provider := &stubProvider{}
		srv := newTestServer(provider)

		rec, _ := doRequest(t, srv, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		provider.bundle = testBundle()
		rec, _ = doRequest(t, srv, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
