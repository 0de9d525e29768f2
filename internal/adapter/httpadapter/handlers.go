package httpadapter

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// queryDateLayout is the ISO date format used by start/end query parameters.
const queryDateLayout = "2006-01-02"

// farFuture stands in for an unset end bound; clipping to the data span is
// handled by the filter itself.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type summaryResponse struct {
	Date             time.Time         `json:"date"`
	TotalCases       int64             `json:"total_cases"`
	ActiveCases      int64             `json:"active_cases"`
	TotalDeaths      int64             `json:"total_deaths"`
	TotalRecovered   int64             `json:"total_recovered"`
	NewCases         int64             `json:"new_cases"`
	NewDeaths        int64             `json:"new_deaths"`
	CaseFatalityRate float64           `json:"case_fatality_rate"`
	Countries        int               `json:"countries"`
	Formatted        map[string]string `json:"formatted"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	latest, ok := bundle.LatestGlobal()
	if !ok {
		s.writeError(w, domain.ErrEmptyDataset)
		return
	}

	active := latest.TotalCases - latest.TotalDeaths - latest.TotalRecovered
	writeJSON(w, http.StatusOK, summaryResponse{
		Date:             latest.Date,
		TotalCases:       latest.TotalCases,
		ActiveCases:      active,
		TotalDeaths:      latest.TotalDeaths,
		TotalRecovered:   latest.TotalRecovered,
		NewCases:         latest.NewCases,
		NewDeaths:        latest.NewDeaths,
		CaseFatalityRate: domain.CaseFatalityRate(latest.TotalDeaths, latest.TotalCases),
		Countries:        len(bundle.Countries),
		Formatted: map[string]string{
			"total_cases":     humanize.Comma(latest.TotalCases),
			"active_cases":    humanize.Comma(active),
			"total_deaths":    humanize.Comma(latest.TotalDeaths),
			"total_recovered": humanize.Comma(latest.TotalRecovered),
			"new_cases":       humanize.Comma(latest.NewCases),
			"new_deaths":      humanize.Comma(latest.NewDeaths),
		},
	})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": bundle.Countries})
}

type globalSeriesResponse struct {
	Series       []domain.GlobalAggregate `json:"series"`
	NewCasesAvg  []float64                `json:"new_cases_avg,omitempty"`
	NewDeathsAvg []float64                `json:"new_deaths_avg,omitempty"`
	GrowthRate   []float64                `json:"growth_rate,omitempty"`
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}
	series, err := domain.FilterByDateRange(bundle.Global, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := globalSeriesResponse{Series: series}
	if window, ok := parsePositiveInt(w, r, "smooth"); !ok {
		return
	} else if window > 0 {
		resp.NewCasesAvg = domain.RollingAverage(newCasesSeries(series), window)
		resp.NewDeathsAvg = domain.RollingAverage(newDeathsSeries(series), window)
	}
	if period, ok := parsePositiveInt(w, r, "growth"); !ok {
		return
	} else if period > 0 {
		resp.GrowthRate = domain.GrowthRate(totalCasesSeries(series), period)
	}

	writeJSON(w, http.StatusOK, resp)
}

type countrySeriesResponse struct {
	Country      string                    `json:"country"`
	Series       []domain.CountryAggregate `json:"series"`
	NewCasesAvg  []float64                 `json:"new_cases_avg,omitempty"`
	NewDeathsAvg []float64                 `json:"new_deaths_avg,omitempty"`
	GrowthRate   []float64                 `json:"growth_rate,omitempty"`
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	// JHU names like "Korea, South" arrive percent-escaped in the path
	// segment; chi hands back the escaped form.
	country := chi.URLParam(r, "country")
	if unescaped, err := url.PathUnescape(country); err == nil {
		country = unescaped
	}

	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}
	series := domain.FilterByCountries(bundle.ByCountry, []string{country})
	series, err = domain.FilterByDateRange(series, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := countrySeriesResponse{Country: country, Series: series}
	if window, ok := parsePositiveInt(w, r, "smooth"); !ok {
		return
	} else if window > 0 {
		var newCases, newDeaths []float64
		for _, p := range series {
			newCases = append(newCases, float64(p.NewCases))
			newDeaths = append(newDeaths, float64(p.NewDeaths))
		}
		resp.NewCasesAvg = domain.RollingAverage(newCases, window)
		resp.NewDeathsAvg = domain.RollingAverage(newDeaths, window)
	}
	if period, ok := parsePositiveInt(w, r, "growth"); !ok {
		return
	} else if period > 0 {
		var totals []float64
		for _, p := range series {
			totals = append(totals, float64(p.TotalCases))
		}
		resp.GrowthRate = domain.GrowthRate(totals, period)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMap returns the per-subregion merged rows for one date, carrying the
// source latitude/longitude so callers can plot a world map. Defaults to the
// most recent date in the dataset.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		asOf = d.UTC()
	} else {
		latest, ok := bundle.LatestGlobal()
		if !ok {
			s.writeError(w, domain.ErrEmptyDataset)
			return
		}
		asOf = latest.Date
	}

	points := make([]domain.MergedRecord, 0)
	for _, rec := range bundle.Raw {
		if rec.Date.Equal(asOf) {
			points = append(points, rec)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":   asOf,
		"points": points,
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	metric := domain.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = domain.MetricTotalCases
	}
	if !metric.Valid() {
		writeBadRequest(w, "unknown metric "+strconv.Quote(string(metric)))
		return
	}

	n := 10
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeBadRequest(w, "n must be a positive integer")
			return
		}
		n = v
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		asOf = d.UTC()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric":    metric,
		"countries": domain.TopN(bundle.ByCountry, metric, n, asOf),
	})
}

type comparePoint struct {
	Date  time.Time `json:"date"`
	Value int64     `json:"value"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("countries")
	if raw == "" {
		writeBadRequest(w, "countries parameter is required")
		return
	}
	var countries []string
	for _, c := range strings.Split(raw, ",") {
		if c = strings.TrimSpace(c); c != "" {
			countries = append(countries, c)
		}
	}

	metric := domain.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = domain.MetricNewCases
	}
	if !metric.Valid() {
		writeBadRequest(w, "unknown metric "+strconv.Quote(string(metric)))
		return
	}

	bundle, err := s.provider.Get(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	start, end, ok := parseDateRange(w, r)
	if !ok {
		return
	}
	rows := domain.FilterByCountries(bundle.ByCountry, countries)
	rows, err = domain.FilterByDateRange(rows, start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}

	series := make(map[string][]comparePoint, len(countries))
	for _, row := range rows {
		series[row.Country] = append(series[row.Country], comparePoint{
			Date:  row.Date,
			Value: row.MetricValue(metric),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric": metric,
		"series": series,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.provider.Refresh(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "refreshed",
		"countries": len(bundle.Countries),
		"dates":     len(bundle.Global),
	})
}

// parseDateRange reads optional start/end query parameters. On a malformed
// value it writes a 400 and returns ok=false.
func parseDateRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	end = farFuture
	if raw := r.URL.Query().Get("start"); raw != "" {
		d, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			writeBadRequest(w, "start must be YYYY-MM-DD")
			return start, end, false
		}
		start = d.UTC()
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		d, err := time.Parse(queryDateLayout, raw)
		if err != nil {
			writeBadRequest(w, "end must be YYYY-MM-DD")
			return start, end, false
		}
		end = d.UTC()
	}
	return start, end, true
}

// parsePositiveInt reads an optional positive integer parameter, returning 0
// when absent. On a malformed value it writes a 400 and returns ok=false.
func parsePositiveInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		writeBadRequest(w, key+" must be a positive integer")
		return 0, false
	}
	return v, true
}

func newCasesSeries(series []domain.GlobalAggregate) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.NewCases)
	}
	return out
}

func newDeathsSeries(series []domain.GlobalAggregate) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.NewDeaths)
	}
	return out
}

func totalCasesSeries(series []domain.GlobalAggregate) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = float64(p.TotalCases)
	}
	return out
}
