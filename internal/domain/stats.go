package domain

import (
	"sort"
	"time"
)

// Metric names a summable MergedRecord / aggregate field for queries.
type Metric string

const (
	MetricTotalCases     Metric = "total_cases"
	MetricTotalDeaths    Metric = "total_deaths"
	MetricTotalRecovered Metric = "total_recovered"
	MetricNewCases       Metric = "new_cases"
	MetricNewDeaths      Metric = "new_deaths"
)

// Valid reports whether m names a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricTotalCases, MetricTotalDeaths, MetricTotalRecovered, MetricNewCases, MetricNewDeaths:
		return true
	}
	return false
}

// MetricValue returns the aggregate's value for the named metric, or 0 for an
// unknown metric.
func (a CountryAggregate) MetricValue(m Metric) int64 {
	switch m {
	case MetricTotalCases:
		return a.TotalCases
	case MetricTotalDeaths:
		return a.TotalDeaths
	case MetricTotalRecovered:
		return a.TotalRecovered
	case MetricNewCases:
		return a.NewCases
	case MetricNewDeaths:
		return a.NewDeaths
	}
	return 0
}

// MetricValue returns the global aggregate's value for the named metric.
func (g GlobalAggregate) MetricValue(m Metric) int64 {
	switch m {
	case MetricTotalCases:
		return g.TotalCases
	case MetricTotalDeaths:
		return g.TotalDeaths
	case MetricTotalRecovered:
		return g.TotalRecovered
	case MetricNewCases:
		return g.NewCases
	case MetricNewDeaths:
		return g.NewDeaths
	}
	return 0
}

// FilterByDateRange keeps rows whose date falls within [start, end]
// inclusive. Bounds outside the data's actual span simply clip — rows outside
// fall away, never an error. Returns ErrInvalidRange when start is after end.
// Input order is preserved.
func FilterByDateRange[T Dated](rows []T, start, end time.Time) ([]T, error) {
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		d := r.Day()
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FilterByCountries keeps rows whose country is in the given set. Unknown
// country names yield no rows for that name. Input order is preserved.
func FilterByCountries[T CountryRow](rows []T, countries []string) []T {
	want := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		want[c] = struct{}{}
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if _, ok := want[r.CountryName()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// RollingAverage computes a simple moving average over the series. Positions
// with fewer than window preceding points average over what is available, so
// the output always has the same length as the input. A window below 1 is
// treated as 1.
func RollingAverage(series []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(series))
	var sum float64
	for i, v := range series {
		sum += v
		if i >= window {
			sum -= series[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// GrowthRate computes the percentage change of each point against the point
// period positions earlier: (cur − prior) / prior × 100. Points with no prior
// (insufficient history) or a zero prior are 0 — never a division error.
func GrowthRate(series []float64, period int) []float64 {
	out := make([]float64, len(series))
	if period < 1 {
		return out
	}
	for i := range series {
		if i < period {
			continue
		}
		prior := series[i-period]
		if prior == 0 {
			continue
		}
		out[i] = (series[i] - prior) / prior * 100
	}
	return out
}

// CaseFatalityRate returns deaths as a percentage of cases, 0 when cases is 0.
func CaseFatalityRate(totalDeaths, totalCases int64) float64 {
	if totalCases == 0 {
		return 0
	}
	return float64(totalDeaths) / float64(totalCases) * 100
}

// CountryMetric is one TopN result row.
type CountryMetric struct {
	Country string `json:"country"`
	Value   int64  `json:"value"`
}

// TopN returns the n countries with the largest summed metric at asOf. A zero
// asOf means the latest date present in rows. Ties keep the countries'
// original encounter order (stable sort).
func TopN(rows []CountryAggregate, metric Metric, n int, asOf time.Time) []CountryMetric {
	if n <= 0 || len(rows) == 0 {
		return nil
	}
	if asOf.IsZero() {
		for _, r := range rows {
			if r.Date.After(asOf) {
				asOf = r.Date
			}
		}
	}

	totals := map[string]int64{}
	var order []string
	for _, r := range rows {
		if !r.Date.Equal(asOf) {
			continue
		}
		if _, ok := totals[r.Country]; !ok {
			order = append(order, r.Country)
		}
		totals[r.Country] += r.MetricValue(metric)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})

	if n > len(order) {
		n = len(order)
	}
	out := make([]CountryMetric, 0, n)
	for _, country := range order[:n] {
		out = append(out, CountryMetric{Country: country, Value: totals[country]})
	}
	return out
}
