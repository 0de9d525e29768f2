package domain

import "time"

// Category identifies one of the three JHU time series.
type Category string

const (
	CategoryConfirmed Category = "confirmed"
	CategoryDeaths    Category = "deaths"
	CategoryRecovered Category = "recovered"
)

// WideTable is a raw source CSV: a header row and data rows, one row per
// reporting region, one column per date. Column meaning is resolved by name
// in [Reshape], so column order and extra columns are tolerated.
type WideTable struct {
	Category Category
	Headers  []string
	Rows     [][]string
}

// LongRecord is one (region, date, cumulative value) observation for a single
// category, produced by melting a WideTable.
type LongRecord struct {
	Subregion string
	Country   string
	Lat       float64
	Lon       float64
	Date      time.Time
	Value     int64
}

// MergedRecord is the canonical per-subregion-per-day row after joining the
// three category series. NewCases and NewDeaths are clipped first differences
// of the cumulative series within the (country, subregion) group.
type MergedRecord struct {
	Subregion      string    `json:"subregion,omitempty"`
	Country        string    `json:"country"`
	Lat            float64   `json:"latitude"`
	Lon            float64   `json:"longitude"`
	Date           time.Time `json:"date"`
	TotalCases     int64     `json:"total_cases"`
	TotalDeaths    int64     `json:"total_deaths"`
	TotalRecovered int64     `json:"total_recovered"`
	NewCases       int64     `json:"new_cases"`
	NewDeaths      int64     `json:"new_deaths"`
}

// CountryAggregate sums MergedRecord fields over all subregions of one
// country for one date.
type CountryAggregate struct {
	Country        string    `json:"country"`
	Date           time.Time `json:"date"`
	TotalCases     int64     `json:"total_cases"`
	TotalDeaths    int64     `json:"total_deaths"`
	TotalRecovered int64     `json:"total_recovered"`
	NewCases       int64     `json:"new_cases"`
	NewDeaths      int64     `json:"new_deaths"`
}

// GlobalAggregate sums MergedRecord fields over all regions for one date.
type GlobalAggregate struct {
	Date           time.Time `json:"date"`
	TotalCases     int64     `json:"total_cases"`
	TotalDeaths    int64     `json:"total_deaths"`
	TotalRecovered int64     `json:"total_recovered"`
	NewCases       int64     `json:"new_cases"`
	NewDeaths      int64     `json:"new_deaths"`
}

// DatasetBundle is the immutable output of one pipeline run. It is created
// once per refresh and replaced wholesale on the next; consumers must not
// mutate it.
type DatasetBundle struct {
	Raw       []MergedRecord     `json:"raw"`
	ByCountry []CountryAggregate `json:"by_country"`
	Global    []GlobalAggregate  `json:"global"`
	Countries []string           `json:"countries"` // sorted, distinct
}

// LatestGlobal returns the most recent global aggregate, or false if the
// bundle holds no global rows.
func (b *DatasetBundle) LatestGlobal() (GlobalAggregate, bool) {
	if len(b.Global) == 0 {
		return GlobalAggregate{}, false
	}
	return b.Global[len(b.Global)-1], true
}

// Day reports the record's date; it satisfies [Dated] for the filter helpers.
func (r MergedRecord) Day() time.Time { return r.Date }

func (a CountryAggregate) Day() time.Time { return a.Date }

func (g GlobalAggregate) Day() time.Time { return g.Date }

// CountryName reports the record's country; it satisfies [CountryRow].
func (r MergedRecord) CountryName() string { return r.Country }

func (a CountryAggregate) CountryName() string { return a.Country }

// Dated is any table row carrying a calendar date.
type Dated interface {
	Day() time.Time
}

// CountryRow is any table row attributable to a country.
type CountryRow interface {
	Dated
	CountryName() string
}
