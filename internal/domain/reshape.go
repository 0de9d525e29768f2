package domain

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the M/D/YY notation used by JHU date column headers.
const DateLayout = "1/2/06"

// Identity column headers, matched case-insensitively.
const (
	colSubregion = "province/state"
	colCountry   = "country/region"
	colLat       = "lat"
	colLon       = "long"
)

// Reshape melts a wide table into one LongRecord per (region, date) cell.
//
// Date columns are discovered dynamically: every header that is not one of
// the four identity columns is tried against [DateLayout], and headers that
// fail to parse are skipped. Returns a *SchemaError if any identity column is
// missing or if no header parses as a date at all.
func Reshape(t WideTable) ([]LongRecord, error) {
	idx := map[string]int{}
	type dateCol struct {
		col  int
		date time.Time
	}
	var dateCols []dateCol

	for i, h := range t.Headers {
		key := strings.ToLower(strings.TrimSpace(h))
		switch key {
		case colSubregion, colCountry, colLat, colLon:
			idx[key] = i
		default:
			if d, err := time.Parse(DateLayout, strings.TrimSpace(h)); err == nil {
				dateCols = append(dateCols, dateCol{col: i, date: d.UTC()})
			}
		}
	}

	for _, required := range []string{colSubregion, colCountry, colLat, colLon} {
		if _, ok := idx[required]; !ok {
			return nil, &SchemaError{Category: t.Category, Reason: "missing identity column " + strconv.Quote(required)}
		}
	}
	if len(dateCols) == 0 {
		return nil, &SchemaError{Category: t.Category, Reason: "no parseable date columns"}
	}

	records := make([]LongRecord, 0, len(t.Rows)*len(dateCols))
	for _, row := range t.Rows {
		base := LongRecord{
			Subregion: strings.TrimSpace(cell(row, idx[colSubregion])),
			Country:   strings.TrimSpace(cell(row, idx[colCountry])),
			Lat:       parseFloatOrZero(cell(row, idx[colLat])),
			Lon:       parseFloatOrZero(cell(row, idx[colLon])),
		}
		for _, dc := range dateCols {
			rec := base
			rec.Date = dc.date
			rec.Value = parseCountOrZero(cell(row, dc.col))
			records = append(records, rec)
		}
	}
	return records, nil
}

// cell returns row[i], or "" when the row is shorter than the header.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseCountOrZero parses a cumulative count cell. Counts are integers, but
// the source occasionally renders them as "123.0"; both forms are accepted.
// Empty or unparsable cells are zero.
func parseCountOrZero(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
