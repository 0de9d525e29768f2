package domain

import (
	"sort"
	"time"
)

// seriesKey joins the three category series. Subregion is normalized to the
// empty string before keying so "no subregion" is a consistent group.
type seriesKey struct {
	country   string
	subregion string
	date      time.Time
}

// Merge joins the deaths and recovered series onto the confirmed series by
// (country, subregion, date), derives daily deltas, and aggregates to country
// and global granularity.
//
// Confirmed is the anchor: a confirmed row with no matching deaths or
// recovered row gets 0 for that field. A nil or empty recovered slice is the
// degraded mode where the source no longer publishes recoveries — every row
// gets TotalRecovered = 0.
//
// Returns ErrEmptyDataset when the resulting aggregates are empty. Output is
// exactly reproducible for fixed inputs.
func Merge(confirmed, deaths, recovered []LongRecord) (*DatasetBundle, error) {
	deathsByKey := indexByKey(deaths)
	recoveredByKey := indexByKey(recovered)

	merged := make([]MergedRecord, 0, len(confirmed))
	for _, c := range confirmed {
		key := seriesKey{country: c.Country, subregion: c.Subregion, date: c.Date}
		merged = append(merged, MergedRecord{
			Subregion:      c.Subregion,
			Country:        c.Country,
			Lat:            c.Lat,
			Lon:            c.Lon,
			Date:           c.Date,
			TotalCases:     c.Value,
			TotalDeaths:    deathsByKey[key],
			TotalRecovered: recoveredByKey[key],
		})
	}

	// Deltas are order-dependent: sort by (country, subregion, date) first.
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Country != b.Country {
			return a.Country < b.Country
		}
		if a.Subregion != b.Subregion {
			return a.Subregion < b.Subregion
		}
		return a.Date.Before(b.Date)
	})

	computeDeltas(merged)

	bundle := &DatasetBundle{
		Raw:       merged,
		ByCountry: aggregateByCountry(merged),
		Global:    aggregateGlobal(merged),
		Countries: distinctCountries(merged),
	}

	if len(bundle.Global) == 0 || len(bundle.ByCountry) == 0 {
		return nil, ErrEmptyDataset
	}
	return bundle, nil
}

func indexByKey(records []LongRecord) map[seriesKey]int64 {
	m := make(map[seriesKey]int64, len(records))
	for _, r := range records {
		m[seriesKey{country: r.Country, subregion: r.Subregion, date: r.Date}] = r.Value
	}
	return m
}

// computeDeltas fills NewCases and NewDeaths as first differences of the
// cumulative series within each (country, subregion) group. The first
// observation of a group has no prior and stays 0. Negative differences —
// retroactive source corrections — are clipped to 0 so daily counts never go
// negative.
func computeDeltas(merged []MergedRecord) {
	for i := range merged {
		if i == 0 {
			continue
		}
		prev := merged[i-1]
		cur := &merged[i]
		if prev.Country != cur.Country || prev.Subregion != cur.Subregion {
			continue
		}
		cur.NewCases = clipNonNegative(cur.TotalCases - prev.TotalCases)
		cur.NewDeaths = clipNonNegative(cur.TotalDeaths - prev.TotalDeaths)
	}
}

func clipNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func aggregateByCountry(merged []MergedRecord) []CountryAggregate {
	type countryDate struct {
		country string
		date    time.Time
	}
	sums := map[countryDate]*CountryAggregate{}
	for _, r := range merged {
		key := countryDate{country: r.Country, date: r.Date}
		agg, ok := sums[key]
		if !ok {
			agg = &CountryAggregate{Country: r.Country, Date: r.Date}
			sums[key] = agg
		}
		agg.TotalCases += r.TotalCases
		agg.TotalDeaths += r.TotalDeaths
		agg.TotalRecovered += r.TotalRecovered
		agg.NewCases += r.NewCases
		agg.NewDeaths += r.NewDeaths
	}

	out := make([]CountryAggregate, 0, len(sums))
	for _, agg := range sums {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func aggregateGlobal(merged []MergedRecord) []GlobalAggregate {
	sums := map[time.Time]*GlobalAggregate{}
	for _, r := range merged {
		agg, ok := sums[r.Date]
		if !ok {
			agg = &GlobalAggregate{Date: r.Date}
			sums[r.Date] = agg
		}
		agg.TotalCases += r.TotalCases
		agg.TotalDeaths += r.TotalDeaths
		agg.TotalRecovered += r.TotalRecovered
		agg.NewCases += r.NewCases
		agg.NewDeaths += r.NewDeaths
	}

	out := make([]GlobalAggregate, 0, len(sums))
	for _, agg := range sums {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func distinctCountries(merged []MergedRecord) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range merged {
		if r.Country == "" {
			continue
		}
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	sort.Strings(out)
	return out
}
