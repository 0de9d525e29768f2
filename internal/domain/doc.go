// Package domain models Johns Hopkins CSSE COVID-19 time series data.
//
// # Data Source
//
// The JHU CSSE repository publishes three global time series CSVs (confirmed
// cases, deaths, recoveries) at
// https://github.com/CSSEGISandData/COVID-19/tree/master/csse_covid_19_data/csse_covid_19_time_series.
// Each file is wide format: one row per reporting region, four identity
// columns, then one column per calendar date holding the cumulative count as
// of that date.
//
// # CSV Conventions
//
// Identity columns:
//
//	Province/State  sub-national unit; empty for countries reported whole.
//	Country/Region  country name.
//	Lat, Long       WGS-84 centroid of the reporting region.
//
// Date columns:
//
//	Headers use M/D/YY notation, e.g. "1/22/20" = January 22, 2020.
//	Columns that are neither identity columns nor parseable dates are
//	ignored; a table with no parseable date column at all is malformed
//	(see [Reshape]).
//
// Cumulative counts:
//
//	Values are cumulative and non-decreasing in principle, but the source
//	applies retroactive corrections that can make a series dip. First
//	differences are therefore clipped at zero when deriving daily counts —
//	a correction must never surface as a negative "new cases" number.
//
// Recovered data:
//
//	JHU stopped tracking recoveries in August 2021. A missing or broken
//	recovered series is a known degraded mode, not an error: every merged
//	record carries total_recovered = 0 in that case.
//
// # Shapes
//
// [WideTable] is the raw fetched CSV. [Reshape] melts it into [LongRecord]
// rows (one per region per date). [Merge] joins the three long series on
// (country, subregion, date) with confirmed as the anchor, derives daily
// deltas, and aggregates into a [DatasetBundle] of per-subregion records,
// per-country rollups, and a global rollup.
package domain
