// Command validate runs one full pipeline pass against the configured (or
// mock) sources and checks the dataset's integrity invariants: reshape row
// counts, non-negative daily deltas, and two-level aggregation consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -confirmed http://localhost:9090/time_series_covid19_confirmed_global.csv \
//	  -deaths http://localhost:9090/time_series_covid19_deaths_global.csv \
//	  -recovered http://localhost:9090/time_series_covid19_recovered_global.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/adapter/jhu"
	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	confirmed := flag.String("confirmed", "", "confirmed cases CSV URL")
	deaths := flag.String("deaths", "", "deaths CSV URL")
	recovered := flag.String("recovered", "", "recovered CSV URL (optional)")
	timeout := flag.Duration("timeout", 10*time.Second, "per-source fetch timeout")
	flag.Parse()

	if *confirmed == "" || *deaths == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*confirmed, *deaths, *recovered, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(confirmedURL, deathsURL, recoveredURL string, timeout time.Duration) int {
	fmt.Println("=== Dataset Integrity Validation ===")
	fmt.Println()

	urls := map[domain.Category]string{
		domain.CategoryConfirmed: confirmedURL,
		domain.CategoryDeaths:    deathsURL,
	}
	if recoveredURL != "" {
		urls[domain.CategoryRecovered] = recoveredURL
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := jhu.NewClient(urls, timeout, logger)
	ctx := context.Background()

	tables := map[domain.Category]domain.WideTable{}
	long := map[domain.Category][]domain.LongRecord{}
	for _, category := range []domain.Category{domain.CategoryConfirmed, domain.CategoryDeaths, domain.CategoryRecovered} {
		if _, ok := urls[category]; !ok {
			fmt.Printf("NOTE  %s source not configured, running degraded\n", category)
			continue
		}
		table, err := client.FetchTable(ctx, category)
		if err != nil {
			if category == domain.CategoryRecovered {
				fmt.Printf("NOTE  recovered fetch failed (%v), running degraded\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "FATAL: fetch %s: %v\n", category, err)
			return 1
		}
		records, err := domain.Reshape(table)
		if err != nil {
			if category == domain.CategoryRecovered {
				fmt.Printf("NOTE  recovered reshape failed (%v), running degraded\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "FATAL: reshape %s: %v\n", category, err)
			return 1
		}
		tables[category] = table
		long[category] = records
	}

	bundle, err := domain.Merge(long[domain.CategoryConfirmed], long[domain.CategoryDeaths], long[domain.CategoryRecovered])
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: merge: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateReshapeCounts(tables, long),
		validateClipInvariant(bundle),
		validateCountryConsistency(bundle),
		validateGlobalConsistency(bundle),
		validateCountryList(bundle),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		allPassed = false
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("validation FAILED")
		return 1
	}
	fmt.Printf("validation passed: %d raw rows, %d countries, %d dates\n",
		len(bundle.Raw), len(bundle.Countries), len(bundle.Global))
	return 0
}

// validateReshapeCounts checks output rows = input rows x parseable date
// columns for each reshaped table.
func validateReshapeCounts(tables map[domain.Category]domain.WideTable, long map[domain.Category][]domain.LongRecord) *phase {
	p := &phase{name: "reshape row counts"}
	for category, table := range tables {
		dateCols := 0
		for _, h := range table.Headers {
			if _, err := time.Parse(domain.DateLayout, strings.TrimSpace(h)); err == nil {
				dateCols++
			}
		}
		want := len(table.Rows) * dateCols
		if got := len(long[category]); got != want {
			p.errorf("%s: %d long records, want %d (%d rows x %d dates)",
				category, got, want, len(table.Rows), dateCols)
		}
	}
	return p
}

func validateClipInvariant(bundle *domain.DatasetBundle) *phase {
	p := &phase{name: "non-negative daily deltas"}
	for _, r := range bundle.Raw {
		if r.NewCases < 0 || r.NewDeaths < 0 {
			p.errorf("%s/%s at %s: new_cases=%d new_deaths=%d",
				r.Country, r.Subregion, r.Date.Format("2006-01-02"), r.NewCases, r.NewDeaths)
		}
	}
	return p
}

func validateCountryConsistency(bundle *domain.DatasetBundle) *phase {
	p := &phase{name: "country aggregation consistency"}
	type key struct {
		country string
		date    time.Time
	}
	sums := map[key]int64{}
	for _, r := range bundle.Raw {
		sums[key{r.Country, r.Date}] += r.TotalCases
	}
	for _, agg := range bundle.ByCountry {
		if sum := sums[key{agg.Country, agg.Date}]; sum != agg.TotalCases {
			p.errorf("%s at %s: aggregate %d, raw sum %d",
				agg.Country, agg.Date.Format("2006-01-02"), agg.TotalCases, sum)
		}
	}
	return p
}

func validateGlobalConsistency(bundle *domain.DatasetBundle) *phase {
	p := &phase{name: "global aggregation consistency"}
	sums := map[time.Time]int64{}
	for _, agg := range bundle.ByCountry {
		sums[agg.Date] += agg.TotalCases
	}
	for _, g := range bundle.Global {
		if sum := sums[g.Date]; sum != g.TotalCases {
			p.errorf("%s: global %d, country sum %d", g.Date.Format("2006-01-02"), g.TotalCases, sum)
		}
	}
	return p
}

func validateCountryList(bundle *domain.DatasetBundle) *phase {
	p := &phase{name: "country list sorted and distinct"}
	if !sort.StringsAreSorted(bundle.Countries) {
		p.errorf("country list is not sorted")
	}
	seen := map[string]struct{}{}
	for _, c := range bundle.Countries {
		if _, ok := seen[c]; ok {
			p.errorf("duplicate country %q", c)
		}
		seen[c] = struct{}{}
	}
	return p
}
