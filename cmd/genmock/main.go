// Command genmock generates synthetic JHU-format wide CSVs so the service can
// run offline. It writes the three category files into an output directory
// and can serve them over HTTP for a local mock source.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -days 120
//	go run ./cmd/genmock -out data/mock -serve :9090
//
// Point the service at the mock with:
//
//	CONFIRMED_URL=http://localhost:9090/time_series_covid19_confirmed_global.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

var baseDate = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

// region is one synthetic reporting row.
type region struct {
	subregion string
	country   string
	lat, lon  float64
	// growth shapes the synthetic outbreak curve per region.
	peakDay int
	scale   float64
}

var regions = []region{
	{subregion: "", country: "Nation1", lat: 10.5, lon: 20.25, peakDay: 40, scale: 50000},
	{subregion: "Alpha", country: "Nation2", lat: -5.1, lon: 30.0, peakDay: 55, scale: 120000},
	{subregion: "Beta", country: "Nation2", lat: -6.2, lon: 31.5, peakDay: 60, scale: 80000},
	{subregion: "", country: "Nation3", lat: 48.0, lon: 2.3, peakDay: 70, scale: 200000},
	{subregion: "", country: "Nation4", lat: 35.7, lon: 139.7, peakDay: 90, scale: 30000},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/mock", "output directory for generated CSVs")
	days := flag.Int("days", 120, "number of date columns to generate")
	seed := flag.Int64("seed", 42, "random seed for reproducible fixtures")
	serve := flag.String("serve", "", "optional address to serve the directory over HTTP")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	cases := generateCumulative(rng, *days)
	deaths := scaleSeries(cases, 0.02)
	recovered := scaleSeries(cases, 0.85)

	files := map[domain.Category][][]int64{
		domain.CategoryConfirmed: cases,
		domain.CategoryDeaths:    deaths,
		domain.CategoryRecovered: recovered,
	}
	for category, series := range files {
		path := filepath.Join(*outDir, fmt.Sprintf("time_series_covid19_%s_global.csv", category))
		if err := writeWideCSV(path, *days, series); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		log.Printf("wrote %s: %d regions x %d days", path, len(regions), *days)
	}

	if *serve != "" {
		log.Printf("serving %s on %s", *outDir, *serve)
		return http.ListenAndServe(*serve, http.FileServer(http.Dir(*outDir)))
	}
	return nil
}

// generateCumulative builds a cumulative series per region following a rough
// logistic outbreak curve with noise. Roughly one day in forty dips slightly
// to mimic the source's retroactive corrections, which exercises the
// pipeline's negative-delta clipping.
func generateCumulative(rng *rand.Rand, days int) [][]int64 {
	out := make([][]int64, len(regions))
	for i, reg := range regions {
		series := make([]int64, days)
		for d := 0; d < days; d++ {
			x := float64(d-reg.peakDay) / 12.0
			v := reg.scale / (1 + math.Exp(-x))
			v += rng.Float64() * reg.scale * 0.01
			series[d] = int64(v)
			if d > 0 && series[d] < series[d-1] {
				series[d] = series[d-1]
			}
			if d > 0 && rng.Intn(40) == 0 {
				series[d] = series[d-1] - int64(rng.Intn(100))
				if series[d] < 0 {
					series[d] = 0
				}
			}
		}
		out[i] = series
	}
	return out
}

func scaleSeries(base [][]int64, ratio float64) [][]int64 {
	out := make([][]int64, len(base))
	for i, series := range base {
		scaled := make([]int64, len(series))
		for d, v := range series {
			scaled[d] = int64(float64(v) * ratio)
		}
		out[i] = scaled
	}
	return out
}

func writeWideCSV(path string, days int, series [][]int64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{"Province/State", "Country/Region", "Lat", "Long"}
	for d := 0; d < days; d++ {
		header = append(header, baseDate.AddDate(0, 0, d).Format(domain.DateLayout))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, reg := range regions {
		row := []string{
			reg.subregion,
			reg.country,
			fmt.Sprintf("%.4f", reg.lat),
			fmt.Sprintf("%.4f", reg.lon),
		}
		for d := 0; d < days; d++ {
			row = append(row, fmt.Sprintf("%d", series[i][d]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
