// Package pipeline orchestrates one fetch-reshape-merge run over the three
// source time series.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/covid-data-service/internal/domain"
	"github.com/couchcryptid/covid-data-service/internal/observability"
)

// Fetcher retrieves one category's wide source table.
type Fetcher interface {
	FetchTable(ctx context.Context, category domain.Category) (domain.WideTable, error)
}

// Pipeline runs the full transform: fetch the three categories concurrently,
// reshape each to long format, and merge into a DatasetBundle.
type Pipeline struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Pipeline with the given fetcher and observability.
func New(fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes one complete pipeline pass and returns a fresh bundle.
//
// The three fetches fan out concurrently and all join before reshaping
// begins. A confirmed or deaths failure aborts the run; a recovered failure
// (fetch or schema) is the degraded mode — the run continues and every merged
// row carries TotalRecovered = 0.
func (p *Pipeline) Run(ctx context.Context) (*domain.DatasetBundle, error) {
	start := time.Now()

	var confirmedTable, deathsTable, recoveredTable domain.WideTable
	var recoveredErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		confirmedTable, err = p.fetch(gctx, domain.CategoryConfirmed)
		return err
	})
	g.Go(func() error {
		var err error
		deathsTable, err = p.fetch(gctx, domain.CategoryDeaths)
		return err
	})
	g.Go(func() error {
		// Recovered is optional; capture the error instead of failing the group.
		recoveredTable, recoveredErr = p.fetch(gctx, domain.CategoryRecovered)
		return nil
	})
	if err := g.Wait(); err != nil {
		p.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	confirmed, err := domain.Reshape(confirmedTable)
	if err != nil {
		p.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	deaths, err := domain.Reshape(deathsTable)
	if err != nil {
		p.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var recovered []domain.LongRecord
	if recoveredErr == nil {
		recovered, recoveredErr = domain.Reshape(recoveredTable)
	}
	if recoveredErr != nil {
		p.logger.Warn("recovered series unavailable, filling with zeros", "error", recoveredErr)
		p.metrics.DegradedMode.Set(1)
		recovered = nil
	} else {
		p.metrics.DegradedMode.Set(0)
	}

	bundle, err := domain.Merge(confirmed, deaths, recovered)
	if err != nil {
		p.metrics.RefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("merge: %w", err)
	}

	p.metrics.RefreshTotal.WithLabelValues("success").Inc()
	p.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	p.metrics.DatasetRows.WithLabelValues("raw").Set(float64(len(bundle.Raw)))
	p.metrics.DatasetRows.WithLabelValues("by_country").Set(float64(len(bundle.ByCountry)))
	p.metrics.DatasetRows.WithLabelValues("global").Set(float64(len(bundle.Global)))

	p.logger.Info("pipeline run complete",
		"raw_rows", len(bundle.Raw),
		"countries", len(bundle.Countries),
		"dates", len(bundle.Global),
		"degraded", recoveredErr != nil,
		"duration", time.Since(start),
	)
	return bundle, nil
}

func (p *Pipeline) fetch(ctx context.Context, category domain.Category) (domain.WideTable, error) {
	start := time.Now()
	table, err := p.fetcher.FetchTable(ctx, category)
	p.metrics.FetchDuration.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.FetchRequests.WithLabelValues(string(category), "error").Inc()
		return domain.WideTable{}, err
	}
	p.metrics.FetchRequests.WithLabelValues(string(category), "success").Inc()
	return table, nil
}
