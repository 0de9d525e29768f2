// Package jhu fetches the Johns Hopkins CSSE global time series CSVs.
package jhu

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

// Client retrieves the wide-format source tables over HTTP. It performs no
// caching and no retries — a failed fetch propagates as *domain.FetchError
// and the caller decides whether to re-run the pipeline.
type Client struct {
	urls       map[domain.Category]string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a fetcher for the given per-category source URLs. The
// timeout applies to each individual fetch, not the set.
func NewClient(urls map[domain.Category]string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		urls: urls,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchTable downloads and parses one category's wide CSV.
func (c *Client) FetchTable(ctx context.Context, category domain.Category) (domain.WideTable, error) {
	url, ok := c.urls[category]
	if !ok || url == "" {
		return domain.WideTable{}, &domain.FetchError{
			Category: category,
			Err:      fmt.Errorf("no source URL configured"),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.WideTable{}, &domain.FetchError{Category: category, Err: fmt.Errorf("create request: %w", err)}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WideTable{}, &domain.FetchError{Category: category, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.WideTable{}, &domain.FetchError{
			Category: category,
			Err:      fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url),
		}
	}

	reader := csv.NewReader(resp.Body)
	// Source rows are occasionally ragged; length mismatches are handled
	// during reshape rather than rejected here.
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return domain.WideTable{}, &domain.FetchError{Category: category, Err: fmt.Errorf("parse csv: %w", err)}
	}
	if len(rows) < 2 {
		return domain.WideTable{}, &domain.FetchError{
			Category: category,
			Err:      fmt.Errorf("no data rows in response"),
		}
	}

	c.logger.Debug("fetched source table",
		"category", category,
		"rows", len(rows)-1,
		"columns", len(rows[0]),
		"duration", time.Since(start),
	)

	return domain.WideTable{
		Category: category,
		Headers:  rows[0],
		Rows:     rows[1:],
	}, nil
}
