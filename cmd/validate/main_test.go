package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/covid-data-service/internal/domain"
)

func TestValidateReshapeCounts_PaddedDateHeaders(t *testing.T) {
	// Sources occasionally pad header cells; the count check must apply the
	// same trim rule the reshaper does or it reports a false failure.
	table := domain.WideTable{
		Category: domain.CategoryConfirmed,
		Headers:  []string{"Province/State", "Country/Region", "Lat", "Long", " 1/22/20", "1/23/20 "},
		Rows: [][]string{
			{"", "Nation1", "1.0", "2.0", "5", "9"},
		},
	}
	records, err := domain.Reshape(table)
	require.NoError(t, err)
	require.Len(t, records, 2)

	p := validateReshapeCounts(
		map[domain.Category]domain.WideTable{domain.CategoryConfirmed: table},
		map[domain.Category][]domain.LongRecord{domain.CategoryConfirmed: records},
	)
	assert.True(t, p.passed(), "unexpected failures: %v", p.errors)
}
