package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func long(country, subregion string, dayN int, value int64) LongRecord {
	return LongRecord{Country: country, Subregion: subregion, Date: day(dayN), Value: value}
}

func TestMerge(t *testing.T) {
	t.Run("downward correction clips to zero", func(t *testing.T) {
		// One subregion, cumulative cases [10, 10, 15, 12], no deaths or
		// recovered data at all.
		confirmed := []LongRecord{
			long("Nation1", "Alpha", 0, 10),
			long("Nation1", "Alpha", 1, 10),
			long("Nation1", "Alpha", 2, 15),
			long("Nation1", "Alpha", 3, 12),
		}

		bundle, err := Merge(confirmed, nil, nil)
		require.NoError(t, err)
		require.Len(t, bundle.Raw, 4)

		wantNew := []int64{0, 0, 5, 0}
		for i, r := range bundle.Raw {
			assert.Equal(t, wantNew[i], r.NewCases, "day %d", i)
			assert.Equal(t, int64(0), r.TotalDeaths, "day %d", i)
			assert.Equal(t, int64(0), r.TotalRecovered, "day %d", i)
			assert.Equal(t, int64(0), r.NewDeaths, "day %d", i)
		}
	})

	t.Run("left-joins deaths and recovered on confirmed", func(t *testing.T) {
		confirmed := []LongRecord{
			long("Nation1", "", 0, 100),
			long("Nation1", "", 1, 150),
		}
		deaths := []LongRecord{
			long("Nation1", "", 0, 5),
			// Day 1 missing: defaults to 0, not an error.
		}
		recovered := []LongRecord{
			long("Nation1", "", 1, 20),
		}

		bundle, err := Merge(confirmed, deaths, recovered)
		require.NoError(t, err)
		require.Len(t, bundle.Raw, 2)

		assert.Equal(t, int64(5), bundle.Raw[0].TotalDeaths)
		assert.Equal(t, int64(0), bundle.Raw[0].TotalRecovered)
		assert.Equal(t, int64(0), bundle.Raw[1].TotalDeaths)
		assert.Equal(t, int64(20), bundle.Raw[1].TotalRecovered)
	})

	t.Run("unmatched deaths rows do not create records", func(t *testing.T) {
		confirmed := []LongRecord{long("Nation1", "", 0, 1)}
		deaths := []LongRecord{long("Nation2", "", 0, 7)}

		bundle, err := Merge(confirmed, deaths, nil)
		require.NoError(t, err)
		require.Len(t, bundle.Raw, 1, "confirmed is the anchor table")
		assert.Equal(t, "Nation1", bundle.Raw[0].Country)
	})

	t.Run("deltas stay within their series group", func(t *testing.T) {
		confirmed := []LongRecord{
			long("Nation1", "Alpha", 0, 100),
			long("Nation1", "Alpha", 1, 110),
			long("Nation1", "Beta", 0, 50),
			long("Nation1", "Beta", 1, 55),
			long("Nation2", "", 0, 1000),
		}

		bundle, err := Merge(confirmed, nil, nil)
		require.NoError(t, err)

		byKey := map[string]MergedRecord{}
		for _, r := range bundle.Raw {
			byKey[r.Country+"|"+r.Subregion+"|"+r.Date.Format("01-02")] = r
		}

		assert.Equal(t, int64(0), byKey["Nation1|Alpha|01-22"].NewCases, "first observation has no prior")
		assert.Equal(t, int64(10), byKey["Nation1|Alpha|01-23"].NewCases)
		assert.Equal(t, int64(0), byKey["Nation1|Beta|01-22"].NewCases, "group change resets the prior")
		assert.Equal(t, int64(5), byKey["Nation1|Beta|01-23"].NewCases)
		assert.Equal(t, int64(0), byKey["Nation2||01-22"].NewCases)
	})

	t.Run("aggregates sum subregions per country and countries globally", func(t *testing.T) {
		confirmed := []LongRecord{
			long("Nation1", "Alpha", 0, 100),
			long("Nation1", "Beta", 0, 50),
			long("Nation2", "", 0, 7),
		}
		deaths := []LongRecord{
			long("Nation1", "Alpha", 0, 10),
			long("Nation1", "Beta", 0, 4),
		}

		bundle, err := Merge(confirmed, deaths, nil)
		require.NoError(t, err)

		require.Len(t, bundle.ByCountry, 2)
		assert.Equal(t, "Nation1", bundle.ByCountry[0].Country)
		assert.Equal(t, int64(150), bundle.ByCountry[0].TotalCases)
		assert.Equal(t, int64(14), bundle.ByCountry[0].TotalDeaths)
		assert.Equal(t, int64(7), bundle.ByCountry[1].TotalCases)

		require.Len(t, bundle.Global, 1)
		assert.Equal(t, int64(157), bundle.Global[0].TotalCases)
		assert.Equal(t, int64(14), bundle.Global[0].TotalDeaths)

		assert.Equal(t, []string{"Nation1", "Nation2"}, bundle.Countries)
	})

	t.Run("deterministic regardless of input order", func(t *testing.T) {
		forward := []LongRecord{
			long("Nation2", "", 0, 5),
			long("Nation1", "Beta", 1, 20),
			long("Nation1", "Alpha", 0, 10),
			long("Nation1", "Beta", 0, 15),
			long("Nation1", "Alpha", 1, 12),
		}
		reversed := make([]LongRecord, len(forward))
		for i, r := range forward {
			reversed[len(forward)-1-i] = r
		}
		deaths := []LongRecord{long("Nation1", "Alpha", 1, 1)}

		a, err := Merge(forward, deaths, nil)
		require.NoError(t, err)
		b, err := Merge(reversed, deaths, nil)
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("empty input is an error", func(t *testing.T) {
		_, err := Merge(nil, nil, nil)
		require.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestMerge_TwoLevelConsistency(t *testing.T) {
	confirmed := []LongRecord{
		long("Nation1", "Alpha", 0, 100), long("Nation1", "Alpha", 1, 120),
		long("Nation1", "Beta", 0, 30), long("Nation1", "Beta", 1, 45),
		long("Nation2", "", 0, 500), long("Nation2", "", 1, 480), // correction
		long("Nation3", "", 0, 0), long("Nation3", "", 1, 9),
	}
	deaths := []LongRecord{
		long("Nation1", "Alpha", 0, 2), long("Nation1", "Alpha", 1, 3),
		long("Nation2", "", 0, 10), long("Nation2", "", 1, 12),
	}

	bundle, err := Merge(confirmed, deaths, nil)
	require.NoError(t, err)

	// Country aggregates equal the sum over that country's raw rows.
	for _, agg := range bundle.ByCountry {
		var sum int64
		for _, r := range bundle.Raw {
			if r.Country == agg.Country && r.Date.Equal(agg.Date) {
				sum += r.TotalCases
			}
		}
		assert.Equal(t, sum, agg.TotalCases, "%s at %s", agg.Country, agg.Date)
	}

	// Global aggregates equal the sum over the country aggregates.
	for _, g := range bundle.Global {
		var sum int64
		for _, agg := range bundle.ByCountry {
			if agg.Date.Equal(g.Date) {
				sum += agg.TotalCases
			}
		}
		assert.Equal(t, sum, g.TotalCases, "global at %s", g.Date)
	}

	// Clip invariant holds even though Nation2's series decreases.
	for _, r := range bundle.Raw {
		assert.GreaterOrEqual(t, r.NewCases, int64(0))
		assert.GreaterOrEqual(t, r.NewDeaths, int64(0))
	}
}
