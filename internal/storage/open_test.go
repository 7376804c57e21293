package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/giftdraw/internal/stats"
)

func TestOpenDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"memory": "",
		"bbolt":  filepath.Join(dir, "stats.db"),
		"sqlite": filepath.Join(dir, "stats.sqlite"),
	}
	for driver, path := range cases {
		t.Run(driver, func(t *testing.T) {
			st, err := Open(driver, path)
			require.NoError(t, err)
			defer st.Close()

			ctx := context.Background()
			want := stats.PlayerStats{TotalDraws: 1, TotalStaked: 25, TotalAwardedValue: 15, DrawsSinceQualifyingWin: 1, ItemCounts: map[string]int64{"heart": 1}}
			require.NoError(t, st.SaveStats(ctx, "p1", want))
			got, err := st.LoadStats(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestOpenCreatesMissingDirectory(t *testing.T) {
	for _, driver := range []string{"bbolt", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data", "nested", "giftdraw.db")
			st, err := Open(driver, path)
			require.NoError(t, err)
			require.NoError(t, st.Close())
			assert.FileExists(t, path)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("redis", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}
