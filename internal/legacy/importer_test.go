package legacy

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/storage/memory"
	"github.com/xtding233/giftdraw/internal/users"
)

const statsJSON = `{
  "100": {"total_spins": 3, "spins_without_win": 2, "total_spent": 75, "total_won": 55,
          "gifts": {"heart": 2, "rose": 1}, "last_spin": "ignored"},
  "200": {"total_spins": 9, "spins_without_win": 12, "gifts": {"bear": 4}},
  "300": {}
}`

const usersJSON = `{
  "100": {"username": "alice", "status": "active", "joined_at": "05.03.2025 14:30:00"},
  "200": {"username": "bob", "status": "removed", "joined_at": "garbage"}
}`

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDecodeStatsToleratesMissingAndUnknownFields(t *testing.T) {
	recs, err := DecodeStats(strings.NewReader(statsJSON))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	st, repaired := recs["100"].Stats()
	assert.False(t, repaired)
	assert.Equal(t, stats.PlayerStats{
		TotalDraws:              3,
		DrawsSinceQualifyingWin: 2,
		TotalStaked:             75,
		TotalAwardedValue:       55,
		ItemCounts:              map[string]int64{"heart": 2, "rose": 1},
	}, st)

	st, repaired = recs["300"].Stats()
	assert.False(t, repaired)
	assert.Zero(t, st.TotalDraws)
	assert.NotNil(t, st.ItemCounts)
}

func TestRecordRepair(t *testing.T) {
	recs, err := DecodeStats(strings.NewReader(statsJSON))
	require.NoError(t, err)

	st, repaired := recs["200"].Stats()
	assert.True(t, repaired)
	assert.EqualValues(t, 4, st.TotalDraws)
	assert.EqualValues(t, 4, st.DrawsSinceQualifyingWin)
	require.NoError(t, st.Validate())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := DecodeStats(strings.NewReader(`[1,2]`))
	require.Error(t, err)
	_, err = DecodeUsers(strings.NewReader(`{`))
	require.Error(t, err)
}

func TestUserRecord(t *testing.T) {
	recs, err := DecodeUsers(strings.NewReader(usersJSON))
	require.NoError(t, err)

	u := recs["100"].User("100", time.UTC)
	assert.Equal(t, users.StatusActive, u.Status)
	assert.Equal(t, time.Date(2025, 3, 5, 14, 30, 0, 0, time.UTC), u.JoinedAt)

	u = recs["200"].User("200", time.UTC)
	assert.Equal(t, users.StatusRemoved, u.Status)
	assert.True(t, u.JoinedAt.IsZero())
}

func TestImportIntoStore(t *testing.T) {
	ctx := context.Background()
	recs, err := DecodeStats(strings.NewReader(statsJSON))
	require.NoError(t, err)
	userRecs, err := DecodeUsers(strings.NewReader(usersJSON))
	require.NoError(t, err)

	dst := memory.New()
	sum, err := Import(ctx, dst, recs, userRecs, time.UTC, quietLog())
	require.NoError(t, err)
	assert.Equal(t, Summary{Players: 3, Repaired: 1, Users: 2}, sum)

	st, err := dst.LoadStats(ctx, "100")
	require.NoError(t, err)
	assert.EqualValues(t, 55, st.TotalAwardedValue)

	list, err := dst.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestImportStopsOnStoreError(t *testing.T) {
	recs, err := DecodeStats(strings.NewReader(statsJSON))
	require.NoError(t, err)

	dst := memory.New()
	dst.FailNext("save", errors.New("disk full"))
	sum, err := Import(context.Background(), dst, recs, nil, time.UTC, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save stats 100")
	assert.Zero(t, sum.Players)
}

func TestParseConfig(t *testing.T) {
	_, err := ParseConfig(flag.NewFlagSet("import", flag.ContinueOnError), nil)
	require.Error(t, err)

	cfg, err := ParseConfig(flag.NewFlagSet("import", flag.ContinueOnError), []string{"-stats", "s.json", "-driver", "sqlite", "-dry-run"})
	require.NoError(t, err)
	assert.Equal(t, "s.json", cfg.StatsPath)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.True(t, cfg.DryRun)
}

func TestRunWritesBboltStore(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.json")
	usersPath := filepath.Join(dir, "users.json")
	require.NoError(t, os.WriteFile(statsPath, []byte(statsJSON), 0o600))
	require.NoError(t, os.WriteFile(usersPath, []byte(usersJSON), 0o600))

	var out bytes.Buffer
	err := Run(context.Background(), Config{
		StatsPath:   statsPath,
		UsersPath:   usersPath,
		StoreDriver: "bbolt",
		StorePath:   filepath.Join(dir, "giftdraw.db"),
		Timezone:    "UTC",
	}, &out, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "players: 3 (repaired 1), users: 2, dry-run: false\n", out.String())
}

func TestRunDryRunMissingFile(t *testing.T) {
	err := Run(context.Background(), Config{StatsPath: filepath.Join(t.TempDir(), "nope.json"), Timezone: "UTC", DryRun: true}, nil, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open ")
}
