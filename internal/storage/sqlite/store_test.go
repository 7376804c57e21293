package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/giftdraw/internal/gacha"
	"github.com/xtding233/giftdraw/internal/game"
	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/users"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "giftdraw.sqlite")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStatsRoundTrip(t *testing.T) {
	store, path := openTempStore(t)
	ctx := context.Background()

	_, err := store.LoadStats(ctx, "p1")
	require.ErrorIs(t, err, stats.ErrNotFound)

	want := stats.PlayerStats{
		TotalDraws:              4,
		DrawsSinceQualifyingWin: 4,
		TotalStaked:             100,
		TotalAwardedValue:       60,
		ItemCounts:              map[string]int64{"heart": 4},
	}
	require.NoError(t, store.SaveStats(ctx, "p1", want))
	want.TotalDraws, want.DrawsSinceQualifyingWin = 5, 0
	want.ItemCounts["diamond"] = 1
	require.NoError(t, store.SaveStats(ctx, "p1", want))

	got, err := store.LoadStats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// migrations are idempotent and data survives a reopen
	require.NoError(t, store.Close())
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err = reopened.LoadStats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestForEachStatsOrdered(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.SaveStats(ctx, id, stats.PlayerStats{TotalDraws: 1, ItemCounts: map[string]int64{"rose": 1}}))
	}
	var ids []string
	require.NoError(t, store.ForEachStats(ctx, func(id string, st stats.PlayerStats) error {
		ids = append(ids, id)
		assert.EqualValues(t, 1, st.ItemCounts["rose"])
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestUsersRoundTrip(t *testing.T) {
	store, _ := openTempStore(t)
	ctx := context.Background()
	joined := time.Date(2025, 5, 2, 10, 30, 0, 0, time.UTC)

	require.NoError(t, store.PutUser(ctx, users.User{ID: "1", Username: "a", Status: users.StatusActive, JoinedAt: joined}))
	require.NoError(t, store.PutUser(ctx, users.User{ID: "1", Username: "a", Status: users.StatusRemoved, JoinedAt: joined}))

	u, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, users.StatusRemoved, u.Status)
	assert.True(t, u.JoinedAt.Equal(joined))

	_, err = store.GetUser(ctx, "2")
	assert.ErrorIs(t, err, users.ErrNotFound)

	all, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEngineOverSQLite(t *testing.T) {
	store, _ := openTempStore(t)
	rules, err := game.DefaultRules()
	require.NoError(t, err)
	e, err := gacha.NewEngine(rules, store, gacha.WithRNG(gacha.NewSeededRNG(1)))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_, err := e.Draw(ctx, "p", "premium")
		require.NoError(t, err)
	}
	st, err := store.LoadStats(ctx, "p")
	require.NoError(t, err)
	assert.EqualValues(t, 25, st.TotalDraws)
	assert.NoError(t, st.Validate())
}

func newMockEngine(t *testing.T) (*gacha.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rules, err := game.DefaultRules()
	require.NoError(t, err)
	e, err := gacha.NewEngine(rules, New(db), gacha.WithRNG(gacha.NewSeededRNG(2)))
	require.NoError(t, err)
	return e, mock
}

func TestSaveFailureSurfacesAsStoreUnavailable(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT total_draws").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"total_draws", "draws_since_qualifying_win", "total_staked", "total_awarded_value", "item_counts"}))
	mock.ExpectExec("INSERT INTO player_stats").WillReturnError(errors.New("database is locked"))

	_, err := e.Draw(context.Background(), "p1", "basic")
	require.ErrorIs(t, err, gacha.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "database is locked")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadFailureSurfacesAsStoreUnavailable(t *testing.T) {
	e, mock := newMockEngine(t)

	mock.ExpectQuery("SELECT total_draws").WillReturnError(errors.New("disk I/O error"))

	_, err := e.Draw(context.Background(), "p1", "basic")
	require.ErrorIs(t, err, gacha.ErrStoreUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDecodesStoredRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT total_draws").
		WithArgs("p9").
		WillReturnRows(sqlmock.NewRows([]string{"total_draws", "draws_since_qualifying_win", "total_staked", "total_awarded_value", "item_counts"}).
			AddRow(2, 1, 50, 65, `{"bear":1,"cake":1}`))

	st, err := New(db).LoadStats(context.Background(), "p9")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"bear": 1, "cake": 1}, st.ItemCounts)
	assert.EqualValues(t, 65, st.TotalAwardedValue)
}
