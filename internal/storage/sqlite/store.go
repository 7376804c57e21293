// Package sqlite provides a SQLite-backed stats and users store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/storage/sqlite/migrations"
	"github.com/xtding233/giftdraw/internal/users"
)

// Store persists player stats and users in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return New(sqlDB), nil
}

// New wraps an already migrated handle.
func New(db *sql.DB) *Store {
	return &Store{sqlDB: db, now: time.Now}
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadStats returns the record of playerID or stats.ErrNotFound.
func (s *Store) LoadStats(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return stats.PlayerStats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return stats.PlayerStats{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(playerID) == "" {
		return stats.PlayerStats{}, fmt.Errorf("player id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT total_draws, draws_since_qualifying_win, total_staked, total_awarded_value, item_counts
		 FROM player_stats WHERE player_id = ?`,
		playerID,
	)
	st, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return stats.PlayerStats{}, stats.ErrNotFound
	}
	if err != nil {
		return stats.PlayerStats{}, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}

// SaveStats upserts the full record of playerID in one statement.
func (s *Store) SaveStats(ctx context.Context, playerID string, st stats.PlayerStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(playerID) == "" {
		return fmt.Errorf("player id is required")
	}
	counts := st.ItemCounts
	if counts == nil {
		counts = map[string]int64{}
	}
	payload, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal item counts: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO player_stats (
		   player_id,
		   total_draws,
		   draws_since_qualifying_win,
		   total_staked,
		   total_awarded_value,
		   item_counts,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET
		   total_draws = excluded.total_draws,
		   draws_since_qualifying_win = excluded.draws_since_qualifying_win,
		   total_staked = excluded.total_staked,
		   total_awarded_value = excluded.total_awarded_value,
		   item_counts = excluded.item_counts,
		   updated_at = excluded.updated_at`,
		playerID,
		st.TotalDraws,
		st.DrawsSinceQualifyingWin,
		st.TotalStaked,
		st.TotalAwardedValue,
		string(payload),
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("put stats: %w", err)
	}
	return nil
}

// ForEachStats visits every record ordered by player id.
func (s *Store) ForEachStats(ctx context.Context, fn func(string, stats.PlayerStats) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT player_id, total_draws, draws_since_qualifying_win, total_staked, total_awarded_value, item_counts
		 FROM player_stats ORDER BY player_id`,
	)
	if err != nil {
		return fmt.Errorf("list stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var counts string
		var st stats.PlayerStats
		if err := rows.Scan(&id, &st.TotalDraws, &st.DrawsSinceQualifyingWin, &st.TotalStaked, &st.TotalAwardedValue, &counts); err != nil {
			return fmt.Errorf("scan stats: %w", err)
		}
		if err := decodeCounts(counts, &st); err != nil {
			return err
		}
		if err := fn(id, st); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate stats: %w", err)
	}
	return nil
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(ctx context.Context, u users.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, username, status, joined_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   username = excluded.username,
		   status = excluded.status,
		   joined_at = excluded.joined_at`,
		u.ID, u.Username, string(u.Status), toMillis(u.JoinedAt),
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns one user or users.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (users.User, error) {
	if err := ctx.Err(); err != nil {
		return users.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return users.User{}, fmt.Errorf("storage is not configured")
	}
	var (
		u      users.User
		status string
		joined int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, username, status, joined_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &status, &joined)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Status = users.Status(status)
	u.JoinedAt = fromMillis(joined)
	return u, nil
}

// ListUsers returns every user.
func (s *Store) ListUsers(ctx context.Context) ([]users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, username, status, joined_at FROM users ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []users.User
	for rows.Next() {
		var (
			u      users.User
			status string
			joined int64
		)
		if err := rows.Scan(&u.ID, &u.Username, &status, &joined); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Status = users.Status(status)
		u.JoinedAt = fromMillis(joined)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func scanStats(row *sql.Row) (stats.PlayerStats, error) {
	var st stats.PlayerStats
	var counts string
	if err := row.Scan(&st.TotalDraws, &st.DrawsSinceQualifyingWin, &st.TotalStaked, &st.TotalAwardedValue, &counts); err != nil {
		return stats.PlayerStats{}, err
	}
	if err := decodeCounts(counts, &st); err != nil {
		return stats.PlayerStats{}, err
	}
	return st, nil
}

func decodeCounts(raw string, st *stats.PlayerStats) error {
	st.ItemCounts = map[string]int64{}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &st.ItemCounts); err != nil {
		return fmt.Errorf("decode item counts: %w", err)
	}
	return nil
}
