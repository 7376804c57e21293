// Package legacy imports the JSON files written by the original roulette bot
// (stats.json and users.json) into a store.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/storage"
	"github.com/xtding233/giftdraw/internal/users"
)

// joinedAtLayout is the bot's "%d.%m.%Y %H:%M:%S" timestamp.
const joinedAtLayout = "02.01.2006 15:04:05"

// Record is one player entry of stats.json. Unknown fields are ignored and
// missing ones stay zero.
type Record struct {
	TotalSpins      int64            `json:"total_spins"`
	SpinsWithoutWin int64            `json:"spins_without_win"`
	TotalSpent      int64            `json:"total_spent"`
	TotalWon        int64            `json:"total_won"`
	Gifts           map[string]int64 `json:"gifts"`
}

// Stats converts the record and repairs it so that it satisfies the
// PlayerStats invariants. repaired reports whether anything changed.
func (r Record) Stats() (st stats.PlayerStats, repaired bool) {
	raw := stats.PlayerStats{
		TotalDraws:              r.TotalSpins,
		DrawsSinceQualifyingWin: r.SpinsWithoutWin,
		TotalStaked:             r.TotalSpent,
		TotalAwardedValue:       r.TotalWon,
		ItemCounts:              r.Gifts,
	}
	st = raw.Normalize()
	return st, raw.Validate() != nil
}

// UserRecord is one entry of users.json.
type UserRecord struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	JoinedAt string `json:"joined_at"`
}

// User converts the record; an unreadable timestamp becomes the zero time.
func (u UserRecord) User(id string, loc *time.Location) users.User {
	status := users.StatusActive
	if strings.EqualFold(u.Status, string(users.StatusRemoved)) {
		status = users.StatusRemoved
	}
	joined, err := time.ParseInLocation(joinedAtLayout, strings.TrimSpace(u.JoinedAt), loc)
	if err != nil {
		joined = time.Time{}
	}
	return users.User{ID: id, Username: u.Username, Status: status, JoinedAt: joined.UTC()}
}

// DecodeStats reads a stats.json document keyed by player id.
func DecodeStats(r io.Reader) (map[string]Record, error) {
	out := map[string]Record{}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return out, nil
}

// DecodeUsers reads a users.json document keyed by user id.
func DecodeUsers(r io.Reader) (map[string]UserRecord, error) {
	out := map[string]UserRecord{}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

// Config controls one import run.
type Config struct {
	StatsPath   string
	UsersPath   string
	StoreDriver string
	StorePath   string
	Timezone    string
	DryRun      bool
}

// ParseConfig reads the importer flags from args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		StoreDriver: "bbolt",
		StorePath:   "data/giftdraw.db",
		Timezone:    "Europe/Moscow",
	}
	fs.StringVar(&cfg.StatsPath, "stats", "", "path to the bot's stats.json")
	fs.StringVar(&cfg.UsersPath, "users", "", "path to the bot's users.json")
	fs.StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "store driver (bbolt, sqlite)")
	fs.StringVar(&cfg.StorePath, "store", cfg.StorePath, "store path")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "timezone of joined_at timestamps")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "validate without writing to the store")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.StatsPath) == "" && strings.TrimSpace(cfg.UsersPath) == "" {
		return Config{}, errors.New("at least one of -stats or -users is required")
	}
	return cfg, nil
}

// Summary counts what an import did.
type Summary struct {
	Players  int
	Repaired int
	Users    int
}

// Target is where imported records are written.
type Target interface {
	stats.Store
	users.Store
}

// Import writes the decoded records to dst in player id order.
func Import(ctx context.Context, dst Target, records map[string]Record, userRecs map[string]UserRecord, loc *time.Location, log logrus.FieldLogger) (Summary, error) {
	var sum Summary
	for _, id := range sortedKeys(records) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		st, repaired := records[id].Stats()
		if repaired {
			sum.Repaired++
			log.WithField("player_id", id).Warn("repaired legacy stats record")
		}
		if dst != nil {
			if err := dst.SaveStats(ctx, id, st); err != nil {
				return sum, fmt.Errorf("save stats %s: %w", id, err)
			}
		}
		sum.Players++
	}
	for _, id := range sortedKeys(userRecs) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if dst != nil {
			if err := dst.PutUser(ctx, userRecs[id].User(id, loc)); err != nil {
				return sum, fmt.Errorf("put user %s: %w", id, err)
			}
		}
		sum.Users++
	}
	return sum, nil
}

// Run executes the importer using cfg and prints a summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer, log logrus.FieldLogger) error {
	if out == nil {
		out = io.Discard
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	var records map[string]Record
	if cfg.StatsPath != "" {
		if records, err = readFile(cfg.StatsPath, DecodeStats); err != nil {
			return err
		}
	}
	var userRecs map[string]UserRecord
	if cfg.UsersPath != "" {
		if userRecs, err = readFile(cfg.UsersPath, DecodeUsers); err != nil {
			return err
		}
	}

	var dst Target
	if !cfg.DryRun {
		st, err := storage.Open(cfg.StoreDriver, cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer func() {
			if err := st.Close(); err != nil {
				log.WithError(err).Warn("close store")
			}
		}()
		dst = st
	}

	sum, err := Import(ctx, dst, records, userRecs, loc, log)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "players: %d (repaired %d), users: %d, dry-run: %t\n", sum.Players, sum.Repaired, sum.Users, cfg.DryRun)
	return err
}

func readFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
