// Package bbolt stores player stats and users in a single BoltDB file. Every
// save is one bolt transaction, so a record is either fully written or left
// as it was.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/users"
)

const (
	statsBucket = "stats"
	usersBucket = "users"
)

// Store provides a BoltDB-backed stats and users store.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadStats fetches the record of playerID or stats.ErrNotFound.
func (s *Store) LoadStats(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return stats.PlayerStats{}, err
	}
	if s == nil || s.db == nil {
		return stats.PlayerStats{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(playerID) == "" {
		return stats.PlayerStats{}, fmt.Errorf("player id is required")
	}

	var st stats.PlayerStats
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statsBucket))
		if bucket == nil {
			return fmt.Errorf("stats bucket is missing")
		}
		payload := bucket.Get([]byte(playerID))
		if payload == nil {
			return stats.ErrNotFound
		}
		if err := json.Unmarshal(payload, &st); err != nil {
			return fmt.Errorf("unmarshal stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return stats.PlayerStats{}, err
	}
	if st.ItemCounts == nil {
		st.ItemCounts = map[string]int64{}
	}
	return st, nil
}

// SaveStats replaces the record of playerID.
func (s *Store) SaveStats(ctx context.Context, playerID string, st stats.PlayerStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(playerID) == "" {
		return fmt.Errorf("player id is required")
	}

	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statsBucket))
		if bucket == nil {
			return fmt.Errorf("stats bucket is missing")
		}
		return bucket.Put([]byte(playerID), payload)
	})
}

// ForEachStats visits every record in key order inside one read transaction.
func (s *Store) ForEachStats(ctx context.Context, fn func(string, stats.PlayerStats) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(statsBucket))
		if bucket == nil {
			return fmt.Errorf("stats bucket is missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var st stats.PlayerStats
			if err := json.Unmarshal(v, &st); err != nil {
				return fmt.Errorf("unmarshal stats %s: %w", k, err)
			}
			if st.ItemCounts == nil {
				st.ItemCounts = map[string]int64{}
			}
			return fn(string(k), st)
		})
	})
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(ctx context.Context, u users.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		return bucket.Put([]byte(u.ID), payload)
	})
}

// GetUser fetches a user or users.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (users.User, error) {
	if err := ctx.Err(); err != nil {
		return users.User{}, err
	}
	if s == nil || s.db == nil {
		return users.User{}, fmt.Errorf("storage is not configured")
	}

	var u users.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return users.ErrNotFound
		}
		if err := json.Unmarshal(payload, &u); err != nil {
			return fmt.Errorf("unmarshal user: %w", err)
		}
		return nil
	})
	if err != nil {
		return users.User{}, err
	}
	return u, nil
}

// ListUsers returns every stored user.
func (s *Store) ListUsers(ctx context.Context) ([]users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var out []users.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersBucket))
		if bucket == nil {
			return fmt.Errorf("users bucket is missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			var u users.User
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("unmarshal user: %w", err)
			}
			out = append(out, u)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{statsBucket, usersBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
