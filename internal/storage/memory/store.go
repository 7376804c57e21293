// Package memory provides a process-local store for player stats and users.
// Nothing survives a restart; it backs tests and the "memory" store driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/users"
)

// Store implements stats.Store and users.Store.
type Store struct {
	mu      sync.Mutex
	stats   map[string]stats.PlayerStats
	users   map[string]users.User
	nextErr map[string]error
}

func New() *Store {
	return &Store{
		stats:   make(map[string]stats.PlayerStats),
		users:   make(map[string]users.User),
		nextErr: make(map[string]error),
	}
}

// FailNext makes the next call of op ("load", "save", "foreach", "put_user",
// "get_user", "list_users") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextErr[op] = err
}

func (s *Store) takeErr(op string) error {
	if err, ok := s.nextErr[op]; ok {
		delete(s.nextErr, op)
		return err
	}
	return nil
}

func (s *Store) LoadStats(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return stats.PlayerStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("load"); err != nil {
		return stats.PlayerStats{}, err
	}
	st, ok := s.stats[playerID]
	if !ok {
		return stats.PlayerStats{}, stats.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *Store) SaveStats(ctx context.Context, playerID string, st stats.PlayerStats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("save"); err != nil {
		return err
	}
	s.stats[playerID] = st.Clone()
	return nil
}

func (s *Store) ForEachStats(ctx context.Context, fn func(string, stats.PlayerStats) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if err := s.takeErr("foreach"); err != nil {
		s.mu.Unlock()
		return err
	}
	ids := make([]string, 0, len(s.stats))
	for id := range s.stats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snapshot := make([]stats.PlayerStats, len(ids))
	for i, id := range ids {
		snapshot[i] = s.stats[id].Clone()
	}
	s.mu.Unlock()

	for i, id := range ids {
		if err := fn(id, snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) PutUser(ctx context.Context, u users.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("put_user"); err != nil {
		return err
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (users.User, error) {
	if err := ctx.Err(); err != nil {
		return users.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("get_user"); err != nil {
		return users.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeErr("list_users"); err != nil {
		return nil, err
	}
	out := make([]users.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

// Close is a no-op so the memory store satisfies the same lifecycle as the
// on-disk drivers.
func (s *Store) Close() error { return nil }
