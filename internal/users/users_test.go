package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	m       map[string]User
	failPut error
}

func (s *mapStore) PutUser(_ context.Context, u User) error {
	if s.failPut != nil {
		return s.failPut
	}
	s.m[u.ID] = u
	return nil
}

func (s *mapStore) GetUser(_ context.Context, id string) (User, error) {
	u, ok := s.m[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *mapStore) ListUsers(context.Context) ([]User, error) {
	out := make([]User, 0, len(s.m))
	for _, u := range s.m {
		out = append(out, u)
	}
	return out, nil
}

func newTestRegistry() (*Registry, *mapStore) {
	store := &mapStore{m: map[string]User{}}
	r := NewRegistry(store)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return r, store
}

func TestRegistryJoinLeave(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry()

	_, err := r.Add(ctx, "100", " alice ")
	require.NoError(t, err)
	_, err = r.Add(ctx, "200", "bob")
	require.NoError(t, err)
	_, err = r.Add(ctx, "300", "")
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, "200"))
	require.NoError(t, r.Remove(ctx, "999"), "unknown ids are ignored")

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"100", "200", "300"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, StatusRemoved, all[1].Status)

	active, err := r.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 3, Active: 2, Removed: 1}, c)
}

func TestRegistryRejoinReactivates(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry()

	_, err := r.Add(ctx, "1", "x")
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, "1"))
	u, err := r.Add(ctx, "1", "x2")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, store.m["1"].Status)
	assert.Equal(t, "x2", store.m["1"].Username)
	assert.Equal(t, u.JoinedAt, store.m["1"].JoinedAt)
}

func TestRegistryErrors(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRegistry()

	_, err := r.Add(ctx, "  ", "nobody")
	assert.Error(t, err)

	store.failPut = errors.New("read only")
	_, err = r.Add(ctx, "1", "x")
	assert.ErrorContains(t, err, "read only")
}
