// Package users keeps the registry of bot users: who joined, and who removed
// the bot since.
package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a user id is unknown.
var ErrNotFound = errors.New("user not found")

type Status string

const (
	StatusActive  Status = "active"
	StatusRemoved Status = "removed"
)

type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Status   Status    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// Store persists users.
type Store interface {
	PutUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Counts summarizes the registry.
type Counts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Removed int `json:"removed"`
}

// Registry applies join/leave semantics on top of a Store.
type Registry struct {
	store Store
	now   func() time.Time
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// Add registers id as active, refreshing the username and the join time.
func (r *Registry) Add(ctx context.Context, id, username string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, fmt.Errorf("user id is required")
	}
	u := User{
		ID:       id,
		Username: strings.TrimSpace(username),
		Status:   StatusActive,
		JoinedAt: r.now().UTC(),
	}
	if err := r.store.PutUser(ctx, u); err != nil {
		return User{}, fmt.Errorf("put user: %w", err)
	}
	return u, nil
}

// Remove marks id as removed. Unknown ids are a no-op.
func (r *Registry) Remove(ctx context.Context, id string) error {
	u, err := r.store.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	u.Status = StatusRemoved
	if err := r.store.PutUser(ctx, u); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// List returns all users ordered by join time.
func (r *Registry) List(ctx context.Context) ([]User, error) {
	all, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].JoinedAt.Equal(all[j].JoinedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].JoinedAt.Before(all[j].JoinedAt)
	})
	return all, nil
}

// Active returns the users that still have the bot.
func (r *Registry) Active(ctx context.Context) ([]User, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, u := range all {
		if u.Status == StatusActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *Registry) Counts(ctx context.Context) (Counts, error) {
	all, err := r.store.ListUsers(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("list users: %w", err)
	}
	c := Counts{Total: len(all)}
	for _, u := range all {
		switch u.Status {
		case StatusActive:
			c.Active++
		case StatusRemoved:
			c.Removed++
		}
	}
	return c, nil
}

// ActiveIDs returns the ids of active users in join order.
func (r *Registry) ActiveIDs(ctx context.Context) ([]string, error) {
	active, err := r.Active(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(active))
	for i, u := range active {
		ids[i] = u.ID
	}
	return ids, nil
}
