package gacha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xtding233/giftdraw/internal/stats"
)

// ErrInvalidPlayer is returned for an empty player id.
var ErrInvalidPlayer = errors.New("player id is required")

// Observer receives draw telemetry.
type Observer interface {
	ObserveDraw(tier Tier, item Item, boost float64, elapsed time.Duration)
	ObserveDrawError(tier Tier, reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveDraw(Tier, Item, float64, time.Duration) {}
func (nopObserver) ObserveDrawError(Tier, string)                  {}

// Result is one completed and persisted draw.
type Result struct {
	DrawID   string            `json:"draw_id"`
	PlayerID string            `json:"player_id"`
	Tier     Tier              `json:"tier"`
	Cost     int64             `json:"cost"`
	Item     Item              `json:"item"`
	Value    int64             `json:"value"`
	Boost    float64           `json:"boost"`
	Stats    stats.PlayerStats `json:"stats"`
}

// Engine runs draws against persisted player records, one at a time per
// player.
type Engine struct {
	rules    *Rules
	store    stats.Store
	rng      RandomSource
	log      logrus.FieldLogger
	observer Observer
	newID    func() string
	locks    *playerLocks
}

type Option func(*Engine)

func WithRNG(rng RandomSource) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithIDGenerator replaces the uuid draw id source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(rules *Rules, store stats.Store, opts ...Option) (*Engine, error) {
	if rules == nil {
		return nil, fmt.Errorf("rules are required")
	}
	if store == nil {
		return nil, fmt.Errorf("stats store is required")
	}
	e := &Engine{
		rules:    rules,
		store:    store,
		observer: nopObserver{},
		newID:    func() string { return uuid.NewString() },
		locks:    newPlayerLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = DefaultRNG()
	}
	if e.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.log = l
	}
	return e, nil
}

func (e *Engine) Rules() *Rules { return e.rules }

// Spin is the pure draw step: sample t under the boost implied by current
// and return the outcome, the boost used and the updated record.
func Spin(t TierTable, catalog *Catalog, current stats.PlayerStats, rng RandomSource) (Item, stats.PlayerStats, float64, error) {
	boost := BoostFactor(current.DrawsSinceQualifyingWin)
	items := make([]Item, len(t.Entries))
	for i, entry := range t.Entries {
		items[i] = entry.Item
	}
	s, err := NewSampler(items, EffectiveWeights(t, boost))
	if err != nil {
		return "", current, boost, fmt.Errorf("tier %q: %w", t.Tier, err)
	}
	item := s.Pick(rng)
	next := current.Record(string(item), t.Cost, catalog.Value(item))
	return item, next, boost, nil
}

// Draw performs one paid draw for playerID on tier and persists the result.
// Once the player's lock is held the draw runs to completion regardless of
// ctx: it either saves the full record or fails leaving the stored one as is.
func (e *Engine) Draw(ctx context.Context, playerID string, tier Tier) (Result, error) {
	start := time.Now()
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return Result{}, ErrInvalidPlayer
	}
	table, err := e.rules.Table(tier)
	if err != nil {
		e.observer.ObserveDrawError(tier, "invalid_tier")
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	unlock := e.locks.lock(playerID)
	defer unlock()
	ctx = context.WithoutCancel(ctx)

	current, err := e.load(ctx, playerID)
	if err != nil {
		e.observer.ObserveDrawError(tier, "store_load")
		return Result{}, err
	}

	item, next, boost, err := Spin(table, e.rules.Catalog, current, e.rng)
	if err != nil {
		e.observer.ObserveDrawError(tier, "malformed_table")
		return Result{}, err
	}

	if err := e.store.SaveStats(ctx, playerID, next); err != nil {
		e.observer.ObserveDrawError(tier, "store_save")
		return Result{}, fmt.Errorf("%w: save %s: %w", ErrStoreUnavailable, playerID, err)
	}

	res := Result{
		DrawID:   e.newID(),
		PlayerID: playerID,
		Tier:     tier,
		Cost:     table.Cost,
		Item:     item,
		Value:    e.rules.Catalog.Value(item),
		Boost:    boost,
		Stats:    next,
	}
	elapsed := time.Since(start)
	e.observer.ObserveDraw(tier, item, boost, elapsed)
	e.log.WithFields(logrus.Fields{
		"draw_id":   res.DrawID,
		"player_id": playerID,
		"tier":      tier,
		"item":      item,
		"boost":     boost,
		"streak":    next.DrawsSinceQualifyingWin,
	}).Info("draw completed")
	return res, nil
}

// Stats returns the player's record, all-zero if the player never drew.
func (e *Engine) Stats(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return stats.PlayerStats{}, ErrInvalidPlayer
	}
	return e.load(ctx, playerID)
}

// Animation returns the reveal sequence for a drawn item.
func (e *Engine) Animation(final Item) []Item {
	return AnimationSequence(final, e.rules.Catalog, e.rng)
}

func (e *Engine) load(ctx context.Context, playerID string) (stats.PlayerStats, error) {
	st, err := e.store.LoadStats(ctx, playerID)
	switch {
	case errors.Is(err, stats.ErrNotFound):
		return stats.PlayerStats{ItemCounts: map[string]int64{}}, nil
	case err != nil:
		return stats.PlayerStats{}, fmt.Errorf("%w: load %s: %w", ErrStoreUnavailable, playerID, err)
	}
	if st.ItemCounts == nil {
		st.ItemCounts = map[string]int64{}
	}
	return st, nil
}
