// Package stats holds the per-player draw record and the store contract used to
// load and persist it.
package stats

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a player has no persisted record.
var ErrNotFound = errors.New("stats not found")

// PlayerStats is the accumulated draw history of one player.
type PlayerStats struct {
	TotalDraws              int64            `json:"total_draws"`
	DrawsSinceQualifyingWin int64            `json:"draws_since_qualifying_win"`
	TotalStaked             int64            `json:"total_staked"`
	TotalAwardedValue       int64            `json:"total_awarded_value"`
	ItemCounts              map[string]int64 `json:"item_counts"`
}

// Store loads and persists player records. LoadStats returns ErrNotFound for
// players that never drew.
type Store interface {
	LoadStats(ctx context.Context, playerID string) (PlayerStats, error)
	SaveStats(ctx context.Context, playerID string, s PlayerStats) error
	ForEachStats(ctx context.Context, fn func(playerID string, s PlayerStats) error) error
}

// Clone returns a deep copy; ItemCounts is never nil on the copy.
func (s PlayerStats) Clone() PlayerStats {
	out := s
	out.ItemCounts = make(map[string]int64, len(s.ItemCounts))
	for k, v := range s.ItemCounts {
		out.ItemCounts[k] = v
	}
	return out
}

// Record returns the record after one draw that cost cost and awarded item
// worth value. The receiver is not modified.
func (s PlayerStats) Record(item string, cost, value int64) PlayerStats {
	out := s.Clone()
	out.TotalDraws++
	out.TotalStaked += cost
	out.TotalAwardedValue += value
	out.ItemCounts[item]++
	if value >= cost {
		out.DrawsSinceQualifyingWin = 0
	} else {
		out.DrawsSinceQualifyingWin++
	}
	return out
}

// TallySum is the sum of all item counts.
func (s PlayerStats) TallySum() int64 {
	var sum int64
	for _, n := range s.ItemCounts {
		sum += n
	}
	return sum
}

// Validate checks the record invariants.
func (s PlayerStats) Validate() error {
	switch {
	case s.TotalDraws < 0, s.DrawsSinceQualifyingWin < 0, s.TotalStaked < 0, s.TotalAwardedValue < 0:
		return fmt.Errorf("negative counter in stats")
	case s.DrawsSinceQualifyingWin > s.TotalDraws:
		return fmt.Errorf("streak %d exceeds total draws %d", s.DrawsSinceQualifyingWin, s.TotalDraws)
	}
	for item, n := range s.ItemCounts {
		if n < 0 {
			return fmt.Errorf("negative count for item %q", item)
		}
	}
	if sum := s.TallySum(); sum != s.TotalDraws {
		return fmt.Errorf("item tally %d does not match total draws %d", sum, s.TotalDraws)
	}
	return nil
}

// Normalize repairs a record read from an untrusted source: negatives are
// clamped to zero, TotalDraws is set to the item tally and the streak is capped
// at TotalDraws.
func (s PlayerStats) Normalize() PlayerStats {
	out := s.Clone()
	for item, n := range out.ItemCounts {
		if n <= 0 {
			delete(out.ItemCounts, item)
		}
	}
	out.TotalDraws = out.TallySum()
	if out.DrawsSinceQualifyingWin < 0 {
		out.DrawsSinceQualifyingWin = 0
	}
	if out.DrawsSinceQualifyingWin > out.TotalDraws {
		out.DrawsSinceQualifyingWin = out.TotalDraws
	}
	if out.TotalStaked < 0 {
		out.TotalStaked = 0
	}
	if out.TotalAwardedValue < 0 {
		out.TotalAwardedValue = 0
	}
	return out
}
