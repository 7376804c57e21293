// Package admin builds the operator views: global draw economics across all
// players and the user roster.
package admin

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xtding233/giftdraw/internal/stats"
	"github.com/xtding233/giftdraw/internal/users"
)

// ItemTally is how many times one item was awarded overall.
type ItemTally struct {
	Item  string `json:"item"`
	Count int64  `json:"count"`
}

// GlobalStats aggregates every player record.
type GlobalStats struct {
	Players       int          `json:"players"`
	TotalDraws    int64        `json:"total_draws"`
	TotalStaked   int64        `json:"total_staked"`
	TotalAwarded  int64        `json:"total_awarded"`
	Profit        int64        `json:"profit"`
	ProfitPercent float64      `json:"profit_percent"`
	Items         []ItemTally  `json:"items"`
	Users         users.Counts `json:"users"`
}

// Service reads from the stats store and the user registry.
type Service struct {
	stats stats.Store
	users *users.Registry
}

func NewService(st stats.Store, reg *users.Registry) *Service {
	return &Service{stats: st, users: reg}
}

// Global sums all player records. Items are ordered by count, highest first,
// ties by name.
func (s *Service) Global(ctx context.Context) (GlobalStats, error) {
	var g GlobalStats
	counts := map[string]int64{}
	err := s.stats.ForEachStats(ctx, func(_ string, st stats.PlayerStats) error {
		g.Players++
		g.TotalDraws += st.TotalDraws
		g.TotalStaked += st.TotalStaked
		g.TotalAwarded += st.TotalAwardedValue
		for item, n := range st.ItemCounts {
			counts[item] += n
		}
		return nil
	})
	if err != nil {
		return GlobalStats{}, fmt.Errorf("aggregate stats: %w", err)
	}

	g.Profit = g.TotalStaked - g.TotalAwarded
	if g.TotalStaked > 0 {
		g.ProfitPercent = math.Round(float64(g.Profit)/float64(g.TotalStaked)*1e4) / 100
	}
	g.Items = make([]ItemTally, 0, len(counts))
	for item, n := range counts {
		g.Items = append(g.Items, ItemTally{Item: item, Count: n})
	}
	sort.Slice(g.Items, func(i, j int) bool {
		if g.Items[i].Count != g.Items[j].Count {
			return g.Items[i].Count > g.Items[j].Count
		}
		return g.Items[i].Item < g.Items[j].Item
	})

	if s.users != nil {
		c, err := s.users.Counts(ctx)
		if err != nil {
			return GlobalStats{}, err
		}
		g.Users = c
	}
	return g, nil
}

// Users returns the full roster ordered by join time.
func (s *Service) Users(ctx context.Context) ([]users.User, error) {
	if s.users == nil {
		return nil, fmt.Errorf("user registry is not configured")
	}
	return s.users.List(ctx)
}
