// Package pricing derives the house economics of each stake tier from its
// weight table: expected prize value, return-to-player and the chance of a
// qualifying win, at every boost level.
package pricing

import (
	"math"

	"github.com/xtding233/giftdraw/internal/gacha"
)

// Quote is the closed-form outlook of one draw on a tier under one boost.
type Quote struct {
	Tier             gacha.Tier `json:"tier"`
	Cost             int64      `json:"cost"`
	Boost            float64    `json:"boost"`
	ExpectedValue    float64    `json:"expected_value"`
	RTP              float64    `json:"rtp"`               // ExpectedValue / Cost
	QualifyingChance float64    `json:"qualifying_chance"` // P(value >= cost)
}

// Report groups the quotes of every tier, tiers in declaration order and
// boost levels ascending within a tier.
type Report struct {
	Quotes []Quote `json:"quotes"`
}

// Plan is a draw mix that spends at most a budget.
type Plan struct {
	Purchases     []Purchase `json:"purchases"`
	Spent         int64      `json:"spent"`
	ExpectedValue float64    `json:"expected_value"`
}

// Purchase is one line of a plan.
type Purchase struct {
	Tier          gacha.Tier `json:"tier"`
	Qty           int        `json:"qty"`
	UnitCost      int64      `json:"unit_cost"`
	UnitExpected  float64    `json:"unit_expected"`
	SubtotalSpent int64      `json:"subtotal_spent"`
}

// QuoteTier computes the quote of t at boost.
func QuoteTier(t gacha.TierTable, catalog *gacha.Catalog, boost float64) Quote {
	weights := gacha.EffectiveWeights(t, boost)
	var total, ev, qualifying float64
	for _, w := range weights {
		total += w
	}
	q := Quote{Tier: t.Tier, Cost: t.Cost, Boost: boost}
	if total <= 0 {
		return q
	}
	for i, e := range t.Entries {
		p := weights[i] / total
		v := catalog.Value(e.Item)
		ev += p * float64(v)
		if v >= t.Cost {
			qualifying += p
		}
	}
	q.ExpectedValue = round4(ev)
	q.RTP = round4(ev / float64(t.Cost))
	q.QualifyingChance = round4(qualifying)
	return q
}

// Build quotes every tier of rules at every boost level.
func Build(rules *gacha.Rules) Report {
	var r Report
	for _, t := range rules.Tiers() {
		for _, boost := range gacha.BoostLevels() {
			r.Quotes = append(r.Quotes, QuoteTier(t, rules.Catalog, boost))
		}
	}
	return r
}

// Base returns the unboosted quote of tier, if present.
func (r Report) Base(tier gacha.Tier) (Quote, bool) {
	for _, q := range r.Quotes {
		if q.Tier == tier && q.Boost == gacha.NoBoost {
			return q, true
		}
	}
	return Quote{}, false
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
