package pricing

import (
	"fmt"
	"sort"

	"github.com/xtding233/giftdraw/internal/gacha"
)

// MaxPlanBudget bounds the DP table.
const MaxPlanBudget = 1_000_000

// MaxValueUnderBudget picks the mix of draws, at most budget in total cost,
// with the highest expected prize value. Expectations are unboosted, so the
// result is a lower bound for a player who is already on a losing streak.
//
// Unbounded knapsack over cost, like the value-per-price DP of a shop.
// Among plans of equal value the one with fewer draws wins.
func MaxValueUnderBudget(r Report, budget int64) (Plan, error) {
	if budget < 1 || budget > MaxPlanBudget {
		return Plan{}, fmt.Errorf("budget %d out of range 1..%d", budget, MaxPlanBudget)
	}

	var effs []Quote
	for _, q := range r.Quotes {
		if q.Boost == gacha.NoBoost && q.Cost > 0 && q.Cost <= budget {
			effs = append(effs, q)
		}
	}
	if len(effs) == 0 {
		return Plan{}, nil
	}

	// dp[c] = best expected value with cost exactly c
	dp := make([]float64, budget+1)
	draws := make([]int, budget+1)
	choose := make([]int, budget+1)
	reach := make([]bool, budget+1)
	for c := range choose {
		choose[c] = -1
	}
	reach[0] = true
	for c := int64(0); c <= budget; c++ {
		if !reach[c] {
			continue
		}
		for i, e := range effs {
			nc := c + e.Cost
			if nc > budget {
				continue
			}
			val := dp[c] + e.ExpectedValue
			if !reach[nc] || better(val, draws[c]+1, dp[nc], draws[nc]) {
				dp[nc] = val
				draws[nc] = draws[c] + 1
				choose[nc] = i
				reach[nc] = true
			}
		}
	}

	// best at any cost <= budget
	var bestC int64
	for c := int64(0); c <= budget; c++ {
		if reach[c] && better(dp[c], draws[c], dp[bestC], draws[bestC]) {
			bestC = c
		}
	}

	counts := map[int]int{}
	c := bestC
	for c > 0 && choose[c] != -1 {
		i := choose[c]
		counts[i]++
		c -= effs[i].Cost
	}

	var plan Plan
	for i, qty := range counts {
		q := effs[i]
		sub := q.Cost * int64(qty)
		plan.Purchases = append(plan.Purchases, Purchase{
			Tier:          q.Tier,
			Qty:           qty,
			UnitCost:      q.Cost,
			UnitExpected:  q.ExpectedValue,
			SubtotalSpent: sub,
		})
		plan.Spent += sub
		plan.ExpectedValue += q.ExpectedValue * float64(qty)
	}
	sort.Slice(plan.Purchases, func(i, j int) bool { return plan.Purchases[i].UnitCost < plan.Purchases[j].UnitCost })
	plan.ExpectedValue = round4(plan.ExpectedValue)
	return plan, nil
}

// valueEps absorbs float noise when comparing summed expectations.
const valueEps = 1e-9

// better reports whether value a reached in na draws beats value b in nb.
func better(a float64, na int, b float64, nb int) bool {
	if a > b+valueEps {
		return true
	}
	return a > b-valueEps && na < nb
}
