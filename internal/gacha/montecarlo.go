package gacha

import (
	"fmt"
	"math"
	"sort"

	"github.com/xtding233/giftdraw/internal/stats"
)

// SimParams describes one long-run simulation: Trials fresh players each
// doing Draws consecutive draws on Tier.
type SimParams struct {
	Tier   Tier
	Draws  int
	Trials int
	Seed   uint64 // 0 => DefaultRNG
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// SimReport is the outcome of RunMonteCarlo.
type SimReport struct {
	Tier Tier
	Cost int64
	// Awarded is the total prize value per trial.
	Awarded Stats
	// LongestDrought is the longest run of non-qualifying draws per trial.
	LongestDrought Stats
	// RTP is awarded value over staked value across all trials.
	RTP float64
	// BoostedShare is the fraction of draws taken under a boost > 1.
	BoostedShare float64
	// ItemShare is the observed frequency of each item.
	ItemShare map[Item]float64
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	// mean
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)
	stddev := math.Sqrt(variance)

	// percentiles
	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 {
			return float64(cp[0])
		}
		if p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  stddev,
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

type trialResult struct {
	awarded int
	drought int
	boosted int
	perItem map[Item]int
}

// simulateOne plays draws consecutive draws for a fresh in-memory player.
func simulateOne(rules *Rules, t TierTable, draws int, rng RandomSource) (trialResult, error) {
	res := trialResult{perItem: make(map[Item]int)}
	st := stats.PlayerStats{ItemCounts: map[string]int64{}}
	for i := 0; i < draws; i++ {
		item, next, boost, err := Spin(t, rules.Catalog, st, rng)
		if err != nil {
			return trialResult{}, err
		}
		if boost > NoBoost {
			res.boosted++
		}
		res.perItem[item]++
		if int(next.DrawsSinceQualifyingWin) > res.drought {
			res.drought = int(next.DrawsSinceQualifyingWin)
		}
		st = next
	}
	res.awarded = int(st.TotalAwardedValue)
	return res, nil
}

// RunMonteCarlo repeats trials and returns summary stats.
func RunMonteCarlo(rules *Rules, p SimParams) (SimReport, error) {
	t, err := rules.Table(p.Tier)
	if err != nil {
		return SimReport{}, err
	}
	if p.Trials <= 0 || p.Draws <= 0 {
		return SimReport{}, fmt.Errorf("trials and draws must be > 0")
	}
	rng := DefaultRNG()
	if p.Seed != 0 {
		rng = NewSeededRNG(p.Seed)
	}

	awarded := make([]int, p.Trials)
	droughts := make([]int, p.Trials)
	items := make(map[Item]int)
	var boosted, totalAwarded int
	for i := 0; i < p.Trials; i++ {
		r, err := simulateOne(rules, t, p.Draws, rng)
		if err != nil {
			return SimReport{}, err
		}
		awarded[i] = r.awarded
		droughts[i] = r.drought
		boosted += r.boosted
		totalAwarded += r.awarded
		for k, v := range r.perItem {
			items[k] += v
		}
	}

	totalDraws := float64(p.Trials * p.Draws)
	share := make(map[Item]float64, len(items))
	for k, v := range items {
		share[k] = float64(v) / totalDraws
	}
	return SimReport{
		Tier:           p.Tier,
		Cost:           t.Cost,
		Awarded:        calcStats(awarded),
		LongestDrought: calcStats(droughts),
		RTP:            float64(totalAwarded) / (totalDraws * float64(t.Cost)),
		BoostedShare:   float64(boosted) / totalDraws,
		ItemShare:      share,
	}, nil
}
