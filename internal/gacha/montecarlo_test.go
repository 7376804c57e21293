package gacha

import (
	"math"
	"testing"
)

func TestCalcStats(t *testing.T) {
	s := calcStats([]int{1, 2, 3, 4})
	if s.Mean != 2.5 {
		t.Fatalf("mean=%v", s.Mean)
	}
	if math.Abs(s.Var-1.25) > 1e-12 {
		t.Fatalf("var=%v", s.Var)
	}
	if s.P50 != 2.5 {
		t.Fatalf("p50=%v", s.P50)
	}
	if empty := calcStats(nil); empty.Mean != 0 || empty.Samples != nil {
		t.Fatalf("empty input should give zero stats")
	}
}

func simRules(t *testing.T) *Rules {
	t.Helper()
	catalog, err := NewCatalog([]ItemSpec{
		{Kind: "pebble", Value: 1},
		{Kind: "gem", Value: 20},
	}, []Item{"gem"})
	if err != nil {
		t.Fatal(err)
	}
	rules, err := NewRules(catalog, []TierTable{{
		Tier: "t",
		Cost: 10,
		Entries: []Entry{
			{Item: "pebble", Weight: 9, Direction: BoostDivide},
			{Item: "gem", Weight: 1, Direction: BoostMultiply},
		},
	}})
	if err != nil {
		t.Fatal(err)
	}
	return rules
}

func TestRunMonteCarlo(t *testing.T) {
	rules := simRules(t)
	rep, err := RunMonteCarlo(rules, SimParams{Tier: "t", Draws: 100, Trials: 500, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	// unboosted gem share is 0.1; the streak boost lifts it
	if rep.ItemShare["gem"] <= 0.1 || rep.ItemShare["gem"] > 0.3 {
		t.Fatalf("gem share=%.3f", rep.ItemShare["gem"])
	}
	if sum := rep.ItemShare["gem"] + rep.ItemShare["pebble"]; math.Abs(sum-1) > 1e-9 {
		t.Fatalf("shares sum to %v", sum)
	}
	if rep.BoostedShare <= 0 || rep.BoostedShare >= 1 {
		t.Fatalf("boosted share=%.3f", rep.BoostedShare)
	}
	if rep.RTP <= 0 || rep.RTP >= 1 {
		t.Fatalf("rtp=%.3f", rep.RTP)
	}
	if rep.LongestDrought.Mean < 4 {
		t.Fatalf("mean longest drought=%.2f", rep.LongestDrought.Mean)
	}

	again, _ := RunMonteCarlo(rules, SimParams{Tier: "t", Draws: 100, Trials: 500, Seed: 42})
	if again.RTP != rep.RTP {
		t.Fatalf("seeded runs differ: %v vs %v", again.RTP, rep.RTP)
	}
}

func TestRunMonteCarloRejectsBadParams(t *testing.T) {
	rules := simRules(t)
	if _, err := RunMonteCarlo(rules, SimParams{Tier: "nope", Draws: 1, Trials: 1}); err == nil {
		t.Fatal("unknown tier must fail")
	}
	if _, err := RunMonteCarlo(rules, SimParams{Tier: "t"}); err == nil {
		t.Fatal("zero draws must fail")
	}
}
