package gacha_test

import (
	"errors"
	"math"
	"testing"

	"github.com/xtding233/giftdraw/internal/gacha"
)

type fixedRNG float64

func (f fixedRNG) Float64() float64 { return float64(f) }
func (f fixedRNG) IntN(n int) int   { return int(float64(f) * float64(n)) }

func TestSamplerConvergesToBoostedWeights(t *testing.T) {
	basic, err := mustRules(t).Table("basic")
	if err != nil {
		t.Fatal(err)
	}
	weights := gacha.EffectiveWeights(basic, gacha.HeavyBoost)
	items := make([]gacha.Item, len(basic.Entries))
	var total float64
	for i, e := range basic.Entries {
		items[i] = e.Item
		total += weights[i]
	}
	s, err := gacha.NewSampler(items, weights)
	if err != nil {
		t.Fatal(err)
	}

	const n = 200000
	rng := gacha.NewSeededRNG(7)
	counts := make(map[gacha.Item]int)
	for i := 0; i < n; i++ {
		counts[s.Pick(rng)]++
	}
	for i, item := range items {
		want := weights[i] / total
		got := float64(counts[item]) / n
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("%s: freq=%.4f want %.4f", item, got, want)
		}
		if weights[i] == 0 && counts[item] != 0 {
			t.Fatalf("%s has zero weight but was drawn %d times", item, counts[item])
		}
	}
}

func TestSamplerRejectsMalformedWeights(t *testing.T) {
	items := []gacha.Item{"a", "b"}
	for name, w := range map[string][]float64{
		"all zero": {0, 0},
		"negative": {1, -1},
		"nan":      {math.NaN(), 1},
		"inf":      {math.Inf(1), 1},
		"mismatch": {1},
	} {
		if _, err := gacha.NewSampler(items, w); !errors.Is(err, gacha.ErrMalformedWeightTable) {
			t.Fatalf("%s: err=%v want ErrMalformedWeightTable", name, err)
		}
	}
}

func TestSamplerEdges(t *testing.T) {
	items := []gacha.Item{"a", "b", "c"}
	s, err := gacha.NewSampler(items, []float64{1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Pick(fixedRNG(0)); got != "a" {
		t.Fatalf("x=0 picked %s", got)
	}
	if got := s.Pick(fixedRNG(0.5)); got != "b" {
		t.Fatalf("x=mid picked %s", got)
	}
	// a source at the very top of its range must not land on the empty bucket
	if got := s.Pick(fixedRNG(1)); got != "b" {
		t.Fatalf("x=total picked %s", got)
	}
}
