package gacha_test

import (
	"testing"

	"github.com/xtding233/giftdraw/internal/gacha"
)

func TestAnimationSequenceShape(t *testing.T) {
	rules := mustRules(t)
	high := make(map[gacha.Item]bool)
	for _, it := range rules.Catalog.HighValue {
		high[it] = true
	}
	rng := gacha.NewSeededRNG(3)

	for _, final := range rules.Catalog.Kinds() {
		for i := 0; i < 200; i++ {
			seq := gacha.AnimationSequence(final, rules.Catalog, rng)
			if len(seq) != gacha.AnimationLength {
				t.Fatalf("len=%d want %d", len(seq), gacha.AnimationLength)
			}
			if seq[10] != final {
				t.Fatalf("last=%s want %s", seq[10], final)
			}
			for j, it := range seq {
				if _, ok := rules.Catalog.Lookup(it); !ok {
					t.Fatalf("entry %d=%s not in catalog", j, it)
				}
			}
			for j := 7; j < 10; j++ {
				if seq[j] != final && !high[seq[j]] {
					t.Fatalf("late entry %d=%s is neither final nor high value", j, seq[j])
				}
			}
		}
	}
}

func TestAnimationLateEntriesFavourFinal(t *testing.T) {
	rules := mustRules(t)
	rng := gacha.NewSeededRNG(11)
	const runs = 5000
	final := gacha.Item("heart") // not in the high-value pool
	hits := 0
	for i := 0; i < runs; i++ {
		seq := gacha.AnimationSequence(final, rules.Catalog, rng)
		for j := 7; j < 10; j++ {
			if seq[j] == final {
				hits++
			}
		}
	}
	freq := float64(hits) / (runs * 3)
	if freq < 0.27 || freq > 0.33 {
		t.Fatalf("late final freq=%.3f want ~0.3", freq)
	}
}
