package gacha

const (
	AnimationLength = 11
	// entries before this index are uniform over the whole catalog
	animationUniformSpan = 7
	// chance that a late entry already shows the final item
	animationFinalBias = 0.3
)

// AnimationSequence builds the cosmetic reveal for final. The last entry is
// always final; the rest only pace the reveal and never touch player stats.
func AnimationSequence(final Item, catalog *Catalog, rng RandomSource) []Item {
	if rng == nil {
		rng = DefaultRNG()
	}
	all := catalog.Kinds()
	pool := catalog.HighValue
	if len(pool) == 0 {
		pool = all
	}

	seq := make([]Item, 0, AnimationLength)
	for i := 0; i < AnimationLength-1; i++ {
		if i < animationUniformSpan {
			seq = append(seq, all[rng.IntN(len(all))])
			continue
		}
		// constant p in range, Chance cannot fail
		if hit, _ := Chance(animationFinalBias, rng); hit {
			seq = append(seq, final)
		} else {
			seq = append(seq, pool[rng.IntN(len(pool))])
		}
	}
	return append(seq, final)
}
