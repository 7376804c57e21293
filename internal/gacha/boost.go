package gacha

// The losing-streak boost: after a run of draws whose prize was worth less
// than the stake, rarer items get likelier and common ones rarer.
const (
	ModerateStreak = 4 // exactly this many losses => ModerateBoost
	HeavyStreak    = 5 // this many or more => HeavyBoost

	NoBoost       = 1.0
	ModerateBoost = 2.0
	HeavyBoost    = 3.0
)

// BoostFactor maps draws-since-qualifying-win to the weight boost.
func BoostFactor(streak int64) float64 {
	switch {
	case streak >= HeavyStreak:
		return HeavyBoost
	case streak == ModerateStreak:
		return ModerateBoost
	default:
		return NoBoost
	}
}

// BoostLevels lists every factor BoostFactor can return.
func BoostLevels() []float64 {
	return []float64{NoBoost, ModerateBoost, HeavyBoost}
}

// EffectiveWeights applies boost to t's base weights following each entry's
// direction. The result is index-aligned with t.Entries.
func EffectiveWeights(t TierTable, boost float64) []float64 {
	out := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		w := e.Weight
		if w == 0 {
			// unobtainable stays unobtainable
			continue
		}
		switch e.Direction {
		case BoostDivide:
			w /= boost
		case BoostMultiply:
			w *= boost
		}
		out[i] = w
	}
	return out
}
