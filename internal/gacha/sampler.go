package gacha

import "sort"

// Sampler picks items proportionally to their weights using cumulative
// prefix sums and a binary search.
type Sampler struct {
	items []Item
	cum   []float64
	total float64
}

// NewSampler builds a sampler. Weights are relative; they need not sum to
// anything in particular but must be non-negative with one strictly positive.
func NewSampler(items []Item, weights []float64) (*Sampler, error) {
	if len(items) != len(weights) {
		return nil, ErrMalformedWeightTable
	}
	if err := validateWeights(weights); err != nil {
		return nil, err
	}
	s := &Sampler{items: items, cum: make([]float64, len(weights))}
	var acc float64
	for i, w := range weights {
		acc += w
		s.cum[i] = acc
	}
	s.total = acc
	return s, nil
}

// Pick draws one item.
func (s *Sampler) Pick(rng RandomSource) Item {
	x := rng.Float64() * s.total
	// first bucket whose upper edge is beyond x; zero-width buckets are
	// never selected because their edge equals the previous one.
	i := sort.Search(len(s.cum), func(i int) bool { return s.cum[i] > x })
	if i == len(s.cum) {
		// x rounded up to total; take the last non-empty bucket
		i = len(s.cum) - 1
		for i > 0 && s.cum[i] == s.cum[i-1] {
			i--
		}
	}
	return s.items[i]
}
