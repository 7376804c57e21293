package gacha

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTier          = errors.New("invalid tier")
	ErrStoreUnavailable     = errors.New("stats store unavailable")
	ErrMalformedWeightTable = errors.New("malformed weight table")
)

// Item is a gift kind, e.g. "heart" or "diamond".
type Item string

// Tier is a stake level, e.g. "basic".
type Tier string

// Direction says how the losing-streak boost applies to one item's weight.
type Direction string

const (
	BoostDivide   Direction = "divide"   // rarer as the boost grows
	BoostMultiply Direction = "multiply" // likelier as the boost grows
	BoostExempt   Direction = "exempt"   // never touched
)

func (d Direction) Valid() bool {
	switch d {
	case BoostDivide, BoostMultiply, BoostExempt:
		return true
	}
	return false
}

// ItemSpec describes one catalog entry.
type ItemSpec struct {
	Kind   Item
	Value  int64  // in stake currency units
	GiftID string // external gift id used by delivery
	Emoji  string
	Name   string
}

// Catalog is the ordered, read-only set of items.
type Catalog struct {
	Items     []ItemSpec
	HighValue []Item // pool used near the end of the reveal animation
	index     map[Item]int
}

// NewCatalog indexes items. Kinds must be unique.
func NewCatalog(items []ItemSpec, highValue []Item) (*Catalog, error) {
	c := &Catalog{
		Items:     append([]ItemSpec(nil), items...),
		HighValue: append([]Item(nil), highValue...),
		index:     make(map[Item]int, len(items)),
	}
	for i, it := range c.Items {
		if _, dup := c.index[it.Kind]; dup {
			return nil, fmt.Errorf("duplicate catalog item %q", it.Kind)
		}
		c.index[it.Kind] = i
	}
	for _, hv := range c.HighValue {
		if _, ok := c.index[hv]; !ok {
			return nil, fmt.Errorf("high value item %q not in catalog", hv)
		}
	}
	return c, nil
}

// Lookup returns the spec of kind.
func (c *Catalog) Lookup(kind Item) (ItemSpec, bool) {
	i, ok := c.index[kind]
	if !ok {
		return ItemSpec{}, false
	}
	return c.Items[i], true
}

// Value returns the value of kind, 0 if unknown.
func (c *Catalog) Value(kind Item) int64 {
	spec, _ := c.Lookup(kind)
	return spec.Value
}

// Kinds returns item kinds in catalog order.
func (c *Catalog) Kinds() []Item {
	out := make([]Item, len(c.Items))
	for i, it := range c.Items {
		out[i] = it.Kind
	}
	return out
}

// Entry is one row of a tier's weight table.
type Entry struct {
	Item      Item
	Weight    float64
	Direction Direction
}

// TierTable is a stake tier: its cost and its base weight table.
type TierTable struct {
	Tier    Tier
	Cost    int64
	Entries []Entry // catalog order
}

// Rules bundles the catalog and the tier tables. It is read-only once built.
type Rules struct {
	Catalog *Catalog
	tiers   map[Tier]TierTable
	order   []Tier
}

// NewRules checks that every tier references catalog items only and has a
// positive weight at every boost level.
func NewRules(catalog *Catalog, tiers []TierTable) (*Rules, error) {
	if catalog == nil || len(catalog.Items) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	r := &Rules{Catalog: catalog, tiers: make(map[Tier]TierTable, len(tiers))}
	for _, t := range tiers {
		if _, dup := r.tiers[t.Tier]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Tier)
		}
		if t.Cost <= 0 {
			return nil, fmt.Errorf("tier %q: cost must be > 0", t.Tier)
		}
		for _, e := range t.Entries {
			if _, ok := catalog.Lookup(e.Item); !ok {
				return nil, fmt.Errorf("tier %q: unknown item %q", t.Tier, e.Item)
			}
			if !e.Direction.Valid() {
				return nil, fmt.Errorf("tier %q: item %q: unknown boost direction %q", t.Tier, e.Item, e.Direction)
			}
		}
		for _, boost := range BoostLevels() {
			if err := validateWeights(EffectiveWeights(t, boost)); err != nil {
				return nil, fmt.Errorf("tier %q at boost %.1f: %w", t.Tier, boost, err)
			}
		}
		r.tiers[t.Tier] = t
		r.order = append(r.order, t.Tier)
	}
	return r, nil
}

// Table returns the table for tier or ErrInvalidTier.
func (r *Rules) Table(tier Tier) (TierTable, error) {
	t, ok := r.tiers[tier]
	if !ok {
		return TierTable{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	return t, nil
}

// Tiers returns the configured tiers in declaration order.
func (r *Rules) Tiers() []TierTable {
	out := make([]TierTable, len(r.order))
	for i, name := range r.order {
		out[i] = r.tiers[name]
	}
	return out
}

// TierForCost maps a paid amount back to its tier.
func (r *Rules) TierForCost(cost int64) (Tier, error) {
	for _, name := range r.order {
		if r.tiers[name].Cost == cost {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: no tier costs %d", ErrInvalidTier, cost)
}
