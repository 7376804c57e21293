package game

import (
	"github.com/xtding233/giftdraw/internal/gacha"
)

// Build turns a validated RawConfig into draw rules. Tier entries follow
// catalog order so a seeded RNG reproduces the same draws.
func Build(cfg RawConfig) (*gacha.Rules, error) {
	items := make([]gacha.ItemSpec, 0, len(cfg.Catalog.Items))
	for _, it := range cfg.Catalog.Items {
		var v int64
		if it.Value != nil {
			v = *it.Value
		}
		items = append(items, gacha.ItemSpec{
			Kind:   gacha.Item(it.Kind),
			Value:  v,
			GiftID: it.GiftID,
			Emoji:  it.Emoji,
			Name:   it.Name,
		})
	}
	highValue := make([]gacha.Item, 0, len(cfg.Catalog.HighValue))
	for _, hv := range cfg.Catalog.HighValue {
		highValue = append(highValue, gacha.Item(hv))
	}
	catalog, err := gacha.NewCatalog(items, highValue)
	if err != nil {
		return nil, err
	}

	tiers := make([]gacha.TierTable, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		table := gacha.TierTable{Tier: gacha.Tier(t.Name)}
		if t.Cost != nil {
			table.Cost = *t.Cost
		}
		for _, it := range cfg.Catalog.Items {
			w, ok := t.Weights[it.Kind]
			if !ok {
				continue
			}
			table.Entries = append(table.Entries, gacha.Entry{
				Item:      gacha.Item(it.Kind),
				Weight:    w.Weight,
				Direction: gacha.Direction(w.Boost),
			})
		}
		tiers = append(tiers, table)
	}
	return gacha.NewRules(catalog, tiers)
}

// DefaultRules builds the rules from the embedded defaults.
func DefaultRules() (*gacha.Rules, error) {
	return NewLoader("").Rules()
}
