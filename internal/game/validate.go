package game

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xtding233/giftdraw/internal/gacha"
)

// ValidateRaw checks semantic constraints of a RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	// catalog
	if len(cfg.Catalog.Items) == 0 {
		errs = append(errs, "catalog.items must not be empty")
	}
	kinds := make(map[string]bool, len(cfg.Catalog.Items))
	for i, it := range cfg.Catalog.Items {
		if strings.TrimSpace(it.Kind) == "" {
			errs = append(errs, fmt.Sprintf("catalog.items[%d].kind is required", i))
			continue
		}
		if kinds[it.Kind] {
			errs = append(errs, fmt.Sprintf("catalog.items[%d]: duplicate kind %q", i, it.Kind))
		}
		kinds[it.Kind] = true
		if it.Value == nil {
			errs = append(errs, fmt.Sprintf("catalog item %q: value is required", it.Kind))
		} else if *it.Value < 0 {
			errs = append(errs, fmt.Sprintf("catalog item %q: value must be >= 0", it.Kind))
		}
	}
	for _, hv := range cfg.Catalog.HighValue {
		if !kinds[hv] {
			errs = append(errs, fmt.Sprintf("catalog.high_value: unknown item %q", hv))
		}
	}

	// tiers
	if len(cfg.Tiers) == 0 {
		errs = append(errs, "tiers must not be empty")
	}
	names := make(map[string]bool, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, fmt.Sprintf("tiers[%d].name is required", i))
			continue
		}
		if names[t.Name] {
			errs = append(errs, fmt.Sprintf("tiers[%d]: duplicate name %q", i, t.Name))
		}
		names[t.Name] = true
		if t.Cost == nil || *t.Cost <= 0 {
			errs = append(errs, fmt.Sprintf("tier %q: cost must be >= 1", t.Name))
		}

		positive := false
		// sorted for stable messages
		items := make([]string, 0, len(t.Weights))
		for k := range t.Weights {
			items = append(items, k)
		}
		sort.Strings(items)
		for _, item := range items {
			w := t.Weights[item]
			if !kinds[item] {
				errs = append(errs, fmt.Sprintf("tier %q: unknown item %q", t.Name, item))
			}
			if math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) || w.Weight < 0 {
				errs = append(errs, fmt.Sprintf("tier %q: item %q: weight must be a finite number >= 0", t.Name, item))
			}
			if w.Weight > 0 {
				positive = true
			}
			if !gacha.Direction(w.Boost).Valid() {
				errs = append(errs, fmt.Sprintf("tier %q: item %q: boost must be one of: divide, multiply, exempt", t.Name, item))
			}
		}
		if !positive {
			errs = append(errs, fmt.Sprintf("tier %q: at least one weight must be > 0", t.Name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
