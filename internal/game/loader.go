package game

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/giftdraw/internal/gacha"
)

//go:embed defaults.yaml
var defaultYAML []byte

// Loader reads the built-in catalog/tier config and merges an optional
// override file over it: defaults <- override.
type Loader struct {
	overridePath string

	mu    sync.RWMutex
	rules *gacha.Rules
	raw   RawConfig
}

// NewLoader creates a config loader. overridePath may be empty; when set, the
// file must exist.
func NewLoader(overridePath string) *Loader {
	return &Loader{overridePath: overridePath}
}

// LoadMerged loads and merges defaults <- override.
// It returns the merged RawConfig (without validation).
func (l *Loader) LoadMerged() (RawConfig, error) {
	defCfg, err := parseYAML(defaultYAML)
	if err != nil {
		return RawConfig{}, fmt.Errorf("read defaults: %w", err)
	}
	if l.overridePath == "" {
		return defCfg, nil
	}
	override, err := readYAML(filepath.Clean(l.overridePath))
	if err != nil {
		return RawConfig{}, fmt.Errorf("read override %s: %w", l.overridePath, err)
	}
	return mergeRaw(defCfg, override), nil
}

// Rules loads, validates and builds the draw rules once; later calls return
// the cached value. Rules are static for the life of the process.
func (l *Loader) Rules() (*gacha.Rules, error) {
	l.mu.RLock()
	if l.rules != nil {
		r := l.rules
		l.mu.RUnlock()
		return r, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rules != nil {
		return l.rules, nil
	}
	raw, err := l.LoadMerged()
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(raw); err != nil {
		return nil, err
	}
	rules, err := Build(raw)
	if err != nil {
		return nil, err
	}
	l.raw = raw
	l.rules = rules
	return rules, nil
}

// Version returns the version of the loaded config, empty before Rules.
func (l *Loader) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.raw.Version
}

// readYAML loads a YAML file into RawConfig. A missing file is an error: an
// override path is only set when odds are meant to change.
func readYAML(path string) (RawConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RawConfig{}, err
	}
	return parseYAML(b)
}

func parseYAML(b []byte) (RawConfig, error) {
	var cfg RawConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw overlays b on a. Items and tiers are replaced by key (kind/name)
// keeping a's order; new keys are appended. HighValue is replaced if provided.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// catalog items
	out.Catalog.Items = append([]ItemCfg(nil), a.Catalog.Items...)
	itemIdx := make(map[string]int, len(out.Catalog.Items))
	for i, it := range out.Catalog.Items {
		itemIdx[it.Kind] = i
	}
	for _, it := range b.Catalog.Items {
		if i, ok := itemIdx[it.Kind]; ok {
			out.Catalog.Items[i] = mergeItem(out.Catalog.Items[i], it)
			continue
		}
		itemIdx[it.Kind] = len(out.Catalog.Items)
		out.Catalog.Items = append(out.Catalog.Items, it)
	}
	if len(b.Catalog.HighValue) > 0 {
		out.Catalog.HighValue = append([]string(nil), b.Catalog.HighValue...)
	}

	// tiers
	out.Tiers = append([]TierCfg(nil), a.Tiers...)
	tierIdx := make(map[string]int, len(out.Tiers))
	for i, t := range out.Tiers {
		tierIdx[t.Name] = i
	}
	for _, t := range b.Tiers {
		if i, ok := tierIdx[t.Name]; ok {
			out.Tiers[i] = mergeTier(out.Tiers[i], t)
			continue
		}
		tierIdx[t.Name] = len(out.Tiers)
		out.Tiers = append(out.Tiers, t)
	}
	return out
}

func mergeItem(a, b ItemCfg) ItemCfg {
	out := a
	if b.Value != nil {
		out.Value = b.Value
	}
	if b.GiftID != "" {
		out.GiftID = b.GiftID
	}
	if b.Emoji != "" {
		out.Emoji = b.Emoji
	}
	if b.Name != "" {
		out.Name = b.Name
	}
	return out
}

// mergeTier replaces cost if set; weights of b replace a's entry by entry.
func mergeTier(a, b TierCfg) TierCfg {
	out := a
	if b.Cost != nil {
		out.Cost = b.Cost
	}
	if len(b.Weights) > 0 {
		out.Weights = make(map[string]WeightCfg, len(a.Weights)+len(b.Weights))
		for k, v := range a.Weights {
			out.Weights[k] = v
		}
		for k, v := range b.Weights {
			out.Weights[k] = v
		}
	}
	return out
}
