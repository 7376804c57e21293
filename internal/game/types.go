// types.go
package game

// Raw config loaded from YAML; mirrors the catalog/tier schema.
type RawConfig struct {
	Version string     `yaml:"version"`
	Catalog CatalogCfg `yaml:"catalog"`
	Tiers   []TierCfg  `yaml:"tiers"`
	Notes   string     `yaml:"notes,omitempty"`
}

type CatalogCfg struct {
	Items     []ItemCfg `yaml:"items"`
	HighValue []string  `yaml:"high_value,omitempty"`
}

type ItemCfg struct {
	Kind   string `yaml:"kind"`
	Value  *int64 `yaml:"value"`
	GiftID string `yaml:"gift_id,omitempty"`
	Emoji  string `yaml:"emoji,omitempty"`
	Name   string `yaml:"name,omitempty"`
}

type TierCfg struct {
	Name    string               `yaml:"name"`
	Cost    *int64               `yaml:"cost"`
	Weights map[string]WeightCfg `yaml:"weights"`
}

type WeightCfg struct {
	Weight float64 `yaml:"weight"`
	Boost  string  `yaml:"boost"` // "divide" | "multiply" | "exempt"
}
