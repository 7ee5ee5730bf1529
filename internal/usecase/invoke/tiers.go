package invoke

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTier is used when the caller does not name a tier.
const DefaultTier = "balanced"

//go:embed tiers.yaml
var defaultTiersYAML []byte

// TierConfig is the static, ordered provider list for one tier plus the
// per-provider model names used at that tier. Immutable after load.
type TierConfig struct {
	Providers []string          `yaml:"providers"`
	Models    map[string]string `yaml:"models"`
}

// Tiers maps tier name to its configuration.
type Tiers map[string]TierConfig

// LoadTiers returns the tier configuration. When TIER_CONFIG_PATH is set the
// file at that path is loaded; otherwise the embedded default is used.
func LoadTiers() (Tiers, error) {
	data := defaultTiersYAML
	if path := os.Getenv("TIER_CONFIG_PATH"); path != "" {
		fileData, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		if err != nil {
			return nil, fmt.Errorf("read tier config %s: %w", path, err)
		}
		data = fileData
	}
	return ParseTiers(data)
}

// ParseTiers parses and validates YAML tier configuration.
func ParseTiers(data []byte) (Tiers, error) {
	var tiers Tiers
	if err := yaml.Unmarshal(data, &tiers); err != nil {
		return nil, fmt.Errorf("parse tier config: %w", err)
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier config is empty")
	}
	for name, tier := range tiers {
		if len(tier.Providers) == 0 {
			return nil, fmt.Errorf("tier %q has no providers", name)
		}
		for _, provider := range tier.Providers {
			if tier.Models[provider] == "" {
				return nil, fmt.Errorf("tier %q: no model configured for provider %q", name, provider)
			}
		}
	}
	if _, ok := tiers[DefaultTier]; !ok {
		return nil, fmt.Errorf("tier config missing default tier %q", DefaultTier)
	}
	return tiers, nil
}
