package fields

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategory is assigned when no keyword group matches.
const DefaultCategory = "Other"

//go:embed categories.yaml
var defaultTaxonomy []byte

type keywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type taxonomyConfig struct {
	Categories []keywordGroup `yaml:"categories"`
}

// Categorizer assigns categories to transaction descriptions by ordered
// keyword matching. It is deterministic: the same description always yields
// the same category for a given taxonomy.
type Categorizer struct {
	groups []keywordGroup
}

// NewCategorizer builds a categorizer from the embedded default taxonomy.
func NewCategorizer() *Categorizer {
	c, err := parseTaxonomy(defaultTaxonomy)
	if err != nil {
		// The embedded taxonomy is validated by tests; a parse failure here
		// is a build defect, not a runtime condition.
		panic(fmt.Sprintf("fields: embedded taxonomy invalid: %v", err))
	}
	return c
}

// LoadCategorizer builds a categorizer from a YAML taxonomy file, allowing
// deployments to extend or replace the keyword groups.
func LoadCategorizer(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadCategorizer: read %q: %w", path, err)
	}
	c, err := parseTaxonomy(data)
	if err != nil {
		return nil, fmt.Errorf("LoadCategorizer: %w", err)
	}
	return c, nil
}

func parseTaxonomy(data []byte) (*Categorizer, error) {
	var cfg taxonomyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal taxonomy: %w", err)
	}
	if len(cfg.Categories) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories")
	}
	// Lowercase keywords once so Categorize is a plain substring scan.
	for i := range cfg.Categories {
		for j, kw := range cfg.Categories[i].Keywords {
			cfg.Categories[i].Keywords[j] = strings.ToLower(kw)
		}
	}
	return &Categorizer{groups: cfg.Categories}, nil
}

// Categorize returns the category for a description: the first keyword group
// with any matching keyword wins, defaulting to DefaultCategory.
func (c *Categorizer) Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, g := range c.groups {
		for _, kw := range g.Keywords {
			if strings.Contains(lower, kw) {
				return g.Name
			}
		}
	}
	return DefaultCategory
}

// Categories returns the group names in match order.
func (c *Categorizer) Categories() []string {
	names := make([]string, 0, len(c.groups)+1)
	for _, g := range c.groups {
		names = append(names, g.Name)
	}
	names = append(names, DefaultCategory)
	return names
}
