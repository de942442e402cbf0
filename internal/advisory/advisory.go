// Package advisory merges externally produced embedding recommendations into
// a baseline document schema. Recommendations are non-authoritative: anything
// that cannot be resolved or would violate a strategy rule is skipped with a
// warning, never a hard failure.
package advisory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RelationshipType classifies how a recommendation's relationship was found.
type RelationshipType string

const (
	// RelationshipExplicit is derived from a real foreign key.
	RelationshipExplicit RelationshipType = "explicit"
	// RelationshipImplicit is inferred from naming convention only.
	RelationshipImplicit RelationshipType = "implicit"
)

// Strategy is the recommended embedding strategy.
type Strategy string

const (
	StrategyReference Strategy = "reference"
	StrategyPartial   Strategy = "partial"
	StrategyFull      Strategy = "full"
	StrategyHybrid    Strategy = "hybrid"
)

// Recommendation is a single advisory suggestion about embedding data from a
// related table into a collection's documents.
type Recommendation struct {
	Collection      string           `yaml:"collection" json:"collection"`
	Field           string           `yaml:"field" json:"field"`
	Relationship    RelationshipType `yaml:"relationship" json:"relationship"`
	Strategy        Strategy         `yaml:"strategy" json:"strategy"`
	Reasoning       string           `yaml:"reasoning,omitempty" json:"reasoning,omitempty"`
	SuggestedFields []string         `yaml:"suggested_fields,omitempty" json:"suggested_fields,omitempty"`
	Confidence      float64          `yaml:"confidence" json:"confidence"`
}

// Validate checks the shape of a single recommendation.
func (r *Recommendation) Validate() error {
	if r.Collection == "" || r.Field == "" {
		return fmt.Errorf("recommendation must name a collection and field")
	}
	switch r.Relationship {
	case RelationshipExplicit, RelationshipImplicit:
	default:
		return fmt.Errorf("unknown relationship type %q", r.Relationship)
	}
	switch r.Strategy {
	case StrategyReference, StrategyPartial, StrategyFull, StrategyHybrid:
	default:
		return fmt.Errorf("unknown strategy %q", r.Strategy)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	return nil
}

// LoadYAML reads a recommendation list from a YAML file and validates each
// entry's shape.
func LoadYAML(path string) ([]Recommendation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recommendations: %w", err)
	}
	var recs []Recommendation
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parsing recommendations: %w", err)
	}
	for i := range recs {
		if err := recs[i].Validate(); err != nil {
			return nil, fmt.Errorf("recommendation %d (%s.%s): %w", i, recs[i].Collection, recs[i].Field, err)
		}
	}
	return recs, nil
}
