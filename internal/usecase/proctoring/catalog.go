package proctoring

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/config"
)

// Catalog is the environment-scoped registry of behavior definitions. It is
// immutable after construction and has no side effects or network access;
// the orchestrator receives it by injection and never hardcodes behaviors.
type Catalog struct {
	profile     string
	definitions []entities.BehaviorDefinition
}

// catalogFile is the on-disk YAML shape of a behavior catalog.
type catalogFile struct {
	Profile   string                        `yaml:"profile"`
	Behaviors []entities.BehaviorDefinition `yaml:"behaviors"`
}

// LoadCatalog builds the catalog for the given profile. When path is empty
// the built-in profile defaults are used; otherwise the YAML file at path is
// decoded and validated. Threshold tuning therefore never requires a
// redeploy of orchestration logic.
func LoadCatalog(profile, path string) (*Catalog, error) {
	var defs []entities.BehaviorDefinition

	if path == "" {
		defs = defaultDefinitions(profile)
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read behavior catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse behavior catalog %s: %w", path, err)
		}
		defs = file.Behaviors
	}

	if len(defs) == 0 {
		return nil, entities.ErrCatalogEmpty
	}
	if err := validateDefinitions(defs); err != nil {
		return nil, err
	}

	return &Catalog{profile: profile, definitions: defs}, nil
}

// NewCatalogFromDefinitions builds a catalog directly from definitions.
// Used in tests and by callers that manage catalog content themselves.
func NewCatalogFromDefinitions(profile string, defs []entities.BehaviorDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, entities.ErrCatalogEmpty
	}
	if err := validateDefinitions(defs); err != nil {
		return nil, err
	}
	return &Catalog{profile: profile, definitions: defs}, nil
}

// Profile returns the environment profile the catalog was built for.
func (c *Catalog) Profile() string {
	return c.profile
}

// Definitions returns the catalog entries. The returned slice is a copy so
// callers cannot mutate catalog state.
func (c *Catalog) Definitions() []entities.BehaviorDefinition {
	out := make([]entities.BehaviorDefinition, len(c.definitions))
	copy(out, c.definitions)
	return out
}

// Lookup returns the definition for a behavior type.
func (c *Catalog) Lookup(behaviorType string) (entities.BehaviorDefinition, bool) {
	for _, def := range c.definitions {
		if def.BehaviorType == behaviorType {
			return def, true
		}
	}
	return entities.BehaviorDefinition{}, false
}

func validateDefinitions(defs []entities.BehaviorDefinition) error {
	v := validator.New()
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if err := v.Struct(def); err != nil {
			return fmt.Errorf("%w: entry %d (%s): %v", entities.ErrCatalogInvalid, i, def.BehaviorType, err)
		}
		if seen[def.BehaviorType] {
			return fmt.Errorf("%w: duplicate behavior type %q", entities.ErrCatalogInvalid, def.BehaviorType)
		}
		seen[def.BehaviorType] = true
	}
	return nil
}

// defaultDefinitions returns the built-in catalog for a profile. Production
// runs tighter confidence thresholds than development.
func defaultDefinitions(profile string) []entities.BehaviorDefinition {
	strict := profile == config.ProfileProduction

	threshold := func(dev, prod float64) float64 {
		if strict {
			return prod
		}
		return dev
	}

	return []entities.BehaviorDefinition{
		{
			BehaviorType:        entities.BehaviorLookingAway,
			QueryText:           "person looking away from the screen for an extended period",
			Severity:            entities.SeverityMedium,
			ConfidenceThreshold: threshold(0.7, 0.65),
			MinDurationS:        2,
			MaxDurationS:        300,
			MergeGapS:           3,
		},
		{
			BehaviorType:        entities.BehaviorMultiplePeople,
			QueryText:           "more than one person visible in the frame",
			Severity:            entities.SeverityHigh,
			ConfidenceThreshold: threshold(0.75, 0.7),
			MinDurationS:        1,
			MaxDurationS:        600,
			MergeGapS:           5,
		},
		{
			BehaviorType:        entities.BehaviorPhoneUsage,
			QueryText:           "person holding or looking at a mobile phone",
			Severity:            entities.SeverityHigh,
			ConfidenceThreshold: threshold(0.75, 0.7),
			MinDurationS:        1,
			MaxDurationS:        300,
			MergeGapS:           4,
		},
		{
			BehaviorType:        entities.BehaviorPersonAbsent,
			QueryText:           "empty chair with no person visible in the frame",
			Severity:            entities.SeverityHigh,
			ConfidenceThreshold: threshold(0.8, 0.75),
			MinDurationS:        3,
			MaxDurationS:        900,
			MergeGapS:           5,
		},
		{
			BehaviorType:        entities.BehaviorTalkingToSomeone,
			QueryText:           "person talking to someone off screen",
			Severity:            entities.SeverityMedium,
			ConfidenceThreshold: threshold(0.7, 0.65),
			MinDurationS:        2,
			MaxDurationS:        600,
			MergeGapS:           4,
		},
		{
			BehaviorType:        entities.BehaviorReadingFromNotes,
			QueryText:           "person repeatedly glancing down as if reading notes",
			Severity:            entities.SeverityLow,
			ConfidenceThreshold: threshold(0.7, 0.65),
			MinDurationS:        2,
			MaxDurationS:        300,
			MergeGapS:           3,
		},
		{
			BehaviorType:        entities.BehaviorBackgroundVoices,
			QueryText:           "audible background voices or whispering",
			Severity:            entities.SeverityMedium,
			ConfidenceThreshold: threshold(0.65, 0.6),
			MinDurationS:        1,
			MaxDurationS:        600,
			MergeGapS:           4,
		},
	}
}
