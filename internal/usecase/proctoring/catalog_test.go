package proctoring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/config"
)

func TestLoadCatalog_BuiltinDefaults(t *testing.T) {
	catalog, err := LoadCatalog(config.ProfileDevelopment, "")

	require.NoError(t, err)
	assert.Equal(t, config.ProfileDevelopment, catalog.Profile())
	assert.Len(t, catalog.Definitions(), 7)

	def, ok := catalog.Lookup(entities.BehaviorLookingAway)
	require.True(t, ok)
	assert.Equal(t, entities.SeverityMedium, def.Severity)
	assert.NotEmpty(t, def.QueryText)
}

func TestLoadCatalog_ProductionThresholdsAreStricter(t *testing.T) {
	dev, err := LoadCatalog(config.ProfileDevelopment, "")
	require.NoError(t, err)
	prod, err := LoadCatalog(config.ProfileProduction, "")
	require.NoError(t, err)

	devDef, _ := dev.Lookup(entities.BehaviorLookingAway)
	prodDef, _ := prod.Lookup(entities.BehaviorLookingAway)

	assert.Less(t, prodDef.ConfidenceThreshold, devDef.ConfidenceThreshold)
}

func TestLoadCatalog_FromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behaviors.yaml")
	content := `profile: development
behaviors:
  - behavior_type: looking_away
    query_text: person looking away from the screen
    severity: medium
    confidence_threshold: 0.7
    min_duration_s: 2
    max_duration_s: 300
    merge_gap_s: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	catalog, err := LoadCatalog(config.ProfileDevelopment, path)

	require.NoError(t, err)
	require.Len(t, catalog.Definitions(), 1)
	def, ok := catalog.Lookup(entities.BehaviorLookingAway)
	require.True(t, ok)
	assert.Equal(t, 0.7, def.ConfidenceThreshold)
	assert.Equal(t, 2.0, def.MinDurationS)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(config.ProfileDevelopment, "/nonexistent/behaviors.yaml")

	assert.Error(t, err)
}

func TestLoadCatalog_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "behaviors.yaml")
	content := `behaviors:
  - behavior_type: looking_away
    query_text: person looking away
    severity: catastrophic
    confidence_threshold: 0.7
    min_duration_s: 2
    max_duration_s: 300
    merge_gap_s: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadCatalog(config.ProfileDevelopment, path)

	assert.True(t, errors.Is(err, entities.ErrCatalogInvalid))
}

func TestNewCatalogFromDefinitions_RejectsEmpty(t *testing.T) {
	_, err := NewCatalogFromDefinitions(config.ProfileDevelopment, nil)

	assert.True(t, errors.Is(err, entities.ErrCatalogEmpty))
}

func TestNewCatalogFromDefinitions_RejectsDuplicates(t *testing.T) {
	defs := []entities.BehaviorDefinition{
		testDefs()[0],
		testDefs()[0],
	}

	_, err := NewCatalogFromDefinitions(config.ProfileDevelopment, defs)

	assert.True(t, errors.Is(err, entities.ErrCatalogInvalid))
}

func TestCatalog_DefinitionsReturnsCopy(t *testing.T) {
	catalog, err := NewCatalogFromDefinitions(config.ProfileDevelopment, testDefs())
	require.NoError(t, err)

	defs := catalog.Definitions()
	defs[0].ConfidenceThreshold = 0.01

	reread, _ := catalog.Lookup(defs[0].BehaviorType)
	assert.NotEqual(t, 0.01, reread.ConfidenceThreshold)
}
