package proctoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

func lookingAwayDef() entities.BehaviorDefinition {
	return entities.BehaviorDefinition{
		BehaviorType:        entities.BehaviorLookingAway,
		QueryText:           "person looking away from the screen",
		Severity:            entities.SeverityMedium,
		ConfidenceThreshold: 0.7,
		MinDurationS:        2,
		MaxDurationS:        300,
		MergeGapS:           2,
	}
}

func TestFilterAndMergeHits_MergesWithinGap(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 10, EndS: 15, Confidence: 0.8},
		{StartS: 16, EndS: 20, Confidence: 0.75},
	}

	segments := FilterAndMergeHits(hits, def)

	require.Len(t, segments, 1)
	assert.Equal(t, entities.BehaviorLookingAway, segments[0].BehaviorType)
	assert.Equal(t, 10.0, segments[0].StartS)
	assert.Equal(t, 20.0, segments[0].EndS)
	assert.Equal(t, 0.8, segments[0].Confidence)
	assert.Equal(t, entities.SeverityMedium, segments[0].Severity)
}

func TestFilterAndMergeHits_DropsBelowThreshold(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 5, EndS: 8, Confidence: 0.65},
	}

	segments := FilterAndMergeHits(hits, def)

	assert.Empty(t, segments)
}

func TestFilterAndMergeHits_KeepsSeparatedSegments(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 10, EndS: 15, Confidence: 0.8},
		{StartS: 30, EndS: 35, Confidence: 0.9},
	}

	segments := FilterAndMergeHits(hits, def)

	require.Len(t, segments, 2)
	assert.Equal(t, 10.0, segments[0].StartS)
	assert.Equal(t, 30.0, segments[1].StartS)
	assert.Equal(t, 0.9, segments[1].Confidence)
}

func TestFilterAndMergeHits_DropsTooShortAndInverted(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 10, EndS: 11, Confidence: 0.9},  // below min duration
		{StartS: 20, EndS: 20, Confidence: 0.9},  // zero length
		{StartS: 40, EndS: 30, Confidence: 0.9},  // inverted window
		{StartS: 50, EndS: 55, Confidence: 0.85}, // survivor
	}

	segments := FilterAndMergeHits(hits, def)

	require.Len(t, segments, 1)
	assert.Equal(t, 50.0, segments[0].StartS)
}

func TestFilterAndMergeHits_ClipsOverlongHits(t *testing.T) {
	def := lookingAwayDef()
	def.MaxDurationS = 60
	hits := []videosearch.Hit{
		{StartS: 100, EndS: 400, Confidence: 0.9},
	}

	segments := FilterAndMergeHits(hits, def)

	require.Len(t, segments, 1)
	assert.Equal(t, 100.0, segments[0].StartS)
	assert.Equal(t, 160.0, segments[0].EndS)
}

func TestFilterAndMergeHits_SortsUnorderedInput(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 30, EndS: 35, Confidence: 0.8},
		{StartS: 10, EndS: 15, Confidence: 0.75},
	}

	segments := FilterAndMergeHits(hits, def)

	require.Len(t, segments, 2)
	assert.Equal(t, 10.0, segments[0].StartS)
	assert.Equal(t, 30.0, segments[1].StartS)
}

func TestFilterAndMergeHits_Deterministic(t *testing.T) {
	def := lookingAwayDef()
	hits := []videosearch.Hit{
		{StartS: 10, EndS: 15, Confidence: 0.8},
		{StartS: 16, EndS: 20, Confidence: 0.75},
		{StartS: 40, EndS: 45, Confidence: 0.72},
	}

	first := FilterAndMergeHits(hits, def)
	second := FilterAndMergeHits(hits, def)

	assert.Equal(t, first, second)
}

func TestBuildSegments_CatalogOrder(t *testing.T) {
	phoneDef := entities.BehaviorDefinition{
		BehaviorType:        entities.BehaviorPhoneUsage,
		QueryText:           "person looking at a phone",
		Severity:            entities.SeverityHigh,
		ConfidenceThreshold: 0.7,
		MinDurationS:        1,
		MaxDurationS:        300,
		MergeGapS:           2,
	}
	defs := []entities.BehaviorDefinition{lookingAwayDef(), phoneDef}

	outcome := SearchOutcome{
		Hits: map[string][]videosearch.Hit{
			entities.BehaviorPhoneUsage:  {{StartS: 5, EndS: 9, Confidence: 0.9}},
			entities.BehaviorLookingAway: {{StartS: 50, EndS: 55, Confidence: 0.8}},
		},
	}

	segments := BuildSegments(outcome, defs)

	require.Len(t, segments, 2)
	assert.Equal(t, entities.BehaviorLookingAway, segments[0].BehaviorType)
	assert.Equal(t, entities.BehaviorPhoneUsage, segments[1].BehaviorType)
}
