package proctoring

import (
	"sort"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

// FilterAndMergeHits turns the untrusted raw hits of one behavior type into
// the minimal non-overlapping segment list:
//
//  1. hits below the definition's confidence threshold are dropped;
//  2. hits shorter than the minimum duration are dropped, hits longer than
//     the maximum are clipped to it;
//  3. survivors are sorted by start time;
//  4. adjacent hits within the merge gap collapse into one segment spanning
//     their union, keeping the maximum confidence of the group.
//
// Deterministic given identical inputs.
func FilterAndMergeHits(hits []videosearch.Hit, def entities.BehaviorDefinition) []entities.SuspiciousSegment {
	filtered := make([]videosearch.Hit, 0, len(hits))
	for _, hit := range hits {
		if hit.Confidence < def.ConfidenceThreshold {
			continue
		}
		if hit.EndS <= hit.StartS {
			continue
		}
		duration := hit.EndS - hit.StartS
		if duration < def.MinDurationS {
			continue
		}
		if def.MaxDurationS > 0 && duration > def.MaxDurationS {
			hit.EndS = hit.StartS + def.MaxDurationS
		}
		filtered = append(filtered, hit)
	}

	if len(filtered) == 0 {
		return nil
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].StartS != filtered[j].StartS {
			return filtered[i].StartS < filtered[j].StartS
		}
		return filtered[i].EndS < filtered[j].EndS
	})

	segments := make([]entities.SuspiciousSegment, 0, len(filtered))
	current := entities.SuspiciousSegment{
		BehaviorType: def.BehaviorType,
		StartS:       filtered[0].StartS,
		EndS:         filtered[0].EndS,
		Confidence:   filtered[0].Confidence,
		Severity:     def.Severity,
	}

	for _, hit := range filtered[1:] {
		if hit.StartS-current.EndS <= def.MergeGapS {
			if hit.EndS > current.EndS {
				current.EndS = hit.EndS
			}
			if hit.Confidence > current.Confidence {
				current.Confidence = hit.Confidence
			}
			continue
		}
		segments = append(segments, current)
		current = entities.SuspiciousSegment{
			BehaviorType: def.BehaviorType,
			StartS:       hit.StartS,
			EndS:         hit.EndS,
			Confidence:   hit.Confidence,
			Severity:     def.Severity,
		}
	}
	segments = append(segments, current)

	return segments
}

// BuildSegments applies FilterAndMergeHits across a whole search outcome,
// in catalog order so the result is deterministic.
func BuildSegments(outcome SearchOutcome, defs []entities.BehaviorDefinition) []entities.SuspiciousSegment {
	var segments []entities.SuspiciousSegment
	for _, def := range defs {
		hits, ok := outcome.Hits[def.BehaviorType]
		if !ok {
			continue
		}
		segments = append(segments, FilterAndMergeHits(hits, def)...)
	}
	return segments
}
