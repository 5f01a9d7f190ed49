package proctoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// ScoringThresholds are the environment-specific override knobs of the
// integrity scorer.
type ScoringThresholds struct {
	// ReviewThreshold flags any analysis scoring below it.
	ReviewThreshold float64
	// HighSeverityFlagCount flags when at least this many high-severity
	// segments are present.
	HighSeverityFlagCount int
	// SegmentCountFlagLimit flags when strictly more than this many
	// segments are present.
	SegmentCountFlagLimit int
}

// DefaultScoringThresholds returns the override rules with the given
// review threshold.
func DefaultScoringThresholds(reviewThreshold float64) ScoringThresholds {
	return ScoringThresholds{
		ReviewThreshold:       reviewThreshold,
		HighSeverityFlagCount: 2,
		SegmentCountFlagLimit: 5,
	}
}

// metricBehaviors maps each behavioral metric to the behavior categories
// whose segment durations drive it down.
var metricBehaviors = map[string][]string{
	"eye_contact_consistency": {entities.BehaviorLookingAway, entities.BehaviorReadingFromNotes},
	"environment_stability":   {entities.BehaviorMultiplePeople, entities.BehaviorPersonAbsent},
	"audio_consistency":       {entities.BehaviorTalkingToSomeone, entities.BehaviorBackgroundVoices},
	"focus_score":             {entities.BehaviorPhoneUsage, entities.BehaviorLookingAway, entities.BehaviorPersonAbsent},
}

// metricWeights are the relative weights of the metric average inside the
// integrity score.
var metricWeights = map[string]float64{
	"eye_contact_consistency": 0.30,
	"environment_stability":   0.25,
	"audio_consistency":       0.15,
	"focus_score":             0.30,
}

// metricSaturation is the fraction of the video duration at which a
// metric's severity-weighted suspicious time drives the metric to zero.
const metricSaturation = 0.25

// penaltyRate shapes how fast the segment penalty decays with cumulative
// severity-weighted suspicious time.
const penaltyRate = 6.0

// ScoreAnalysis is the pure integrity scoring function. Each metric is
// 1 - min(1, weighted/(videoDuration*saturation)) over the severity-weighted
// durations of its behavior categories, which is monotonically
// non-increasing in both suspicious duration and severity. The composite
// score is 0.7 * weighted metric average + 0.3 * segment penalty, the
// penalty being 1.0 with no segments and decaying as severity-weighted
// suspicious time accumulates.
func ScoreAnalysis(segments []entities.SuspiciousSegment, videoDurationS float64, th ScoringThresholds) (entities.BehavioralMetrics, float64, bool, string) {
	if videoDurationS <= 0 {
		videoDurationS = 1
	}

	weightedByType := make(map[string]float64)
	var totalWeighted float64
	var highSeverityCount int
	for _, seg := range segments {
		w := seg.Severity.Weight() * seg.DurationS()
		weightedByType[seg.BehaviorType] += w
		totalWeighted += w
		if seg.Severity == entities.SeverityHigh {
			highSeverityCount++
		}
	}

	metricFor := func(name string) float64 {
		var weighted float64
		for _, behavior := range metricBehaviors[name] {
			weighted += weightedByType[behavior]
		}
		ratio := weighted / (videoDurationS * metricSaturation)
		return clamp01(1 - math.Min(1, ratio))
	}

	metrics := entities.BehavioralMetrics{
		EyeContactConsistency: metricFor("eye_contact_consistency"),
		EnvironmentStability:  metricFor("environment_stability"),
		AudioConsistency:      metricFor("audio_consistency"),
		FocusScore:            metricFor("focus_score"),
	}

	weightedAverage := metrics.EyeContactConsistency*metricWeights["eye_contact_consistency"] +
		metrics.EnvironmentStability*metricWeights["environment_stability"] +
		metrics.AudioConsistency*metricWeights["audio_consistency"] +
		metrics.FocusScore*metricWeights["focus_score"]

	// 1.0 with no segments, strictly decreasing in severity-weighted time.
	segmentPenalty := 1.0 / (1.0 + penaltyRate*totalWeighted/videoDurationS)

	score := clamp01(0.7*weightedAverage + 0.3*segmentPenalty)

	// Override conditions are independent of the numeric score; each is
	// individually testable.
	flagged := score < th.ReviewThreshold ||
		highSeverityCount >= th.HighSeverityFlagCount ||
		len(segments) > th.SegmentCountFlagLimit

	return metrics, score, flagged, summarizeAnomalies(segments)
}

// summarizeAnomalies renders a short deterministic description of the
// segment list, naming the dominant behavior category.
func summarizeAnomalies(segments []entities.SuspiciousSegment) string {
	if len(segments) == 0 {
		return "No suspicious behavior detected."
	}

	type behaviorStat struct {
		behaviorType string
		count        int
		durationS    float64
	}

	byType := make(map[string]*behaviorStat)
	for _, seg := range segments {
		stat, ok := byType[seg.BehaviorType]
		if !ok {
			stat = &behaviorStat{behaviorType: seg.BehaviorType}
			byType[seg.BehaviorType] = stat
		}
		stat.count++
		stat.durationS += seg.DurationS()
	}

	stats := make([]*behaviorStat, 0, len(byType))
	for _, stat := range byType {
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].durationS != stats[j].durationS {
			return stats[i].durationS > stats[j].durationS
		}
		return stats[i].behaviorType < stats[j].behaviorType
	})

	dominant := stats[0]
	noun := "segments"
	if len(segments) == 1 {
		noun = "segment"
	}
	return fmt.Sprintf("%d suspicious %s detected across %d behavior categories; dominant: %s (%d occurrences, %.0fs total).",
		len(segments), noun, len(stats), dominant.behaviorType, dominant.count, dominant.durationS)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
