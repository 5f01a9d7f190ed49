package proctoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// ReportOptions tunes the reviewer-facing report rendering.
type ReportOptions struct {
	// TopConcerns caps the ranked concern list.
	TopConcerns int
}

// GenerateReport is a pure transform of a terminal analysis into its
// reviewer-facing report. No network or storage access; safe to cache by
// (analysis_id, version).
func GenerateReport(analysis *entities.BehavioralAnalysis, opts ReportOptions) *entities.ProctoringReport {
	if opts.TopConcerns <= 0 {
		opts.TopConcerns = 5
	}

	detected := make(map[string][]entities.ReportedSegment)
	for behaviorType, segments := range analysis.SegmentsByType() {
		formatted := make([]entities.ReportedSegment, 0, len(segments))
		for _, seg := range segments {
			formatted = append(formatted, entities.ReportedSegment{
				Window:     formatWindow(seg.StartS, seg.EndS),
				DurationS:  seg.DurationS(),
				Confidence: formatPercent(seg.Confidence),
				Severity:   seg.Severity,
			})
		}
		detected[behaviorType] = formatted
	}

	return &entities.ProctoringReport{
		AnalysisID:              analysis.ID,
		SessionID:               analysis.SessionID,
		Version:                 analysis.Version,
		OverallAssessment:       assessScore(analysis),
		IntegrityScore:          formatPercent(analysis.IntegrityScore),
		FlaggedForReview:        analysis.FlaggedForReview,
		Degraded:                analysis.Status == entities.AnalysisStatusFailedDegraded,
		BehavioralMetrics:       formatMetrics(analysis.Metrics),
		DetectedBehaviorsByType: detected,
		TopConcerns:             rankConcerns(analysis.Segments, opts.TopConcerns),
		GeneratedAt:             time.Now(),
	}
}

// rankConcerns returns the top-N segments ordered by confidence weighted by
// severity, descending. Ties break on earlier start time so the ranking is
// deterministic.
func rankConcerns(segments []entities.SuspiciousSegment, limit int) []entities.Concern {
	ranked := make([]entities.SuspiciousSegment, len(segments))
	copy(ranked, segments)

	weight := func(s entities.SuspiciousSegment) float64 {
		return s.Confidence * s.Severity.Weight()
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		wi, wj := weight(ranked[i]), weight(ranked[j])
		if wi != wj {
			return wi > wj
		}
		return ranked[i].StartS < ranked[j].StartS
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	concerns := make([]entities.Concern, 0, len(ranked))
	for i, seg := range ranked {
		concerns = append(concerns, entities.Concern{
			BehaviorType: seg.BehaviorType,
			Window:       formatWindow(seg.StartS, seg.EndS),
			Confidence:   formatPercent(seg.Confidence),
			Severity:     seg.Severity,
			Rank:         i + 1,
		})
	}
	return concerns
}

func assessScore(analysis *entities.BehavioralAnalysis) string {
	if analysis.Status == entities.AnalysisStatusFailedDegraded {
		return "Analysis unavailable: the behavioral analysis could not be completed for this session."
	}
	score := analysis.IntegrityScore
	switch {
	case score >= 0.9:
		return "No significant integrity concerns detected."
	case score >= 0.75:
		return "Minor integrity concerns detected; review optional."
	case score >= 0.5:
		return "Moderate integrity concerns detected; review recommended."
	default:
		return "Significant integrity concerns detected; manual review required."
	}
}

func formatMetrics(m entities.BehavioralMetrics) map[string]string {
	return map[string]string{
		"eye_contact_consistency": formatPercent(m.EyeContactConsistency),
		"environment_stability":   formatPercent(m.EnvironmentStability),
		"audio_consistency":       formatPercent(m.AudioConsistency),
		"focus_score":             formatPercent(m.FocusScore),
	}
}

// formatTimestamp renders seconds as mm:ss.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func formatWindow(startS, endS float64) string {
	return formatTimestamp(startS) + " - " + formatTimestamp(endS)
}

// formatPercent renders a [0,1] score as an integer percentage.
func formatPercent(v float64) string {
	return fmt.Sprintf("%d%%", int(v*100+0.5))
}
