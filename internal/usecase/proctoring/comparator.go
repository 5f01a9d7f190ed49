package proctoring

import (
	"math"
	"sort"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// ComparatorOptions tunes the cross-session trend computation. The band
// edges are tunable constants, not hard contracts.
type ComparatorOptions struct {
	// TrendEpsilon is the dead zone around zero score delta inside which
	// the trend reads stable.
	TrendEpsilon float64
	// ConsistentStdDev is the upper edge of the consistent band.
	ConsistentStdDev float64
	// VariableStdDev is the upper edge of the variable band; anything
	// above reads erratic.
	VariableStdDev float64
}

// DefaultComparatorOptions returns the standard trend tuning.
func DefaultComparatorOptions(epsilon float64) ComparatorOptions {
	if epsilon <= 0 {
		epsilon = 0.05
	}
	return ComparatorOptions{
		TrendEpsilon:     epsilon,
		ConsistentStdDev: 0.05,
		VariableStdDev:   0.15,
	}
}

// CompareSessions computes score trend and behavior recurrence for a user:
// the current analysis against the chronological window of their prior
// analyses. Pure and deterministic.
func CompareSessions(current *entities.BehavioralAnalysis, prior []entities.BehavioralAnalysis, opts ComparatorOptions) *entities.SessionComparison {
	comparison := &entities.SessionComparison{
		UserID:             current.UserID,
		CurrentScore:       current.IntegrityScore,
		RecurringBehaviors: []string{},
		SessionsCompared:   len(prior) + 1,
	}

	if len(prior) == 0 {
		comparison.AveragePreviousScore = current.IntegrityScore
		comparison.Trend = entities.TrendStable
		comparison.ConsistencyRating = entities.ConsistencyConsistent
		return comparison
	}

	var sum float64
	for _, a := range prior {
		sum += a.IntegrityScore
	}
	avg := sum / float64(len(prior))
	comparison.AveragePreviousScore = avg

	delta := current.IntegrityScore - avg
	switch {
	case delta > opts.TrendEpsilon:
		comparison.Trend = entities.TrendImproving
	case delta < -opts.TrendEpsilon:
		comparison.Trend = entities.TrendDeclining
	default:
		comparison.Trend = entities.TrendStable
	}

	comparison.RecurringBehaviors = recurringBehaviors(current, prior)
	comparison.ConsistencyRating = rateConsistency(current, prior, opts)

	return comparison
}

// recurringBehaviors returns the behavior types flagged in the current
// analysis that also appear in at least half of the prior analyses.
func recurringBehaviors(current *entities.BehavioralAnalysis, prior []entities.BehavioralAnalysis) []string {
	currentTypes := make(map[string]bool)
	for _, seg := range current.Segments {
		currentTypes[seg.BehaviorType] = true
	}
	if len(currentTypes) == 0 {
		return []string{}
	}

	priorCounts := make(map[string]int)
	for _, a := range prior {
		seen := make(map[string]bool)
		for _, seg := range a.Segments {
			if !seen[seg.BehaviorType] {
				seen[seg.BehaviorType] = true
				priorCounts[seg.BehaviorType]++
			}
		}
	}

	recurring := make([]string, 0)
	for behaviorType := range currentTypes {
		if priorCounts[behaviorType]*2 >= len(prior) && priorCounts[behaviorType] > 0 {
			recurring = append(recurring, behaviorType)
		}
	}
	sort.Strings(recurring)
	return recurring
}

// rateConsistency bands the standard deviation of the scores across the
// whole window (prior plus current).
func rateConsistency(current *entities.BehavioralAnalysis, prior []entities.BehavioralAnalysis, opts ComparatorOptions) entities.ConsistencyRating {
	scores := make([]float64, 0, len(prior)+1)
	for _, a := range prior {
		scores = append(scores, a.IntegrityScore)
	}
	scores = append(scores, current.IntegrityScore)

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))

	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(variance / float64(len(scores)))

	switch {
	case stddev <= opts.ConsistentStdDev:
		return entities.ConsistencyConsistent
	case stddev <= opts.VariableStdDev:
		return entities.ConsistencyVariable
	default:
		return entities.ConsistencyErratic
	}
}
