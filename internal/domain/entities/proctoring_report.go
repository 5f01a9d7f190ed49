package entities

import (
	"time"

	"github.com/google/uuid"
)

// ReportedSegment is a suspicious segment formatted for reviewers.
type ReportedSegment struct {
	Window     string   `json:"window"` // "mm:ss - mm:ss"
	DurationS  float64  `json:"duration_s"`
	Confidence string   `json:"confidence"` // integer percentage, e.g. "82%"
	Severity   Severity `json:"severity"`
}

// Concern is one entry of the report's ranked top-concern list.
type Concern struct {
	BehaviorType string   `json:"behavior_type"`
	Window       string   `json:"window"`
	Confidence   string   `json:"confidence"`
	Severity     Severity `json:"severity"`
	Rank         int      `json:"rank"`
}

// ProctoringReport is the reviewer-facing rendering of a completed
// analysis. It is derived, not persisted beyond a cache keyed by
// (analysis_id, version).
type ProctoringReport struct {
	AnalysisID              uuid.UUID                    `json:"analysis_id"`
	SessionID               uuid.UUID                    `json:"session_id"`
	Version                 int                          `json:"version"`
	OverallAssessment       string                       `json:"overall_assessment"`
	IntegrityScore          string                       `json:"integrity_score"` // integer percentage
	FlaggedForReview        bool                         `json:"flagged_for_review"`
	Degraded                bool                         `json:"degraded"`
	BehavioralMetrics       map[string]string            `json:"behavioral_metrics"`
	DetectedBehaviorsByType map[string][]ReportedSegment `json:"detected_behaviors_by_type"`
	TopConcerns             []Concern                    `json:"top_concerns"`
	GeneratedAt             time.Time                    `json:"generated_at"`
}
