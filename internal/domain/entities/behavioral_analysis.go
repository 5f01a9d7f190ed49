package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnalysisStatus represents the lifecycle state of a behavioral analysis.
type AnalysisStatus string

const (
	AnalysisStatusPending        AnalysisStatus = "pending"         // Claimed, orchestration in flight
	AnalysisStatusComplete       AnalysisStatus = "complete"        // Terminal: scored result available
	AnalysisStatusFailedDegraded AnalysisStatus = "failed_degraded" // Terminal: fail-open clean default
)

// SuspiciousSegment is a filtered, merged time interval in a video flagged
// as matching a behavior category. Segments of the same behavior type within
// one analysis are pairwise non-overlapping and sorted by StartS.
type SuspiciousSegment struct {
	BehaviorType string   `json:"behavior_type"`
	StartS       float64  `json:"start_s"`
	EndS         float64  `json:"end_s"`
	Confidence   float64  `json:"confidence"`
	Severity     Severity `json:"severity"`
}

// DurationS returns the segment length in seconds.
func (s SuspiciousSegment) DurationS() float64 {
	return s.EndS - s.StartS
}

// BehavioralMetrics are per-dimension consistency scores in [0,1] derived
// from aggregated segment durations.
type BehavioralMetrics struct {
	EyeContactConsistency float64 `json:"eye_contact_consistency"`
	EnvironmentStability  float64 `json:"environment_stability"`
	AudioConsistency      float64 `json:"audio_consistency"`
	FocusScore            float64 `json:"focus_score"`
}

// CleanMetrics returns the metrics of a video with no suspicious segments.
func CleanMetrics() BehavioralMetrics {
	return BehavioralMetrics{
		EyeContactConsistency: 1.0,
		EnvironmentStability:  1.0,
		AudioConsistency:      1.0,
		FocusScore:            1.0,
	}
}

// BehavioralAnalysis is one versioned proctoring analysis of a (session,
// video) pair. Records are append-only: a forced re-analysis creates a new
// version, it never mutates a terminal record.
type BehavioralAnalysis struct {
	ID               uuid.UUID                              `json:"analysis_id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SessionID        uuid.UUID                              `json:"session_id" gorm:"type:uuid;not null;index:idx_analyses_session_video,priority:1"`
	UserID           uuid.UUID                              `json:"user_id" gorm:"type:uuid;not null;index:idx_analyses_user_computed,priority:1"`
	VideoID          string                                 `json:"video_id" gorm:"type:varchar(255);not null;index:idx_analyses_session_video,priority:2"`
	Version          int                                    `json:"version" gorm:"not null;default:1;index:idx_analyses_session_video,priority:3,sort:desc"`
	Status           AnalysisStatus                         `json:"status" gorm:"type:varchar(30);not null;index;default:'pending'"`
	IntegrityScore   float64                                `json:"integrity_score"`
	FlaggedForReview bool                                   `json:"flagged_for_review"`
	Segments         datatypes.JSONSlice[SuspiciousSegment] `json:"segments" gorm:"type:jsonb"`
	Metrics          BehavioralMetrics                      `json:"metrics" gorm:"type:jsonb;serializer:json"`
	AnomalySummary   string                                 `json:"anomaly_summary" gorm:"type:text"`
	VideoDurationS   float64                                `json:"video_duration_s"`
	ComputedAt       *time.Time                             `json:"computed_at,omitempty" gorm:"type:timestamp;index:idx_analyses_user_computed,priority:2,sort:desc"`
	LastError        *string                                `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt        time.Time                              `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time                              `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (BehavioralAnalysis) TableName() string {
	return "behavioral_analyses"
}

// NewBehavioralAnalysis creates a pending analysis record for the given
// target at the given version.
func NewBehavioralAnalysis(sessionID, userID uuid.UUID, videoID string, version int) *BehavioralAnalysis {
	return &BehavioralAnalysis{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		VideoID:   videoID,
		Version:   version,
		Status:    AnalysisStatusPending,
		Segments:  datatypes.JSONSlice[SuspiciousSegment]{},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// IsTerminal reports whether the analysis reached a terminal state.
func (a *BehavioralAnalysis) IsTerminal() bool {
	return a.Status == AnalysisStatusComplete || a.Status == AnalysisStatusFailedDegraded
}

// MarkAsComplete fills the scored result and moves the record to its
// terminal complete state.
func (a *BehavioralAnalysis) MarkAsComplete(segments []SuspiciousSegment, metrics BehavioralMetrics, score float64, flagged bool, summary string, videoDurationS float64) {
	now := time.Now()
	a.Status = AnalysisStatusComplete
	a.Segments = segments
	a.Metrics = metrics
	a.IntegrityScore = score
	a.FlaggedForReview = flagged
	a.AnomalySummary = summary
	a.VideoDurationS = videoDurationS
	a.ComputedAt = &now
	a.UpdatedAt = now
}

// MarkAsDegraded applies the fail-open default: a neutral clean score, no
// review flag, empty segments. A proctoring outage must never block a
// submission or falsely flag a candidate.
func (a *BehavioralAnalysis) MarkAsDegraded(reason string) {
	now := time.Now()
	a.Status = AnalysisStatusFailedDegraded
	a.Segments = datatypes.JSONSlice[SuspiciousSegment]{}
	a.Metrics = CleanMetrics()
	a.IntegrityScore = 1.0
	a.FlaggedForReview = false
	a.AnomalySummary = "Behavioral analysis could not be completed; result defaulted to clean."
	a.LastError = &reason
	a.ComputedAt = &now
	a.UpdatedAt = now
}

// SegmentsByType groups the stored segments by behavior type.
func (a *BehavioralAnalysis) SegmentsByType() map[string][]SuspiciousSegment {
	grouped := make(map[string][]SuspiciousSegment)
	for _, seg := range a.Segments {
		grouped[seg.BehaviorType] = append(grouped[seg.BehaviorType], seg)
	}
	return grouped
}
