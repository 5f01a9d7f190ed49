package proctoring

import (
	"fmt"
	"time"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// AnalysisResponse represents a behavioral analysis record
type AnalysisResponse struct {
	AnalysisID       string             `json:"analysis_id"`
	SessionID        string             `json:"session_id"`
	VideoID          string             `json:"video_id"`
	Version          int                `json:"version"`
	Status           string             `json:"status"`
	IntegrityScore   float64            `json:"integrity_score"`
	FlaggedForReview bool               `json:"flagged_for_review"`
	Metrics          MetricsResponse    `json:"metrics"`
	Segments         []SegmentResponse  `json:"segments"`
	AnomalySummary   string             `json:"anomaly_summary"`
	ComputedAt       *time.Time         `json:"computed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
}

// MetricsResponse represents the per-dimension behavioral metrics
type MetricsResponse struct {
	EyeContactConsistency float64 `json:"eye_contact_consistency"`
	EnvironmentStability  float64 `json:"environment_stability"`
	AudioConsistency      float64 `json:"audio_consistency"`
	FocusScore            float64 `json:"focus_score"`
}

// SegmentResponse represents one suspicious segment
type SegmentResponse struct {
	BehaviorType string  `json:"behavior_type"`
	StartS       float64 `json:"start_s"`
	EndS         float64 `json:"end_s"`
	Window       string  `json:"window"`
	Confidence   float64 `json:"confidence"`
	Severity     string  `json:"severity"`
}

// StatusResponse represents the lightweight polling view of an analysis
type StatusResponse struct {
	AnalysisID string     `json:"analysis_id"`
	VideoID    string     `json:"video_id"`
	Version    int        `json:"version"`
	Status     string     `json:"status"`
	LastError  *string    `json:"last_error,omitempty"`
	ComputedAt *time.Time `json:"computed_at,omitempty"`
}

// HighlightsResponse represents the filtered segment list
type HighlightsResponse struct {
	SessionID  string            `json:"session_id"`
	Highlights []SegmentResponse `json:"highlights"`
	Total      int               `json:"total"`
}

// ComparisonResponse represents a cross-session comparison
type ComparisonResponse struct {
	UserID               string   `json:"user_id"`
	CurrentScore         float64  `json:"current_score"`
	AveragePreviousScore float64  `json:"average_previous_score"`
	Trend                string   `json:"trend"`
	RecurringBehaviors   []string `json:"recurring_behaviors"`
	ConsistencyRating    string   `json:"consistency_rating"`
	SessionsCompared     int      `json:"sessions_compared"`
}

// DeleteResponse confirms an analysis purge
type DeleteResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// NewAnalysisResponse maps an analysis entity to its response shape
func NewAnalysisResponse(a *entities.BehavioralAnalysis) *AnalysisResponse {
	return &AnalysisResponse{
		AnalysisID:       a.ID.String(),
		SessionID:        a.SessionID.String(),
		VideoID:          a.VideoID,
		Version:          a.Version,
		Status:           string(a.Status),
		IntegrityScore:   a.IntegrityScore,
		FlaggedForReview: a.FlaggedForReview,
		Metrics: MetricsResponse{
			EyeContactConsistency: a.Metrics.EyeContactConsistency,
			EnvironmentStability:  a.Metrics.EnvironmentStability,
			AudioConsistency:      a.Metrics.AudioConsistency,
			FocusScore:            a.Metrics.FocusScore,
		},
		Segments:       NewSegmentResponses(a.Segments),
		AnomalySummary: a.AnomalySummary,
		ComputedAt:     a.ComputedAt,
		CreatedAt:      a.CreatedAt,
	}
}

// NewStatusResponse maps an analysis entity to its polling view
func NewStatusResponse(a *entities.BehavioralAnalysis) *StatusResponse {
	return &StatusResponse{
		AnalysisID: a.ID.String(),
		VideoID:    a.VideoID,
		Version:    a.Version,
		Status:     string(a.Status),
		LastError:  a.LastError,
		ComputedAt: a.ComputedAt,
	}
}

// NewSegmentResponses maps suspicious segments to their response shapes
func NewSegmentResponses(segments []entities.SuspiciousSegment) []SegmentResponse {
	out := make([]SegmentResponse, 0, len(segments))
	for _, seg := range segments {
		out = append(out, SegmentResponse{
			BehaviorType: seg.BehaviorType,
			StartS:       seg.StartS,
			EndS:         seg.EndS,
			Window:       formatWindow(seg.StartS, seg.EndS),
			Confidence:   seg.Confidence,
			Severity:     string(seg.Severity),
		})
	}
	return out
}

// formatWindow renders a segment window as mm:ss - mm:ss for UI display
func formatWindow(startS, endS float64) string {
	format := func(seconds float64) string {
		total := int(seconds)
		return fmt.Sprintf("%02d:%02d", total/60, total%60)
	}
	return format(startS) + " - " + format(endS)
}

// NewComparisonResponse maps a session comparison to its response shape
func NewComparisonResponse(c *entities.SessionComparison) *ComparisonResponse {
	return &ComparisonResponse{
		UserID:               c.UserID.String(),
		CurrentScore:         c.CurrentScore,
		AveragePreviousScore: c.AveragePreviousScore,
		Trend:                string(c.Trend),
		RecurringBehaviors:   c.RecurringBehaviors,
		ConsistencyRating:    string(c.ConsistencyRating),
		SessionsCompared:     c.SessionsCompared,
	}
}
