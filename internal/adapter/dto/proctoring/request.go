package proctoring

// StartAnalysisRequest represents the request to start a behavioral analysis
type StartAnalysisRequest struct {
	VideoID         string `json:"video_id" validate:"required,min=1,max=255"`
	ForceReanalysis bool   `json:"force_reanalysis"`
}

// HighlightsQuery represents query parameters for the highlights endpoint
type HighlightsQuery struct {
	Severity     string `query:"severity" validate:"omitempty,oneof=low medium high"`
	BehaviorType string `query:"behavior_type" validate:"omitempty,min=1,max=64"`
	Limit        int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// CompareSessionsRequest represents the request to compare a user's sessions.
// UserID is optional; when present it must match the authenticated caller.
type CompareSessionsRequest struct {
	UserID     string   `json:"user_id" validate:"omitempty,uuid"`
	SessionIDs []string `json:"session_ids" validate:"omitempty,max=20,dive,uuid"`
}
