package entities

import "github.com/google/uuid"

// ScoreTrend classifies the direction of a user's integrity scores.
type ScoreTrend string

const (
	TrendImproving ScoreTrend = "improving"
	TrendStable    ScoreTrend = "stable"
	TrendDeclining ScoreTrend = "declining"
)

// ConsistencyRating bands the variance of scores across a window.
type ConsistencyRating string

const (
	ConsistencyConsistent ConsistencyRating = "consistent"
	ConsistencyVariable   ConsistencyRating = "variable"
	ConsistencyErratic    ConsistencyRating = "erratic"
)

// SessionComparison is the ephemeral cross-session trend result for one
// user's analysis history.
type SessionComparison struct {
	UserID               uuid.UUID         `json:"user_id"`
	CurrentScore         float64           `json:"current_score"`
	AveragePreviousScore float64           `json:"average_previous_score"`
	Trend                ScoreTrend        `json:"trend"`
	RecurringBehaviors   []string          `json:"recurring_behaviors"`
	ConsistencyRating    ConsistencyRating `json:"consistency_rating"`
	SessionsCompared     int               `json:"sessions_compared"`
}
