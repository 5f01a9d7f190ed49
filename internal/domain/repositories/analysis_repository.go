package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// AnalysisRepository owns BehavioralAnalysis persistence. Writes are
// versioned and append-only; the pending slot per (session_id, video_id)
// is claimed with a check-and-set so at most one orchestration attempt is
// active for a given target.
type AnalysisRepository interface {
	// ClaimPending inserts a new pending record. Returns
	// ErrConcurrentAnalysis when a pending record already holds the
	// (session_id, video_id) slot.
	ClaimPending(ctx context.Context, analysis *entities.BehavioralAnalysis) error

	// Finalize writes the terminal fields of the analysis, guarded so a
	// record that already reached a terminal state is never mutated.
	Finalize(ctx context.Context, analysis *entities.BehavioralAnalysis) error

	FindByID(ctx context.Context, analysisID uuid.UUID) (*entities.BehavioralAnalysis, error)
	FindPending(ctx context.Context, sessionID uuid.UUID, videoID string) (*entities.BehavioralAnalysis, error)
	LatestBySession(ctx context.Context, sessionID uuid.UUID) (*entities.BehavioralAnalysis, error)
	LatestByVideo(ctx context.Context, videoID string) (*entities.BehavioralAnalysis, error)
	NextVersion(ctx context.Context, sessionID uuid.UUID, videoID string) (int, error)

	// HistoryByUser returns the user's terminal analyses, most recent
	// first, capped at limit.
	HistoryByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entities.BehavioralAnalysis, error)

	// LatestBySessions returns the latest terminal analysis per session
	// for the given user, in the order of sessionIDs.
	LatestBySessions(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) ([]entities.BehavioralAnalysis, error)

	// DeleteBySession removes all analyses of a session owned by userID.
	// Returns the number of removed records.
	DeleteBySession(ctx context.Context, sessionID, userID uuid.UUID) (int64, error)
}
