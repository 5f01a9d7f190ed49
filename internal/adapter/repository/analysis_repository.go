package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
)

// AnalysisRepository handles behavioral analysis data operations
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new behavioral analysis repository
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// ClaimPending inserts a new pending analysis record. The partial unique
// index on (session_id, video_id) WHERE status = 'pending' makes the insert
// the claim itself: a second claimant gets a duplicate key error.
func (r *AnalysisRepository) ClaimPending(ctx context.Context, analysis *entities.BehavioralAnalysis) error {
	if analysis == nil {
		return errors.New("analysis cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return entities.ErrConcurrentAnalysis
		}
		return err
	}
	return nil
}

// Finalize writes the terminal fields of an analysis, guarded so only a
// pending record transitions. A record that already reached a terminal
// state is never mutated; completed versions are append-only.
func (r *AnalysisRepository) Finalize(ctx context.Context, analysis *entities.BehavioralAnalysis) error {
	if analysis == nil {
		return errors.New("analysis cannot be nil")
	}
	result := r.db.WithContext(ctx).
		Model(&entities.BehavioralAnalysis{}).
		Where("id = ? AND status = ?", analysis.ID, entities.AnalysisStatusPending).
		Updates(map[string]interface{}{
			"status":             analysis.Status,
			"integrity_score":    analysis.IntegrityScore,
			"flagged_for_review": analysis.FlaggedForReview,
			"segments":           analysis.Segments,
			"metrics":            analysis.Metrics,
			"anomaly_summary":    analysis.AnomalySummary,
			"video_duration_s":   analysis.VideoDurationS,
			"computed_at":        analysis.ComputedAt,
			"last_error":         analysis.LastError,
			"updated_at":         analysis.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.FindByID(ctx, analysis.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return entities.ErrAnalysisNotFound
		}
		return entities.ErrAnalysisAlreadyFinal
	}
	return nil
}

// FindByID retrieves an analysis by its ID
func (r *AnalysisRepository) FindByID(ctx context.Context, analysisID uuid.UUID) (*entities.BehavioralAnalysis, error) {
	var analysis entities.BehavioralAnalysis
	if err := r.db.WithContext(ctx).Where("id = ?", analysisID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// FindPending retrieves the in-flight analysis for a (session, video) pair
func (r *AnalysisRepository) FindPending(ctx context.Context, sessionID uuid.UUID, videoID string) (*entities.BehavioralAnalysis, error) {
	var analysis entities.BehavioralAnalysis
	if err := r.db.WithContext(ctx).
		Where("session_id = ? AND video_id = ? AND status = ?", sessionID, videoID, entities.AnalysisStatusPending).
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// LatestBySession retrieves the most recent analysis version for a session
func (r *AnalysisRepository) LatestBySession(ctx context.Context, sessionID uuid.UUID) (*entities.BehavioralAnalysis, error) {
	var analysis entities.BehavioralAnalysis
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("version DESC, created_at DESC").
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// LatestByVideo retrieves the most recent analysis for a video
func (r *AnalysisRepository) LatestByVideo(ctx context.Context, videoID string) (*entities.BehavioralAnalysis, error) {
	var analysis entities.BehavioralAnalysis
	if err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("version DESC, created_at DESC").
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// NextVersion returns the next analysis version for a (session, video) pair
func (r *AnalysisRepository) NextVersion(ctx context.Context, sessionID uuid.UUID, videoID string) (int, error) {
	var maxVersion int
	if err := r.db.WithContext(ctx).
		Model(&entities.BehavioralAnalysis{}).
		Where("session_id = ? AND video_id = ?", sessionID, videoID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error; err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}

// HistoryByUser retrieves a user's terminal analyses, most recent first
func (r *AnalysisRepository) HistoryByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entities.BehavioralAnalysis, error) {
	var analyses []entities.BehavioralAnalysis
	if limit == 0 {
		limit = 20
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, terminalStatuses()).
		Order("computed_at DESC").
		Limit(limit).
		Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

// LatestBySessions retrieves the latest terminal analysis per session for a user
func (r *AnalysisRepository) LatestBySessions(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) ([]entities.BehavioralAnalysis, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var analyses []entities.BehavioralAnalysis
	if err := r.db.WithContext(ctx).
		Select("DISTINCT ON (session_id) *").
		Where("user_id = ? AND session_id IN ? AND status IN ?", userID, sessionIDs, terminalStatuses()).
		Order("session_id, version DESC").
		Find(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

// DeleteBySession removes all analyses of a session owned by the user and
// returns the number of removed records
func (r *AnalysisRepository) DeleteBySession(ctx context.Context, sessionID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&entities.BehavioralAnalysis{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func terminalStatuses() []entities.AnalysisStatus {
	return []entities.AnalysisStatus{
		entities.AnalysisStatusComplete,
		entities.AnalysisStatusFailedDegraded,
	}
}
