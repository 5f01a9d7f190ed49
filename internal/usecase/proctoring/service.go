package proctoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/internal/domain/repositories"
	"github.com/assesshub/proctor-engine/internal/infrastructure/cache"
	usecaseerrors "github.com/assesshub/proctor-engine/internal/usecase/errors"
)

// HighlightFilter narrows the suspicious segments returned for UI display.
type HighlightFilter struct {
	Severity     entities.Severity
	BehaviorType string
	Limit        int
}

// Service is the proctoring analysis facade consumed by the HTTP layer.
type Service interface {
	// StartAnalysis claims the pending slot for (session, video) and kicks
	// the analysis in the background, or attaches to an in-flight one.
	StartAnalysis(ctx context.Context, sessionID, userID uuid.UUID, videoID string, force bool) (*entities.BehavioralAnalysis, error)
	GetAnalysis(ctx context.Context, sessionID uuid.UUID) (*entities.BehavioralAnalysis, error)
	GetHighlights(ctx context.Context, sessionID uuid.UUID, filter HighlightFilter) ([]entities.SuspiciousSegment, error)
	GetReport(ctx context.Context, sessionID uuid.UUID) (*entities.ProctoringReport, error)
	CompareSessions(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) (*entities.SessionComparison, error)
	StatusByVideo(ctx context.Context, videoID string) (*entities.BehavioralAnalysis, error)
	DeleteAnalysis(ctx context.Context, sessionID, userID uuid.UUID) error
}

// ServiceOptions tunes the facade.
type ServiceOptions struct {
	TopConcerns      int
	ComparisonWindow int
	TrendEpsilon     float64
	ReportCacheTTL   time.Duration
	// AnalysisTimeout bounds one whole background analysis including
	// retries and backoff delays.
	AnalysisTimeout time.Duration
}

type proctoringService struct {
	analysisRepo repositories.AnalysisRepository
	coordinator  *Coordinator
	reportCache  cache.Store
	opts         ServiceOptions
	logger       *zap.Logger
}

// NewService constructs the proctoring service.
func NewService(
	analysisRepo repositories.AnalysisRepository,
	coordinator *Coordinator,
	reportCache cache.Store,
	opts ServiceOptions,
	logger *zap.Logger,
) Service {
	if opts.TopConcerns <= 0 {
		opts.TopConcerns = 5
	}
	if opts.ComparisonWindow <= 0 {
		opts.ComparisonWindow = 5
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = time.Hour
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 10 * time.Minute
	}
	return &proctoringService{
		analysisRepo: analysisRepo,
		coordinator:  coordinator,
		reportCache:  reportCache,
		opts:         opts,
		logger:       logger,
	}
}

func (s *proctoringService) StartAnalysis(ctx context.Context, sessionID, userID uuid.UUID, videoID string, force bool) (*entities.BehavioralAnalysis, error) {
	if videoID == "" {
		return nil, usecaseerrors.ErrInvalidInput
	}

	// Single-flight: attach to an existing pending record instead of
	// starting a duplicate.
	pending, err := s.analysisRepo.FindPending(ctx, sessionID, videoID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if force {
			// A forced re-run cannot preempt an in-flight attempt; the
			// caller should poll status and retry once it settles.
			return nil, usecaseerrors.ErrConcurrentAnalysis
		}
		if s.logger != nil {
			s.logger.Info("attaching to in-flight analysis",
				zap.String("analysis_id", pending.ID.String()),
				zap.String("video_id", videoID),
			)
		}
		return pending, nil
	}

	if !force {
		latest, err := s.analysisRepo.LatestBySession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.VideoID == videoID && latest.IsTerminal() {
			return latest, nil
		}
	}

	version, err := s.analysisRepo.NextVersion(ctx, sessionID, videoID)
	if err != nil {
		return nil, err
	}

	analysis := entities.NewBehavioralAnalysis(sessionID, userID, videoID, version)
	if err := s.analysisRepo.ClaimPending(ctx, analysis); err != nil {
		if errors.Is(err, entities.ErrConcurrentAnalysis) {
			// Lost the claim race; attach to the winner.
			if winner, ferr := s.analysisRepo.FindPending(ctx, sessionID, videoID); ferr == nil && winner != nil {
				return winner, nil
			}
			return nil, usecaseerrors.ErrConcurrentAnalysis
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("analysis started",
			zap.String("analysis_id", analysis.ID.String()),
			zap.String("session_id", sessionID.String()),
			zap.String("video_id", videoID),
			zap.Int("version", version),
			zap.Bool("forced", force),
		)
	}

	// The request returns immediately; orchestration, retries and backoff
	// run on their own goroutine detached from the request context. The
	// goroutine owns its copy of the record, so the snapshot returned to
	// the caller is never written concurrently.
	run := *analysis
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), s.opts.AnalysisTimeout)
		defer cancel()
		s.coordinator.Analyze(runCtx, &run)
	}()

	return analysis, nil
}

func (s *proctoringService) GetAnalysis(ctx context.Context, sessionID uuid.UUID) (*entities.BehavioralAnalysis, error) {
	analysis, err := s.analysisRepo.LatestBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, usecaseerrors.ErrAnalysisNotFound
	}
	return analysis, nil
}

func (s *proctoringService) GetHighlights(ctx context.Context, sessionID uuid.UUID, filter HighlightFilter) ([]entities.SuspiciousSegment, error) {
	analysis, err := s.GetAnalysis(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !analysis.IsTerminal() {
		return nil, usecaseerrors.ErrAnalysisPending
	}

	highlights := make([]entities.SuspiciousSegment, 0, len(analysis.Segments))
	for _, seg := range analysis.Segments {
		if filter.Severity != "" && seg.Severity != filter.Severity {
			continue
		}
		if filter.BehaviorType != "" && seg.BehaviorType != filter.BehaviorType {
			continue
		}
		highlights = append(highlights, seg)
		if filter.Limit > 0 && len(highlights) >= filter.Limit {
			break
		}
	}
	return highlights, nil
}

func (s *proctoringService) GetReport(ctx context.Context, sessionID uuid.UUID) (*entities.ProctoringReport, error) {
	analysis, err := s.GetAnalysis(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !analysis.IsTerminal() {
		return nil, usecaseerrors.ErrAnalysisPending
	}

	key := reportCacheKey(analysis.ID, analysis.Version)
	if cached, found, cerr := s.reportCache.Get(ctx, key); cerr == nil && found {
		var report entities.ProctoringReport
		if err := json.Unmarshal([]byte(cached), &report); err == nil {
			return &report, nil
		}
		// Corrupt cache entry; fall through and regenerate.
	} else if cerr != nil && s.logger != nil {
		s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(cerr))
	}

	report := GenerateReport(analysis, ReportOptions{TopConcerns: s.opts.TopConcerns})

	if payload, merr := json.Marshal(report); merr == nil {
		if cerr := s.reportCache.Set(ctx, key, string(payload), s.opts.ReportCacheTTL); cerr != nil && s.logger != nil {
			s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(cerr))
		}
	}

	return report, nil
}

func (s *proctoringService) CompareSessions(ctx context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) (*entities.SessionComparison, error) {
	var analyses []entities.BehavioralAnalysis
	var err error

	if len(sessionIDs) > 0 {
		analyses, err = s.analysisRepo.LatestBySessions(ctx, userID, sessionIDs)
	} else {
		analyses, err = s.analysisRepo.HistoryByUser(ctx, userID, s.opts.ComparisonWindow+1)
	}
	if err != nil {
		return nil, err
	}
	if len(analyses) == 0 {
		return nil, usecaseerrors.ErrAnalysisNotFound
	}

	// Most recent analysis is the comparison subject; the rest form the
	// prior window.
	sort.SliceStable(analyses, func(i, j int) bool {
		ti, tj := analyses[i].ComputedAt, analyses[j].ComputedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})
	current := &analyses[0]
	prior := analyses[1:]
	if len(prior) > s.opts.ComparisonWindow {
		prior = prior[:s.opts.ComparisonWindow]
	}

	return CompareSessions(current, prior, DefaultComparatorOptions(s.opts.TrendEpsilon)), nil
}

func (s *proctoringService) StatusByVideo(ctx context.Context, videoID string) (*entities.BehavioralAnalysis, error) {
	analysis, err := s.analysisRepo.LatestByVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if analysis == nil {
		return nil, usecaseerrors.ErrAnalysisNotFound
	}
	return analysis, nil
}

func (s *proctoringService) DeleteAnalysis(ctx context.Context, sessionID, userID uuid.UUID) error {
	latest, err := s.analysisRepo.LatestBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if latest == nil {
		return usecaseerrors.ErrAnalysisNotFound
	}
	if latest.UserID != userID {
		return usecaseerrors.ErrNotOwner
	}

	removed, err := s.analysisRepo.DeleteBySession(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return usecaseerrors.ErrAnalysisNotFound
	}

	// Older versions age out of the cache by TTL; the latest is evicted
	// eagerly so a purged analysis can never serve a stale report.
	key := reportCacheKey(latest.ID, latest.Version)
	if cerr := s.reportCache.Delete(ctx, key); cerr != nil && s.logger != nil {
		s.logger.Warn("report cache eviction failed", zap.String("key", key), zap.Error(cerr))
	}

	if s.logger != nil {
		s.logger.Info("analyses purged",
			zap.String("session_id", sessionID.String()),
			zap.Int64("removed", removed),
		)
	}
	return nil
}

func reportCacheKey(analysisID uuid.UUID, version int) string {
	return fmt.Sprintf("proctoring:report:%s:v%d", analysisID.String(), version)
}
