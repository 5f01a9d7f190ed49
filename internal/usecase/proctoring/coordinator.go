package proctoring

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/internal/domain/repositories"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

// RetryPolicy bounds the coordinator's retry loop.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	AttemptDeadline time.Duration
}

// Coordinator drives one full analysis: it runs the search strategy against
// the catalog under a per-attempt deadline, retries total failures with
// jittered exponential backoff, and on exhaustion finalizes a fail-open
// degraded record. It never returns an error for transient external
// failure.
type Coordinator struct {
	strategy     SearchStrategy
	catalog      *Catalog
	searcher     videosearch.Searcher
	analysisRepo repositories.AnalysisRepository
	scoring      ScoringThresholds
	retry        RetryPolicy
	logger       *zap.Logger
}

// NewCoordinator wires the retry coordinator.
func NewCoordinator(
	strategy SearchStrategy,
	catalog *Catalog,
	searcher videosearch.Searcher,
	analysisRepo repositories.AnalysisRepository,
	scoring ScoringThresholds,
	retry RetryPolicy,
	logger *zap.Logger,
) *Coordinator {
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 2 * time.Second
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = 30 * time.Second
	}
	if retry.AttemptDeadline <= 0 {
		retry.AttemptDeadline = 90 * time.Second
	}
	return &Coordinator{
		strategy:     strategy,
		catalog:      catalog,
		searcher:     searcher,
		analysisRepo: analysisRepo,
		scoring:      scoring,
		retry:        retry,
		logger:       logger,
	}
}

// Analyze runs the orchestration for a claimed pending record and finalizes
// it in a terminal state. The record is mutated in place with the outcome.
func (c *Coordinator) Analyze(ctx context.Context, analysis *entities.BehavioralAnalysis) {
	defs := c.catalog.Definitions()

	videoDurationS := c.resolveVideoDuration(ctx, analysis.VideoID)

	attempt := func() (SearchOutcome, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.retry.AttemptDeadline)
		defer cancel()

		outcome := c.strategy.Run(attemptCtx, analysis.VideoID, defs)
		if outcome.AllFailed(len(defs)) {
			return SearchOutcome{}, entities.ErrAllSearchesFailed
		}
		return outcome, nil
	}

	var outcome SearchOutcome
	run := func() error {
		var err error
		outcome, err = attempt()
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retry.InitialInterval
	bo.MaxInterval = c.retry.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by retry count and ctx, not wall clock

	notify := func(err error, next time.Duration) {
		if c.logger != nil {
			c.logger.Warn("analysis attempt failed, backing off",
				zap.String("analysis_id", analysis.ID.String()),
				zap.String("video_id", analysis.VideoID),
				zap.Duration("next_retry_in", next),
				zap.Error(err),
			)
		}
	}

	err := backoff.RetryNotify(run,
		backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(c.retry.MaxRetries)),
		notify,
	)
	if err != nil {
		// Fail-open: an analysis outage must never block a candidate's
		// submission or falsely flag them.
		if c.logger != nil {
			c.logger.Error("analysis degraded after exhausting retries",
				zap.String("analysis_id", analysis.ID.String()),
				zap.String("video_id", analysis.VideoID),
				zap.Int("max_retries", c.retry.MaxRetries),
				zap.Error(err),
			)
		}
		analysis.MarkAsDegraded(err.Error())
		c.finalize(ctx, analysis)
		return
	}

	segments := BuildSegments(outcome, defs)
	metrics, score, flagged, summary := ScoreAnalysis(segments, videoDurationS, c.scoring)
	analysis.MarkAsComplete(segments, metrics, score, flagged, summary, videoDurationS)

	if c.logger != nil {
		c.logger.Info("analysis complete",
			zap.String("analysis_id", analysis.ID.String()),
			zap.String("video_id", analysis.VideoID),
			zap.Float64("integrity_score", score),
			zap.Bool("flagged_for_review", flagged),
			zap.Int("segment_count", len(segments)),
			zap.Int("failed_queries", len(outcome.Failed)),
		)
	}

	c.finalize(ctx, analysis)
}

// finalize persists the terminal record. Persistence failure is retried
// once; the analysis stays recomputable from the same inputs, so a second
// failure is logged and surfaced through the pending record's status.
func (c *Coordinator) finalize(ctx context.Context, analysis *entities.BehavioralAnalysis) {
	err := c.analysisRepo.Finalize(ctx, analysis)
	if err == nil {
		return
	}
	if c.logger != nil {
		c.logger.Warn("finalize failed, retrying once",
			zap.String("analysis_id", analysis.ID.String()),
			zap.Error(err),
		)
	}
	if err = c.analysisRepo.Finalize(ctx, analysis); err != nil && c.logger != nil {
		c.logger.Error("failed to persist analysis result",
			zap.String("analysis_id", analysis.ID.String()),
			zap.Error(err),
		)
	}
}

// resolveVideoDuration asks the search service for the indexed video's
// duration. Metadata failure is not fatal: scoring falls back to a nominal
// duration so a metadata blip cannot sink an otherwise healthy analysis.
func (c *Coordinator) resolveVideoDuration(ctx context.Context, videoID string) float64 {
	meta, err := c.searcher.Metadata(ctx, videoID)
	if err != nil || meta == nil || meta.DurationS <= 0 {
		if c.logger != nil {
			c.logger.Warn("video duration unavailable, using fallback",
				zap.String("video_id", videoID),
				zap.Error(err),
			)
		}
		return defaultVideoDurationS
	}
	return meta.DurationS
}

// defaultVideoDurationS is the nominal assessment length assumed when the
// search service cannot report the real one.
const defaultVideoDurationS = 3600
