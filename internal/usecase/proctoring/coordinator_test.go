package proctoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

// stubAnalysisRepo is an in-memory AnalysisRepository for coordinator and
// service tests.
type stubAnalysisRepo struct {
	mu        sync.Mutex
	records   map[uuid.UUID]*entities.BehavioralAnalysis
	finalized []uuid.UUID
	// finalizeErrs are consumed one per Finalize call to simulate
	// transient persistence failures.
	finalizeErrs []error
}

func newStubAnalysisRepo() *stubAnalysisRepo {
	return &stubAnalysisRepo{records: make(map[uuid.UUID]*entities.BehavioralAnalysis)}
}

func (r *stubAnalysisRepo) ClaimPending(_ context.Context, analysis *entities.BehavioralAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.SessionID == analysis.SessionID &&
			existing.VideoID == analysis.VideoID &&
			existing.Status == entities.AnalysisStatusPending {
			return entities.ErrConcurrentAnalysis
		}
	}
	clone := *analysis
	r.records[analysis.ID] = &clone
	return nil
}

func (r *stubAnalysisRepo) Finalize(_ context.Context, analysis *entities.BehavioralAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.finalizeErrs) > 0 {
		err := r.finalizeErrs[0]
		r.finalizeErrs = r.finalizeErrs[1:]
		if err != nil {
			return err
		}
	}
	clone := *analysis
	r.records[analysis.ID] = &clone
	r.finalized = append(r.finalized, analysis.ID)
	return nil
}

func (r *stubAnalysisRepo) FindByID(_ context.Context, analysisID uuid.UUID) (*entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if found, ok := r.records[analysisID]; ok {
		clone := *found
		return &clone, nil
	}
	return nil, nil
}

func (r *stubAnalysisRepo) FindPending(_ context.Context, sessionID uuid.UUID, videoID string) (*entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.SessionID == sessionID && existing.VideoID == videoID &&
			existing.Status == entities.AnalysisStatusPending {
			clone := *existing
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubAnalysisRepo) LatestBySession(_ context.Context, sessionID uuid.UUID) (*entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entities.BehavioralAnalysis
	for _, existing := range r.records {
		if existing.SessionID != sessionID {
			continue
		}
		if latest == nil || existing.Version > latest.Version {
			latest = existing
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *stubAnalysisRepo) LatestByVideo(_ context.Context, videoID string) (*entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entities.BehavioralAnalysis
	for _, existing := range r.records {
		if existing.VideoID != videoID {
			continue
		}
		if latest == nil || existing.Version > latest.Version {
			latest = existing
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (r *stubAnalysisRepo) NextVersion(_ context.Context, sessionID uuid.UUID, videoID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, existing := range r.records {
		if existing.SessionID == sessionID && existing.VideoID == videoID && existing.Version > max {
			max = existing.Version
		}
	}
	return max + 1, nil
}

func (r *stubAnalysisRepo) HistoryByUser(_ context.Context, userID uuid.UUID, limit int) ([]entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.BehavioralAnalysis
	for _, existing := range r.records {
		if existing.UserID == userID && existing.IsTerminal() {
			out = append(out, *existing)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubAnalysisRepo) LatestBySessions(_ context.Context, userID uuid.UUID, sessionIDs []uuid.UUID) ([]entities.BehavioralAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entities.BehavioralAnalysis
	for _, sessionID := range sessionIDs {
		var latest *entities.BehavioralAnalysis
		for _, existing := range r.records {
			if existing.UserID != userID || existing.SessionID != sessionID || !existing.IsTerminal() {
				continue
			}
			if latest == nil || existing.Version > latest.Version {
				latest = existing
			}
		}
		if latest != nil {
			out = append(out, *latest)
		}
	}
	return out, nil
}

func (r *stubAnalysisRepo) DeleteBySession(_ context.Context, sessionID, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, existing := range r.records {
		if existing.SessionID == sessionID && existing.UserID == userID {
			delete(r.records, id)
			removed++
		}
	}
	return removed, nil
}

func (r *stubAnalysisRepo) stored(id uuid.UUID) *entities.BehavioralAnalysis {
	r.mu.Lock()
	defer r.mu.Unlock()
	if found, ok := r.records[id]; ok {
		clone := *found
		return &clone
	}
	return nil
}

// scriptedStrategy replays a fixed sequence of outcomes, one per attempt.
type scriptedStrategy struct {
	mu       sync.Mutex
	outcomes []SearchOutcome
	attempts int
}

func (s *scriptedStrategy) Run(_ context.Context, _ string, defs []entities.BehaviorDefinition) SearchOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.attempts
	s.attempts++
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	return s.outcomes[idx]
}

func (s *scriptedStrategy) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func allFailedOutcome(defs []entities.BehaviorDefinition) SearchOutcome {
	outcome := SearchOutcome{Hits: map[string][]videosearch.Hit{}}
	for _, def := range defs {
		outcome.Failed = append(outcome.Failed, def.BehaviorType)
	}
	return outcome
}

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		AttemptDeadline: time.Second,
	}
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalogFromDefinitions("development", testDefs())
	require.NoError(t, err)
	return catalog
}

func TestCoordinator_SuccessfulAnalysis(t *testing.T) {
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{{
		Hits: map[string][]videosearch.Hit{
			entities.BehaviorLookingAway: {{StartS: 10, EndS: 30, Confidence: 0.8}},
			entities.BehaviorPhoneUsage:  {},
		},
	}}}
	searcher := newStubSearcher()
	searcher.metadata = &videosearch.VideoMetadata{VideoID: "video-1", DurationS: 1800}
	repo := newStubAnalysisRepo()

	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))

	coordinator := NewCoordinator(strategy, mustCatalog(t), searcher, repo,
		DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
	coordinator.Analyze(context.Background(), analysis)

	assert.Equal(t, entities.AnalysisStatusComplete, analysis.Status)
	assert.Equal(t, 1, strategy.attemptCount())
	assert.Len(t, analysis.Segments, 1)
	assert.Equal(t, 1800.0, analysis.VideoDurationS)
	assert.Less(t, analysis.IntegrityScore, 1.0)
	require.NotNil(t, analysis.ComputedAt)

	stored := repo.stored(analysis.ID)
	require.NotNil(t, stored)
	assert.Equal(t, entities.AnalysisStatusComplete, stored.Status)
}

func TestCoordinator_RetriesTotalFailureThenSucceeds(t *testing.T) {
	defs := testDefs()
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{
		allFailedOutcome(defs),
		{Hits: map[string][]videosearch.Hit{
			entities.BehaviorLookingAway: {{StartS: 10, EndS: 30, Confidence: 0.8}},
		}},
	}}
	repo := newStubAnalysisRepo()
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))

	coordinator := NewCoordinator(strategy, mustCatalog(t), newStubSearcher(), repo,
		DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
	coordinator.Analyze(context.Background(), analysis)

	assert.Equal(t, 2, strategy.attemptCount())
	assert.Equal(t, entities.AnalysisStatusComplete, analysis.Status)
	assert.Len(t, analysis.Segments, 1)
}

func TestCoordinator_DegradesAfterExhaustingRetries(t *testing.T) {
	defs := testDefs()
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{allFailedOutcome(defs)}}
	repo := newStubAnalysisRepo()
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))

	policy := testRetryPolicy()
	coordinator := NewCoordinator(strategy, mustCatalog(t), newStubSearcher(), repo,
		DefaultScoringThresholds(0.55), policy, nil)
	coordinator.Analyze(context.Background(), analysis)

	// Initial attempt plus MaxRetries retries, then fail-open.
	assert.Equal(t, policy.MaxRetries+1, strategy.attemptCount())
	assert.Equal(t, entities.AnalysisStatusFailedDegraded, analysis.Status)
	assert.Equal(t, 1.0, analysis.IntegrityScore)
	assert.False(t, analysis.FlaggedForReview)
	assert.Empty(t, analysis.Segments)
	require.NotNil(t, analysis.LastError)

	stored := repo.stored(analysis.ID)
	require.NotNil(t, stored)
	assert.Equal(t, entities.AnalysisStatusFailedDegraded, stored.Status)
}

func TestCoordinator_PartialFailureIsNotRetried(t *testing.T) {
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{{
		Hits: map[string][]videosearch.Hit{
			entities.BehaviorLookingAway: {{StartS: 10, EndS: 30, Confidence: 0.8}},
		},
		Failed: []string{entities.BehaviorPhoneUsage, entities.BehaviorPersonAbsent},
	}}}
	repo := newStubAnalysisRepo()
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))

	coordinator := NewCoordinator(strategy, mustCatalog(t), newStubSearcher(), repo,
		DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
	coordinator.Analyze(context.Background(), analysis)

	assert.Equal(t, 1, strategy.attemptCount())
	assert.Equal(t, entities.AnalysisStatusComplete, analysis.Status)
}

func TestCoordinator_FinalizeRetriedOnce(t *testing.T) {
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{{
		Hits: map[string][]videosearch.Hit{},
	}}}
	repo := newStubAnalysisRepo()
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))
	repo.finalizeErrs = []error{assert.AnError}

	coordinator := NewCoordinator(strategy, mustCatalog(t), newStubSearcher(), repo,
		DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
	coordinator.Analyze(context.Background(), analysis)

	stored := repo.stored(analysis.ID)
	require.NotNil(t, stored)
	assert.Equal(t, entities.AnalysisStatusComplete, stored.Status)
}

func TestCoordinator_RepeatedRunsProduceIdenticalResults(t *testing.T) {
	// Unordered, mergeable hits so the run exercises the full filter,
	// merge, and scoring pipeline, not just a pass-through.
	hits := map[string][]videosearch.Hit{
		entities.BehaviorLookingAway: {
			{StartS: 40, EndS: 55, Confidence: 0.75},
			{StartS: 10, EndS: 30, Confidence: 0.8},
			{StartS: 31, EndS: 38, Confidence: 0.9},
		},
		entities.BehaviorPhoneUsage: {
			{StartS: 200, EndS: 215, Confidence: 0.95},
		},
	}

	runOnce := func() *entities.BehavioralAnalysis {
		strategy := &scriptedStrategy{outcomes: []SearchOutcome{{Hits: hits}}}
		searcher := newStubSearcher()
		searcher.metadata = &videosearch.VideoMetadata{VideoID: "video-1", DurationS: 1800}
		repo := newStubAnalysisRepo()
		analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
		require.NoError(t, repo.ClaimPending(context.Background(), analysis))

		coordinator := NewCoordinator(strategy, mustCatalog(t), searcher, repo,
			DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
		coordinator.Analyze(context.Background(), analysis)
		return analysis
	}

	first := runOnce()
	second := runOnce()

	require.Equal(t, entities.AnalysisStatusComplete, first.Status)
	assert.Equal(t, first.Segments, second.Segments)
	assert.Equal(t, first.IntegrityScore, second.IntegrityScore)
	assert.Equal(t, first.Metrics, second.Metrics)
	assert.Equal(t, first.FlaggedForReview, second.FlaggedForReview)
	assert.Equal(t, first.AnomalySummary, second.AnomalySummary)
}

func TestCoordinator_MetadataFailureFallsBackToNominalDuration(t *testing.T) {
	strategy := &scriptedStrategy{outcomes: []SearchOutcome{{
		Hits: map[string][]videosearch.Hit{},
	}}}
	searcher := newStubSearcher()
	searcher.metaErr = assert.AnError
	repo := newStubAnalysisRepo()
	analysis := entities.NewBehavioralAnalysis(uuid.New(), uuid.New(), "video-1", 1)
	require.NoError(t, repo.ClaimPending(context.Background(), analysis))

	coordinator := NewCoordinator(strategy, mustCatalog(t), searcher, repo,
		DefaultScoringThresholds(0.55), testRetryPolicy(), nil)
	coordinator.Analyze(context.Background(), analysis)

	assert.Equal(t, entities.AnalysisStatusComplete, analysis.Status)
	assert.Equal(t, float64(defaultVideoDurationS), analysis.VideoDurationS)
	assert.Equal(t, 1.0, analysis.IntegrityScore)
}
