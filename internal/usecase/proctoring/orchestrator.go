package proctoring

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/assesshub/proctor-engine/internal/domain/entities"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

// SearchOutcome is the joined result of one orchestration attempt: raw hits
// per behavior type plus the set of behavior types whose query failed or
// timed out.
type SearchOutcome struct {
	Hits   map[string][]videosearch.Hit
	Failed []string
}

// AllFailed reports whether every query of the attempt failed. This is the
// hard-failure signal the Retry Coordinator reacts to; it is distinct from
// "zero suspicious behavior found".
func (o SearchOutcome) AllFailed(total int) bool {
	return total > 0 && len(o.Failed) == total
}

// SearchStrategy runs one query per catalog definition against the video
// search service. The strategy is selected once at construction; call sites
// never branch on orchestration mode.
type SearchStrategy interface {
	Run(ctx context.Context, videoID string, defs []entities.BehaviorDefinition) SearchOutcome
}

type queryResult struct {
	behaviorType string
	hits         []videosearch.Hit
	err          error
}

// parallelStrategy fans one goroutine out per definition, bounded by a
// semaphore to respect the search backend's rate limits, and joins at a
// fan-in barrier that also honors the attempt deadline. Workers still in
// flight at the deadline are counted as failed; their late results are
// discarded, never waited upon.
type parallelStrategy struct {
	searcher    videosearch.Searcher
	logger      *zap.Logger
	maxInFlight int
}

// NewParallelStrategy creates the concurrent search strategy.
func NewParallelStrategy(searcher videosearch.Searcher, logger *zap.Logger, maxInFlight int) SearchStrategy {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &parallelStrategy{searcher: searcher, logger: logger, maxInFlight: maxInFlight}
}

func (s *parallelStrategy) Run(ctx context.Context, videoID string, defs []entities.BehaviorDefinition) SearchOutcome {
	results := make(chan queryResult, len(defs))
	sem := make(chan struct{}, s.maxInFlight)

	var wg sync.WaitGroup
	for _, def := range defs {
		wg.Add(1)
		go func(def entities.BehaviorDefinition) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- queryResult{behaviorType: def.BehaviorType, err: ctx.Err()}
				return
			}

			hits, err := s.searcher.Search(ctx, videoID, def.QueryText)
			results <- queryResult{behaviorType: def.BehaviorType, hits: hits, err: err}
		}(def)
	}

	// Fan-in barrier: settle when every worker reported or the deadline
	// elapsed, whichever comes first.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	outcome := SearchOutcome{Hits: make(map[string][]videosearch.Hit, len(defs))}
	reported := make(map[string]bool, len(defs))

drain:
	for {
		select {
		case res := <-results:
			reported[res.behaviorType] = true
			if res.err != nil {
				// Partial failure: recorded as no hits plus a logged
				// failure, orchestration proceeds with what succeeded.
				if s.logger != nil {
					s.logger.Warn("behavior search failed",
						zap.String("video_id", videoID),
						zap.String("behavior_type", res.behaviorType),
						zap.Error(res.err),
					)
				}
				outcome.Failed = append(outcome.Failed, res.behaviorType)
				continue
			}
			outcome.Hits[res.behaviorType] = res.hits
		default:
			break drain
		}
	}

	// Workers that never reported before the deadline count as failed.
	for _, def := range defs {
		if !reported[def.BehaviorType] {
			if s.logger != nil {
				s.logger.Warn("behavior search timed out",
					zap.String("video_id", videoID),
					zap.String("behavior_type", def.BehaviorType),
				)
			}
			outcome.Failed = append(outcome.Failed, def.BehaviorType)
		}
	}

	return outcome
}

// sequentialStrategy issues calls one at a time in catalog order. Used where
// the search backend is rate-sensitive and for deterministic testing.
type sequentialStrategy struct {
	searcher videosearch.Searcher
	logger   *zap.Logger
}

// NewSequentialStrategy creates the one-at-a-time search strategy.
func NewSequentialStrategy(searcher videosearch.Searcher, logger *zap.Logger) SearchStrategy {
	return &sequentialStrategy{searcher: searcher, logger: logger}
}

func (s *sequentialStrategy) Run(ctx context.Context, videoID string, defs []entities.BehaviorDefinition) SearchOutcome {
	outcome := SearchOutcome{Hits: make(map[string][]videosearch.Hit, len(defs))}

	for i, def := range defs {
		if ctx.Err() != nil {
			// Deadline elapsed: everything not yet queried is failed.
			for _, rest := range defs[i:] {
				outcome.Failed = append(outcome.Failed, rest.BehaviorType)
			}
			return outcome
		}

		hits, err := s.searcher.Search(ctx, videoID, def.QueryText)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("behavior search failed",
					zap.String("video_id", videoID),
					zap.String("behavior_type", def.BehaviorType),
					zap.Error(err),
				)
			}
			outcome.Failed = append(outcome.Failed, def.BehaviorType)
			continue
		}
		outcome.Hits[def.BehaviorType] = hits
	}

	return outcome
}
