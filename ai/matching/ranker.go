package matching

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// anonymousNickname is substituted when no display name resolves.
const anonymousNickname = "匿名ユーザー"

// Service is the matching engine. It is stateless between calls: every
// request recomputes tags and scores from the records it reads, holds
// them in memory for the duration of the call, and caches nothing.
type Service struct {
	records  RecordSource
	identity IdentityResolver
	semantic *SemanticScorer
	opts     Options
	observer Observer

	// semanticThreshold is the score floor used in ModeSemantic. The tag
	// threshold in opts does not transfer: Jaccard over seven possible
	// tags and LLM-judged closeness live on different scales.
	semanticThreshold float64
}

// NewService creates a matching service over the given collaborators.
// semantic may be nil, in which case ModeSemantic falls back to ModeTags.
func NewService(records RecordSource, identity IdentityResolver, semantic *SemanticScorer, opts Options) *Service {
	opts.normalize()
	return &Service{
		records:           records,
		identity:          identity,
		semantic:          semantic,
		opts:              opts,
		observer:          nopObserver{},
		semanticThreshold: DefaultSemanticThreshold,
	}
}

// SetObserver attaches an observer for engine measurements. The scorer
// shares it, so per-pair failures are counted too. Pass before serving;
// the service does not synchronize observer swaps.
func (s *Service) SetObserver(observer Observer) {
	if observer == nil {
		observer = nopObserver{}
	}
	s.observer = observer
	if s.semantic != nil {
		s.semantic.observer = observer
	}
}

// candidateState accumulates per-owner evidence during a ranking pass.
type candidateState struct {
	score          float64
	tags           []string
	sampleQuestion string
}

// FindMatches ranks other users by how closely their recent consultation
// questions match the requester's. It is the engine's sole public entry
// point; the scorers it composes are independently usable.
//
// A requester with no history gets an empty list and a nil error. Store
// failures surface as ErrDependency. Per-pair semantic failures are
// scored 0 and never abort the batch.
//
// In ModeTags the requester is represented by the tag union of their
// recent history; in ModeSemantic the reference text is the requester's
// most recent question only.
func (s *Service) FindMatches(ctx context.Context, requesterID string, mode Mode) ([]Match, error) {
	if requesterID == "" {
		return nil, ErrNoRequester
	}

	start := time.Now()

	// The two reads are independent; issue them concurrently and wait on
	// both before scoring.
	var requesterRecords, candidateRecords []*ConsultationRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, s.opts.FetchTimeout)
		defer cancel()
		records, err := s.records.RecentRecords(fetchCtx, requesterID, "", s.opts.HistoryDepth)
		if err != nil {
			return fmt.Errorf("fetch requester history: %w: %w", ErrDependency, err)
		}
		requesterRecords = records
		return nil
	})
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, s.opts.FetchTimeout)
		defer cancel()
		records, err := s.records.RecentRecords(fetchCtx, "", requesterID, s.opts.PoolSize)
		if err != nil {
			return fmt.Errorf("fetch candidate pool: %w: %w", ErrDependency, err)
		}
		candidateRecords = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.observer.ObserveCandidatePool(len(candidateRecords))

	if len(requesterRecords) == 0 {
		// Normal outcome, not a fault: nothing to match against.
		slog.Debug("matching: requester has no history", "requester", requesterID)
		return []Match{}, nil
	}

	requesterTagSets := make([][]string, 0, len(requesterRecords))
	for _, record := range requesterRecords {
		requesterTagSets = append(requesterTagSets, ExtractTags(record.Question))
	}
	requesterTags := unionTags(requesterTagSets...)

	scores := s.scoreRecords(ctx, mode, requesterID, requesterTags, requesterRecords[0].Question, candidateRecords)

	// Group by owner: keep the best score seen, the union of all tags
	// across the owner's records, and the first (most recent) question.
	states := make(map[string]*candidateState)
	for i, record := range candidateRecords {
		if record.UserID == requesterID {
			continue
		}
		state, ok := states[record.UserID]
		if !ok {
			state = &candidateState{sampleQuestion: record.Question}
			states[record.UserID] = state
		}
		if scores[i] > state.score {
			state.score = scores[i]
		}
		state.tags = unionTags(state.tags, ExtractTags(record.Question))
	}

	threshold := s.opts.Threshold
	if mode == ModeSemantic && s.semantic != nil {
		threshold = s.semanticThreshold
	}

	matches := make([]Match, 0, len(states))
	for userID, state := range states {
		if state.score <= threshold {
			continue
		}
		matches = append(matches, Match{
			UserID:         userID,
			Score:          state.score,
			CommonTags:     intersectTags(requesterTags, state.tags),
			SampleQuestion: state.sampleQuestion,
		})
	}

	// Descending by score; ties break arbitrarily.
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > s.opts.Limit {
		matches = matches[:s.opts.Limit]
	}

	if err := s.resolveNicknames(ctx, matches); err != nil {
		return nil, err
	}

	slog.Debug("matching: ranking complete",
		"requester", requesterID,
		"mode", string(mode),
		"pool_records", len(candidateRecords),
		"candidates", len(states),
		"matches", len(matches),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return matches, nil
}

// scoreRecords returns one score per candidate record, index-aligned with
// the input slice. Records owned by the requester score 0 and are dropped
// later during grouping.
func (s *Service) scoreRecords(ctx context.Context, mode Mode, requesterID string, requesterTags []string, reference string, candidateRecords []*ConsultationRecord) []float64 {
	scores := make([]float64, len(candidateRecords))

	if mode == ModeSemantic && s.semantic != nil {
		// One completion call per record, compared against the requester's
		// most recent question. Calls are independent; bound the fan-out
		// and let per-pair failures score 0 without cancelling siblings.
		var wg sync.WaitGroup
		sem := make(chan struct{}, s.opts.SemanticWorkers)
		for i, record := range candidateRecords {
			if record.UserID == requesterID {
				continue
			}
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, question string) {
				defer wg.Done()
				defer func() { <-sem }()
				scores[i] = s.semantic.Score(ctx, reference, question)
			}(i, record.Question)
		}
		wg.Wait()
		return scores
	}

	for i, record := range candidateRecords {
		if record.UserID == requesterID {
			continue
		}
		scores[i] = TagSimilarity(requesterTags, ExtractTags(record.Question))
	}
	return scores
}

// resolveNicknames fills in display names for the surviving matches.
// Each lookup is bounded by the same fetch timeout as the store reads.
// A missing name degrades to the anonymous placeholder; an unreachable
// resolver fails the request with ErrDependency.
func (s *Service) resolveNicknames(ctx context.Context, matches []Match) error {
	if s.identity == nil {
		for i := range matches {
			matches[i].Nickname = anonymousNickname
		}
		return nil
	}

	for i := range matches {
		lookupCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
		name, err := s.identity.ResolveDisplayName(lookupCtx, matches[i].UserID)
		cancel()
		if err != nil {
			return fmt.Errorf("resolve display name: %w: %w", ErrDependency, err)
		}
		if name == "" {
			name = anonymousNickname
		}
		matches[i].Nickname = name
	}
	return nil
}
