package matching

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordSource serves canned histories. It deliberately ignores the
// exclude filter so tests can verify the engine drops the requester's
// own records itself.
type fakeRecordSource struct {
	byUser map[string][]*ConsultationRecord
	pool   []*ConsultationRecord
	err    error
}

func (f *fakeRecordSource) RecentRecords(_ context.Context, userID, _ string, limit int) ([]*ConsultationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	records := f.pool
	if userID != "" {
		records = f.byUser[userID]
	}
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

type fakeIdentityResolver struct {
	names map[string]string
	err   error
}

func (f *fakeIdentityResolver) ResolveDisplayName(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.names[userID], nil
}

func record(userID, question string, createdTs int64) *ConsultationRecord {
	return &ConsultationRecord{UserID: userID, Question: question, CreatedTs: createdTs}
}

func newTestService(source *fakeRecordSource, identity *fakeIdentityResolver, opts Options) *Service {
	return NewService(source, identity, nil, opts)
}

func TestFindMatches_EmptyRequesterHistory(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{},
		pool:   []*ConsultationRecord{record("candidate", "彼氏と別れたい", 1)},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatches_MissingRequesterID(t *testing.T) {
	service := newTestService(&fakeRecordSource{}, &fakeIdentityResolver{}, Options{})

	_, err := service.FindMatches(context.Background(), "", ModeTags)
	assert.ErrorIs(t, err, ErrNoRequester)
}

func TestFindMatches_DisjointTagsExcluded(t *testing.T) {
	// Requester asks about love, candidate about work: Jaccard 0.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "転職するべきか悩んでいる", 9)},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatches_PartialOverlapIncluded(t *testing.T) {
	// Requester profile {love, money}, candidate {love}: score 0.5 > 0.3.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {
				record("requester", "彼氏とのお金の問題で悩んでいます", 10),
			},
		},
		pool: []*ConsultationRecord{record("candidate", "片思いの相手に告白するべきか", 9)},
	}
	service := newTestService(source, &fakeIdentityResolver{names: map[string]string{"candidate": "ルナ"}}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "candidate", match.UserID)
	assert.Greater(t, match.Score, 0.3)
	assert.Contains(t, match.CommonTags, TagLove)
	assert.NotContains(t, match.CommonTags, TagMoney)
	assert.Equal(t, "片思いの相手に告白するべきか", match.SampleQuestion)
	assert.Equal(t, "ルナ", match.Nickname)
}

func TestFindMatches_MaxScoreAggregation(t *testing.T) {
	// One weak record and one strong record for the same candidate: the
	// aggregated score is the maximum, not the average.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{
			record("candidate", "失恋から立ち直れない", 9), // {love} -> 1.0
			record("candidate", "転職するべきか", 8),     // {work} -> 0.0
		},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1.0, matches[0].Score)
	// The sample question is the candidate's most recent record.
	assert.Equal(t, "失恋から立ち直れない", matches[0].SampleQuestion)
}

func TestFindMatches_ExcludesRequesterOwnRecords(t *testing.T) {
	// The fake source leaks the requester's own rows into the pool; the
	// engine must still never match a user with themselves.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{
			record("requester", "彼氏と別れたい", 10),
			record("candidate", "失恋しました", 9),
		},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "candidate", matches[0].UserID)
}

func TestFindMatches_ThresholdIsStrict(t *testing.T) {
	// Candidate scores exactly the threshold: excluded, the bound is strict.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏とのお金の問題で悩んでいます", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "片思い中です", 9)}, // score 0.5
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{Threshold: 0.5})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindMatches_ZeroThresholdAdmitsAnyOverlap(t *testing.T) {
	// Requester profile {love, work, relationships, money}, candidate
	// {love}: score 0.25. A configured threshold of 0 must keep it; the
	// default threshold would drop it.
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と家族とお金と仕事のことで悩んでいます", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "片思い中です", 9)},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{Threshold: 0})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.25, matches[0].Score, 1e-9)

	service = newTestService(source, &fakeIdentityResolver{}, Options{Threshold: -1})
	matches, err = service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Empty(t, matches, "a negative threshold selects the 0.3 default")
}

func TestFindMatches_LimitAndOrdering(t *testing.T) {
	pool := make([]*ConsultationRecord, 0, 15)
	for i := 0; i < 15; i++ {
		pool = append(pool, record(fmt.Sprintf("candidate-%d", i), "彼氏と喧嘩しました", int64(100-i)))
	}
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 200)},
		},
		pool: pool,
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{Limit: 10})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Len(t, matches, 10)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score, "matches must be ordered by score descending")
	}
	for _, match := range matches {
		assert.Greater(t, match.Score, 0.3)
	}
}

func TestFindMatches_StoreFailureIsDependencyError(t *testing.T) {
	source := &fakeRecordSource{err: errors.New("connection refused")}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})

	_, err := service.FindMatches(context.Background(), "requester", ModeTags)
	assert.ErrorIs(t, err, ErrDependency)
}

func TestFindMatches_ResolverFailureIsDependencyError(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "失恋しました", 9)},
	}
	service := newTestService(source, &fakeIdentityResolver{err: errors.New("identity service down")}, Options{})

	_, err := service.FindMatches(context.Background(), "requester", ModeTags)
	assert.ErrorIs(t, err, ErrDependency)
}

// blockingResolver never answers; it returns only when its context is
// cancelled, like a wedged identity backend.
type blockingResolver struct{}

func (blockingResolver) ResolveDisplayName(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestFindMatches_ResolverHonorsFetchTimeout(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "失恋しました", 9)},
	}
	service := NewService(source, blockingResolver{}, nil, Options{FetchTimeout: 20 * time.Millisecond})

	// The caller context carries no deadline, so only the per-lookup
	// timeout can unblock the resolver.
	done := make(chan error, 1)
	go func() {
		_, err := service.FindMatches(context.Background(), "requester", ModeTags)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDependency)
	case <-time.After(2 * time.Second):
		t.Fatal("nickname resolution must time out instead of blocking the request")
	}
}

func TestFindMatches_AnonymousFallback(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "失恋しました", 9)},
	}
	service := newTestService(source, &fakeIdentityResolver{names: map[string]string{}}, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "匿名ユーザー", matches[0].Nickname)
}

// selectiveCompleter fails only for prompts mentioning a marker question,
// simulating a mid-batch network failure.
type selectiveCompleter struct {
	failMarker string
}

func (s *selectiveCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	if strings.Contains(userPrompt, s.failMarker) {
		return "", errors.New("network failure")
	}
	return "0.9", nil
}

func TestFindMatches_SemanticBatchIsolation(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{
			record("healthy", "失恋しました", 9),
			record("broken", "通信障害マーカー", 8),
		},
	}
	scorer := NewSemanticScorer(&selectiveCompleter{failMarker: "通信障害マーカー"}, 0, 0)
	service := NewService(source, &fakeIdentityResolver{}, scorer, Options{SemanticWorkers: 2})

	matches, err := service.FindMatches(context.Background(), "requester", ModeSemantic)
	require.NoError(t, err, "one failing pair must not abort the batch")
	require.Len(t, matches, 1)
	assert.Equal(t, "healthy", matches[0].UserID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-9)
}

func TestFindMatches_ReportsPoolSizeToObserver(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{
			record("a", "失恋しました", 9),
			record("b", "転職するべきか", 8),
		},
	}
	service := newTestService(source, &fakeIdentityResolver{}, Options{})
	observer := &countingObserver{}
	service.SetObserver(observer)

	_, err := service.FindMatches(context.Background(), "requester", ModeTags)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, observer.poolSizes)
}

func TestFindMatches_SemanticModeWithoutScorerFallsBack(t *testing.T) {
	source := &fakeRecordSource{
		byUser: map[string][]*ConsultationRecord{
			"requester": {record("requester", "彼氏と別れたい", 10)},
		},
		pool: []*ConsultationRecord{record("candidate", "失恋しました", 9)},
	}
	service := NewService(source, &fakeIdentityResolver{}, nil, Options{})

	matches, err := service.FindMatches(context.Background(), "requester", ModeSemantic)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "without a semantic scorer the tag pipeline still ranks")
}
