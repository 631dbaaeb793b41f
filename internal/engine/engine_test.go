package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluent-loop/feed-engine/internal/catalog"
	"github.com/fluent-loop/feed-engine/internal/feed"
	"github.com/fluent-loop/feed-engine/internal/locker"
	"github.com/fluent-loop/feed-engine/internal/models"
	"github.com/fluent-loop/feed-engine/internal/stats"
	"github.com/fluent-loop/feed-engine/internal/storage"
)

// fakeRepo is an in-memory Repository with injectable failures.
type fakeRepo struct {
	submissions []*models.Submission
	aggregates  map[string]*models.ChallengeAggregate
	progress    map[string]*models.SessionProgress

	insertErr   error
	aggGetErr   error
	progressErr error

	// upsertConflicts makes the first n aggregate upserts fail with
	// ErrVersionConflict.
	upsertConflicts int
	upsertCalls     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		aggregates: make(map[string]*models.ChallengeAggregate),
		progress:   make(map[string]*models.SessionProgress),
	}
}

func (r *fakeRepo) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.submissions = append(r.submissions, sub)
	return nil
}

func (r *fakeRepo) LatestSubmission(ctx context.Context, sessionID, challengeID string) (*models.Submission, error) {
	for i := len(r.submissions) - 1; i >= 0; i-- {
		s := r.submissions[i]
		if s.SessionID == sessionID && s.ChallengeID == challengeID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) GetAggregate(ctx context.Context, challengeID string) (*models.ChallengeAggregate, error) {
	if r.aggGetErr != nil {
		return nil, r.aggGetErr
	}
	return r.aggregates[challengeID], nil
}

func (r *fakeRepo) UpsertAggregate(ctx context.Context, agg *models.ChallengeAggregate, expectedVersion int64) error {
	r.upsertCalls++
	if r.upsertConflicts > 0 {
		r.upsertConflicts--
		return storage.ErrVersionConflict
	}

	current := r.aggregates[agg.ChallengeID]
	if expectedVersion == 0 && current != nil {
		return storage.ErrVersionConflict
	}
	if expectedVersion != 0 && (current == nil || current.Version != expectedVersion) {
		return storage.ErrVersionConflict
	}

	stored := *agg
	stored.Version = expectedVersion + 1
	r.aggregates[agg.ChallengeID] = &stored
	return nil
}

func (r *fakeRepo) GetProgress(ctx context.Context, sessionID string) (*models.SessionProgress, error) {
	if r.progressErr != nil {
		return nil, r.progressErr
	}
	return r.progress[sessionID], nil
}

func (r *fakeRepo) UpsertProgress(ctx context.Context, p *models.SessionProgress) error {
	r.progress[p.SessionID] = p
	return nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }

func (r *fakeRepo) Close() error { return nil }

func int64Ptr(v int64) *int64 { return &v }

func testCatalog() *catalog.Loader {
	loader := catalog.NewLoader()
	loader.Add(&models.Challenge{ID: "re-1", Type: models.TypeReverseEngineer, ConceptArea: models.AreaPromptCraft, Title: "The Apology Email"})
	loader.Add(&models.Challenge{ID: "tc-1", Type: models.TypeTasteCurator, ConceptArea: models.AreaHumanJudgment, Title: "Pick the Stronger Summary"})
	loader.Add(&models.Challenge{ID: "dd-1", Type: models.TypeDebugDetective, ConceptArea: models.AreaCodingWithAI, Title: "The Off-By-One Refund"})
	loader.Add(&models.Challenge{ID: "pf-1", Type: models.TypePromptForge, ConceptArea: models.AreaPromptCraft, Title: "The Onboarding Email"})
	loader.Add(&models.Challenge{ID: "trc-1", Type: models.TypeTrustCall, ConceptArea: models.AreaCriticalThinking, Title: "The Confident Citation"})
	return loader
}

func newTestEngine(repo storage.Repository) *Engine {
	return New(testCatalog(), feed.NewBuilder(rand.NewSource(1)), repo, locker.NewKeyedMutex())
}

func submitRequest() *models.SubmitRequest {
	return &models.SubmitRequest{
		SessionID:     "sess-1",
		ChallengeID:   "re-1",
		ChallengeType: models.TypeReverseEngineer,
		ConceptArea:   models.AreaPromptCraft,
		Submission:    map[string]interface{}{"isCorrect": true},
		TimeMs:        int64Ptr(12000),
	}
}

func TestSubmitRecordsEverything(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	result, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.TotalSubmissions)
	assert.Equal(t, map[int64]int64{10000: 1}, result.Distribution)
	assert.NotEmpty(t, result.Insight)

	require.Len(t, repo.submissions, 1)
	sub := repo.submissions[0]
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "sess-1", sub.SessionID)
	require.NotNil(t, sub.QualityScore)
	assert.InDelta(t, 1.0, *sub.QualityScore, 1e-9)

	agg := repo.aggregates["re-1"]
	require.NotNil(t, agg)
	assert.Equal(t, int64(1), agg.TotalSubmissions)
	assert.Equal(t, int64(1), agg.Version)

	p := repo.progress["sess-1"]
	require.NotNil(t, p)
	assert.Equal(t, []string{"re-1"}, p.CompletedIDs)
	assert.Equal(t, 1, p.AreaCounts[models.AreaPromptCraft])
}

func TestSubmitWithoutRepo(t *testing.T) {
	eng := newTestEngine(nil)

	_, err := eng.Submit(context.Background(), submitRequest())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestSubmitSurvivesInsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.insertErr = errors.New("disk on fire")
	eng := newTestEngine(repo)

	result, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	// The raw insert failed but the aggregate and progress still landed.
	assert.Empty(t, repo.submissions)
	assert.NotNil(t, repo.aggregates["re-1"])
	assert.NotNil(t, repo.progress["sess-1"])
	assert.Equal(t, int64(1), result.TotalSubmissions)
}

func TestSubmitSurvivesAggregateFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.aggGetErr = errors.New("connection reset")
	eng := newTestEngine(repo)

	result, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	// The comparison is computed from the unstored single-submission
	// aggregate so the caller still sees their own data point.
	assert.Equal(t, int64(1), result.TotalSubmissions)
	assert.Equal(t, map[int64]int64{10000: 1}, result.Distribution)
	require.Len(t, repo.submissions, 1)
	assert.NotNil(t, repo.progress["sess-1"])
}

func TestSubmitRetriesVersionConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertConflicts = 2
	eng := newTestEngine(repo)

	result, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, repo.upsertCalls)
	assert.Equal(t, int64(1), result.TotalSubmissions)
	require.NotNil(t, repo.aggregates["re-1"])
}

func TestSubmitIdempotentProgress(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	_, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	_, err = eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	p := repo.progress["sess-1"]
	require.NotNil(t, p)
	assert.Equal(t, 1, p.TotalCompleted)
	assert.Equal(t, []string{"re-1"}, p.CompletedIDs)

	// The aggregate still counts both submissions.
	assert.Equal(t, int64(2), repo.aggregates["re-1"].TotalSubmissions)
}

func TestCompareNoData(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	result, err := eng.Compare(context.Background(), "re-1", "")
	require.NoError(t, err)

	assert.Equal(t, stats.NeutralPercentile, result.Percentile)
	assert.Equal(t, int64(0), result.TotalSubmissions)
	assert.Empty(t, result.Distribution)
	assert.NotNil(t, result.Distribution)
	assert.Equal(t, stats.FirstSubmitterInsight, result.Insight)
}

func TestCompareUsesLatestSubmission(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	// Seed two submissions from another session.
	other := submitRequest()
	other.SessionID = "sess-other"
	other.TimeMs = int64Ptr(8000)
	_, err := eng.Submit(context.Background(), other)
	require.NoError(t, err)

	mine := submitRequest()
	mine.TimeMs = int64Ptr(22000)
	_, err = eng.Submit(context.Background(), mine)
	require.NoError(t, err)

	result, err := eng.Compare(context.Background(), "re-1", "sess-1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.TotalSubmissions)

	// 22000ms against buckets {5000: 1, 20000: 1}: both bucket keys are
	// strictly below the value, so the caller ranks at 100.
	assert.Equal(t, 100, result.Percentile)
}

func TestCompareWithoutSession(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	_, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	result, err := eng.Compare(context.Background(), "re-1", "")
	require.NoError(t, err)

	assert.Equal(t, stats.NeutralPercentile, result.Percentile)
	assert.Equal(t, int64(1), result.TotalSubmissions)
}

func TestCompareWithoutRepo(t *testing.T) {
	eng := newTestEngine(nil)
	_, err := eng.Compare(context.Background(), "re-1", "")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestProgressDefaultsToZeroRecord(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	p, err := eng.Progress(context.Background(), "sess-new")
	require.NoError(t, err)

	assert.Equal(t, "sess-new", p.SessionID)
	assert.Empty(t, p.CompletedIDs)
	assert.NotNil(t, p.CompletedIDs)
	assert.Equal(t, 0, p.TotalCompleted)
	assert.Len(t, p.AreaCounts, len(models.ConceptAreas))
}

func TestProgressWithoutRepo(t *testing.T) {
	eng := newTestEngine(nil)
	_, err := eng.Progress(context.Background(), "sess-1")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestBuildQueueExcludesCompleted(t *testing.T) {
	repo := newFakeRepo()
	eng := newTestEngine(repo)

	_, err := eng.Submit(context.Background(), submitRequest())
	require.NoError(t, err)

	queue := eng.BuildQueue(context.Background(), "sess-1", nil, 4)
	require.Len(t, queue, 4)
	for _, c := range queue {
		assert.NotEqual(t, "re-1", c.ID)
	}
}

func TestBuildQueueWithoutRepo(t *testing.T) {
	eng := newTestEngine(nil)

	queue := eng.BuildQueue(context.Background(), "sess-1", []string{"dd-1"}, 3)
	require.Len(t, queue, 3)
	for _, c := range queue {
		assert.NotEqual(t, "dd-1", c.ID)
	}
}

func TestResolveTypePrefixFallback(t *testing.T) {
	eng := newTestEngine(newFakeRepo())

	tests := []struct {
		id   string
		want models.ChallengeType
	}{
		{"re-1", models.TypeReverseEngineer},   // in catalog
		{"aa-99", models.TypeAgentArchitect},   // prefix only
		{"tlc-42", models.TypeToolChain},       // prefix only
		{"cs-7", models.TypeContextSurgeon},    // prefix only
		{"mystery-1", models.TypePromptForge},  // unknown prefix
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, eng.resolveType(tt.id), "id %s", tt.id)
	}
}
