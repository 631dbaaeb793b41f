// Package engine wires the catalog, queue builder, aggregation
// pipeline and persistence collaborator into the request-scoped
// operations the API exposes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fluent-loop/feed-engine/internal/catalog"
	"github.com/fluent-loop/feed-engine/internal/feed"
	"github.com/fluent-loop/feed-engine/internal/locker"
	"github.com/fluent-loop/feed-engine/internal/models"
	"github.com/fluent-loop/feed-engine/internal/progress"
	"github.com/fluent-loop/feed-engine/internal/stats"
	"github.com/fluent-loop/feed-engine/internal/storage"
)

// upsertAttempts bounds the optimistic-concurrency retry loop on
// aggregate updates.
const upsertAttempts = 3

// idPrefixTypes maps legacy challenge id prefixes to types, used for
// the insight when an id is not in the loaded catalog.
var idPrefixTypes = map[string]models.ChallengeType{
	"pf":  models.TypePromptForge,
	"re":  models.TypeReverseEngineer,
	"tc":  models.TypeTasteCurator,
	"trc": models.TypeTrustCall,
	"fp":  models.TypeFirstPrinciples,
	"cs":  models.TypeContextSurgeon,
	"dd":  models.TypeDebugDetective,
	"tlc": models.TypeToolChain,
	"aa":  models.TypeAgentArchitect,
}

// Engine executes the feed and comparison operations. A nil repository
// means no persistence collaborator is configured: queue building still
// works, everything touching stored state degrades per contract.
type Engine struct {
	catalog *catalog.Loader
	builder *feed.Builder
	repo    storage.Repository
	locks   locker.Locker
}

// New creates an engine. repo may be nil in persistence-free deploys.
func New(cat *catalog.Loader, builder *feed.Builder, repo storage.Repository, locks locker.Locker) *Engine {
	return &Engine{
		catalog: cat,
		builder: builder,
		repo:    repo,
		locks:   locks,
	}
}

// BuildQueue assembles an ordered batch of challenges, excluding the
// given ids. When sessionID is set and persistence is up, the session's
// completed ids join the exclusion set; a persistence failure there is
// logged and the queue is still built from the explicit exclusions.
func (e *Engine) BuildQueue(ctx context.Context, sessionID string, excludedIDs []string, batchSize int) []*models.Challenge {
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	if sessionID != "" && e.repo != nil {
		p, err := e.repo.GetProgress(ctx, sessionID)
		if err != nil {
			slog.Warn("failed to load session progress for queue exclusions", "session_id", sessionID, "error", err)
		} else if p != nil {
			for _, id := range p.CompletedIDs {
				excluded[id] = struct{}{}
			}
		}
	}

	return e.builder.Build(e.catalog.List(), excluded, batchSize)
}

// Submit records a submission and answers how it compares with every
// prior submission to the same challenge.
//
// The three writes (raw insert, aggregate upsert, progress upsert) are
// independent and best-effort: a failure in one is logged and observed
// but never prevents the next from being attempted, and the comparison
// is computed from whatever aggregate state is available. The response
// must never block on a writer failure.
func (e *Engine) Submit(ctx context.Context, req *models.SubmitRequest) (*models.ComparisonResult, error) {
	if e.repo == nil {
		return nil, storage.ErrUnavailable
	}

	qualityScore := stats.ScoreSubmission(req.ChallengeType, req.Submission)

	sub := &models.Submission{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		ChallengeID:   req.ChallengeID,
		ChallengeType: req.ChallengeType,
		ConceptArea:   req.ConceptArea,
		Payload:       req.Submission,
		ElapsedMs:     req.TimeMs,
		UsedAssist:    req.UsedAssist,
		QualityScore:  qualityScore,
		CreatedAt:     time.Now().UTC(),
	}

	if err := e.repo.InsertSubmission(ctx, sub); err != nil {
		slog.Error("failed to insert submission", "challenge_id", req.ChallengeID, "error", err)
	}

	agg, err := e.updateAggregate(ctx, req.ChallengeID, qualityScore, req.TimeMs)
	if err != nil {
		slog.Error("failed to update aggregate", "challenge_id", req.ChallengeID, "error", err)
		// Respond from the unstored update so the submitter still sees
		// their own data point.
		agg = stats.UpdateAggregate(nil, req.ChallengeID, qualityScore, req.TimeMs)
	}

	if p, changed := e.recordProgress(ctx, req); changed {
		if err := e.repo.UpsertProgress(ctx, p); err != nil {
			slog.Error("failed to upsert progress", "session_id", req.SessionID, "error", err)
		}
	}

	percentile := e.percentileFor(req.TimeMs, qualityScore, agg)

	return &models.ComparisonResult{
		Percentile:       percentile,
		TotalSubmissions: agg.TotalSubmissions,
		Distribution:     agg.TimeHistogram,
		Insight:          stats.Insight(req.ChallengeType, percentile),
	}, nil
}

// updateAggregate serializes the read-modify-write per challenge id:
// an advisory lock bounds contention, and the versioned upsert retries
// on conflict so no concurrent update is ever silently lost.
func (e *Engine) updateAggregate(ctx context.Context, challengeID string, qualityScore *float64, elapsedMs *int64) (*models.ChallengeAggregate, error) {
	release, err := e.locks.Acquire(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire aggregate lock: %w", err)
	}
	defer release()

	var lastErr error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		current, err := e.repo.GetAggregate(ctx, challengeID)
		if err != nil {
			return nil, err
		}

		var expectedVersion int64
		if current != nil {
			expectedVersion = current.Version
		}

		updated := stats.UpdateAggregate(current, challengeID, qualityScore, elapsedMs)

		err = e.repo.UpsertAggregate(ctx, updated, expectedVersion)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		slog.Debug("aggregate version conflict, retrying", "challenge_id", challengeID, "attempt", attempt+1)
	}

	return nil, fmt.Errorf("aggregate update exhausted retries: %w", lastErr)
}

func (e *Engine) recordProgress(ctx context.Context, req *models.SubmitRequest) (*models.SessionProgress, bool) {
	existing, err := e.repo.GetProgress(ctx, req.SessionID)
	if err != nil {
		slog.Error("failed to load progress", "session_id", req.SessionID, "error", err)
		return nil, false
	}
	return progress.RecordCompletion(existing, req.SessionID, req.ChallengeID, req.ConceptArea)
}

// Compare answers the comparison for a challenge without recording
// anything. When sessionID is set, that session's latest submission
// drives the percentile; otherwise the neutral default applies.
func (e *Engine) Compare(ctx context.Context, challengeID, sessionID string) (*models.ComparisonResult, error) {
	if e.repo == nil {
		return nil, storage.ErrUnavailable
	}

	challengeType := e.resolveType(challengeID)

	agg, err := e.repo.GetAggregate(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregate: %w", err)
	}

	// An empty aggregate is a valid, expected state, not a failure.
	if agg == nil {
		return &models.ComparisonResult{
			Percentile:       stats.NeutralPercentile,
			TotalSubmissions: 0,
			Distribution:     map[int64]int64{},
			Insight:          stats.FirstSubmitterInsight,
		}, nil
	}

	percentile := stats.NeutralPercentile
	if sessionID != "" {
		sub, err := e.repo.LatestSubmission(ctx, sessionID, challengeID)
		if err != nil {
			slog.Warn("failed to load latest submission", "session_id", sessionID, "challenge_id", challengeID, "error", err)
		} else if sub != nil {
			percentile = e.percentileFor(sub.ElapsedMs, sub.QualityScore, agg)
		}
	}

	return &models.ComparisonResult{
		Percentile:       percentile,
		TotalSubmissions: agg.TotalSubmissions,
		Distribution:     agg.TimeHistogram,
		Insight:          stats.Insight(challengeType, percentile),
	}, nil
}

// Progress returns the session's progress record, or the all-zero
// default when the session has no history yet.
func (e *Engine) Progress(ctx context.Context, sessionID string) (*models.SessionProgress, error) {
	if e.repo == nil {
		return nil, storage.ErrUnavailable
	}

	p, err := e.repo.GetProgress(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if p == nil {
		return models.NewSessionProgress(sessionID), nil
	}
	return p, nil
}

// percentileFor picks between the histogram estimator (time available)
// and the direct score path, falling back to the neutral default.
func (e *Engine) percentileFor(elapsedMs *int64, qualityScore *float64, agg *models.ChallengeAggregate) int {
	switch {
	case elapsedMs != nil:
		return stats.EstimatePercentile(float64(*elapsedMs), agg.TimeHistogram, agg.TotalSubmissions)
	case qualityScore != nil:
		return stats.ScorePercentile(*qualityScore)
	default:
		return stats.NeutralPercentile
	}
}

// resolveType looks the challenge up in the catalog, falling back to
// the id prefix convention for content not currently loaded.
func (e *Engine) resolveType(challengeID string) models.ChallengeType {
	if c, err := e.catalog.Get(challengeID); err == nil {
		return c.Type
	}
	prefix, _, _ := strings.Cut(challengeID, "-")
	if t, ok := idPrefixTypes[prefix]; ok {
		return t
	}
	return models.TypePromptForge
}
