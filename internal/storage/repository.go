package storage

import (
	"context"
	"errors"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// ErrVersionConflict is returned when an aggregate upsert loses the
// race against a concurrent writer; callers re-read and reapply.
var ErrVersionConflict = errors.New("aggregate version conflict")

// ErrUnavailable is returned when no persistence collaborator is
// configured; callers degrade to no-data responses.
var ErrUnavailable = errors.New("persistence not available")

// Repository defines the persistence collaborator for submissions,
// aggregates and session progress. Missing rows come back as (nil, nil).
type Repository interface {
	// Submissions (append-only)
	InsertSubmission(ctx context.Context, sub *models.Submission) error
	LatestSubmission(ctx context.Context, sessionID, challengeID string) (*models.Submission, error)

	// Aggregates. UpsertAggregate enforces optimistic concurrency: an
	// expectedVersion of 0 inserts a new row, any other value updates
	// only if the stored version still matches; ErrVersionConflict
	// signals either case losing the race.
	GetAggregate(ctx context.Context, challengeID string) (*models.ChallengeAggregate, error)
	UpsertAggregate(ctx context.Context, agg *models.ChallengeAggregate, expectedVersion int64) error

	// Session progress
	GetProgress(ctx context.Context, sessionID string) (*models.SessionProgress, error)
	UpsertProgress(ctx context.Context, p *models.SessionProgress) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
