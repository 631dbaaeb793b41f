package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// InsertSubmission appends a submission row
func (r *PostgresRepository) InsertSubmission(ctx context.Context, sub *models.Submission) error {
	payloadJSON, err := json.Marshal(sub.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO challenge_submissions (id, session_id, challenge_id, challenge_type, concept_area, payload, elapsed_ms, used_assist, quality_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		sub.ID,
		sub.SessionID,
		sub.ChallengeID,
		string(sub.ChallengeType),
		string(sub.ConceptArea),
		payloadJSON,
		nullInt64(sub.ElapsedMs),
		sub.UsedAssist,
		nullFloat64(sub.QualityScore),
		sub.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}

// LatestSubmission returns the most recent submission a session made
// for a challenge, or (nil, nil) when there is none
func (r *PostgresRepository) LatestSubmission(ctx context.Context, sessionID, challengeID string) (*models.Submission, error) {
	query := `
		SELECT id, session_id, challenge_id, challenge_type, concept_area, payload, elapsed_ms, used_assist, quality_score, created_at
		FROM challenge_submissions
		WHERE session_id = $1 AND challenge_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var sub models.Submission
	var typeStr, areaStr string
	var payloadJSON []byte
	var elapsedMs sql.NullInt64
	var qualityScore sql.NullFloat64

	err := r.pool.QueryRow(ctx, query, sessionID, challengeID).Scan(
		&sub.ID,
		&sub.SessionID,
		&sub.ChallengeID,
		&typeStr,
		&areaStr,
		&payloadJSON,
		&elapsedMs,
		&sub.UsedAssist,
		&qualityScore,
		&sub.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	sub.ChallengeType = models.ChallengeType(typeStr)
	sub.ConceptArea = models.ConceptArea(areaStr)

	if elapsedMs.Valid {
		sub.ElapsedMs = &elapsedMs.Int64
	}
	if qualityScore.Valid {
		sub.QualityScore = &qualityScore.Float64
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &sub.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}

	return &sub, nil
}

// GetAggregate retrieves the aggregate for a challenge, or (nil, nil)
// when no submission has ever been recorded for it
func (r *PostgresRepository) GetAggregate(ctx context.Context, challengeID string) (*models.ChallengeAggregate, error) {
	query := `
		SELECT challenge_id, total_submissions, mean_quality_score, time_histogram, smoothed_median_ms, version, updated_at
		FROM challenge_aggregates
		WHERE challenge_id = $1
	`

	var agg models.ChallengeAggregate
	var meanQuality, smoothedMedian sql.NullFloat64
	var histogramJSON []byte

	err := r.pool.QueryRow(ctx, query, challengeID).Scan(
		&agg.ChallengeID,
		&agg.TotalSubmissions,
		&meanQuality,
		&histogramJSON,
		&smoothedMedian,
		&agg.Version,
		&agg.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get aggregate: %w", err)
	}

	if meanQuality.Valid {
		agg.MeanQualityScore = &meanQuality.Float64
	}
	if smoothedMedian.Valid {
		agg.SmoothedMedianMs = &smoothedMedian.Float64
	}

	agg.TimeHistogram = make(map[int64]int64)
	if histogramJSON != nil {
		if err := json.Unmarshal(histogramJSON, &agg.TimeHistogram); err != nil {
			return nil, fmt.Errorf("failed to unmarshal histogram: %w", err)
		}
	}

	return &agg, nil
}

// UpsertAggregate writes an aggregate under optimistic concurrency.
// expectedVersion 0 inserts a fresh row; otherwise the update applies
// only while the stored version still matches. Both paths return
// ErrVersionConflict when a concurrent writer got there first.
func (r *PostgresRepository) UpsertAggregate(ctx context.Context, agg *models.ChallengeAggregate, expectedVersion int64) error {
	histogramJSON, err := json.Marshal(agg.TimeHistogram)
	if err != nil {
		return fmt.Errorf("failed to marshal histogram: %w", err)
	}

	if expectedVersion == 0 {
		query := `
			INSERT INTO challenge_aggregates (challenge_id, total_submissions, mean_quality_score, time_histogram, smoothed_median_ms, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6)
			ON CONFLICT (challenge_id) DO NOTHING
		`
		result, err := r.pool.Exec(ctx, query,
			agg.ChallengeID,
			agg.TotalSubmissions,
			nullFloat64(agg.MeanQualityScore),
			histogramJSON,
			nullFloat64(agg.SmoothedMedianMs),
			agg.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert aggregate: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	query := `
		UPDATE challenge_aggregates
		SET total_submissions = $2, mean_quality_score = $3, time_histogram = $4, smoothed_median_ms = $5, version = version + 1, updated_at = $6
		WHERE challenge_id = $1 AND version = $7
	`

	result, err := r.pool.Exec(ctx, query,
		agg.ChallengeID,
		agg.TotalSubmissions,
		nullFloat64(agg.MeanQualityScore),
		histogramJSON,
		nullFloat64(agg.SmoothedMedianMs),
		agg.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update aggregate: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	return nil
}

// GetProgress retrieves session progress, or (nil, nil) when the
// session has no history yet
func (r *PostgresRepository) GetProgress(ctx context.Context, sessionID string) (*models.SessionProgress, error) {
	query := `
		SELECT session_id, completed_ids, area_counts, total_completed, updated_at
		FROM session_progress
		WHERE session_id = $1
	`

	var p models.SessionProgress
	var completedJSON, countsJSON []byte

	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&p.SessionID,
		&completedJSON,
		&countsJSON,
		&p.TotalCompleted,
		&p.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if err := json.Unmarshal(completedJSON, &p.CompletedIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal completed ids: %w", err)
	}
	if err := json.Unmarshal(countsJSON, &p.AreaCounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal area counts: %w", err)
	}

	return &p, nil
}

// UpsertProgress writes a session progress record
func (r *PostgresRepository) UpsertProgress(ctx context.Context, p *models.SessionProgress) error {
	completedJSON, err := json.Marshal(p.CompletedIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal completed ids: %w", err)
	}

	countsJSON, err := json.Marshal(p.AreaCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal area counts: %w", err)
	}

	query := `
		INSERT INTO session_progress (session_id, completed_ids, area_counts, total_completed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET completed_ids = EXCLUDED.completed_ids,
		    area_counts = EXCLUDED.area_counts,
		    total_completed = EXCLUDED.total_completed,
		    updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		p.SessionID,
		completedJSON,
		countsJSON,
		p.TotalCompleted,
		p.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}

	return nil
}

// Helper functions for nullable values

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
