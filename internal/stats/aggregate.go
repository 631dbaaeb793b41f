// Package stats holds the online aggregation pipeline: it folds a
// stream of submissions into per-challenge running summaries and
// estimates percentile ranks from them without replaying raw history.
package stats

import (
	"time"

	"github.com/fluent-loop/feed-engine/internal/models"
)

// BucketWidthMs is the fixed width of a time histogram bucket.
const BucketWidthMs int64 = 5000

// medianAlpha is the smoothing factor of the median approximation.
const medianAlpha = 0.1

// BucketKey maps an elapsed time to its histogram bucket key.
func BucketKey(elapsedMs int64) int64 {
	return elapsedMs / BucketWidthMs * BucketWidthMs
}

// UpdateAggregate folds a single submission into the aggregate and
// returns the updated copy. A nil current aggregate is treated as the
// empty aggregate for the challenge.
//
// The smoothed median is an exponential moving average, a deliberately
// biased-but-cheap proxy; callers must not treat it as an exact median.
func UpdateAggregate(current *models.ChallengeAggregate, challengeID string, qualityScore *float64, elapsedMs *int64) *models.ChallengeAggregate {
	if current == nil {
		current = models.NewChallengeAggregate(challengeID)
	}

	updated := &models.ChallengeAggregate{
		ChallengeID:      current.ChallengeID,
		TotalSubmissions: current.TotalSubmissions + 1,
		MeanQualityScore: current.MeanQualityScore,
		SmoothedMedianMs: current.SmoothedMedianMs,
		TimeHistogram:    make(map[int64]int64, len(current.TimeHistogram)+1),
		UpdatedAt:        time.Now().UTC(),
		Version:          current.Version,
	}
	for bucket, count := range current.TimeHistogram {
		updated.TimeHistogram[bucket] = count
	}

	if qualityScore != nil {
		oldMean := 0.0
		if current.MeanQualityScore != nil {
			oldMean = *current.MeanQualityScore
		}
		mean := oldMean + (*qualityScore-oldMean)/float64(updated.TotalSubmissions)
		updated.MeanQualityScore = &mean
	}

	if elapsedMs != nil {
		updated.TimeHistogram[BucketKey(*elapsedMs)]++

		if current.SmoothedMedianMs == nil {
			median := float64(*elapsedMs)
			updated.SmoothedMedianMs = &median
		} else {
			median := *current.SmoothedMedianMs*(1-medianAlpha) + float64(*elapsedMs)*medianAlpha
			updated.SmoothedMedianMs = &median
		}
	}

	return updated
}
